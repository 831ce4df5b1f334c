package pyast

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Sentinel validation errors.
var (
	// ErrMalformedTree reports a tree that cannot be serialized.
	ErrMalformedTree = errors.New("malformed syntax tree")
	// ErrUnstamped reports a node without position information.
	ErrUnstamped = errors.New("node has no position")
)

// NodeSchema is the JSON schema every dumped tree must satisfy.
const NodeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "node": {
      "type": "object",
      "required": ["_type", "lineno", "col_offset", "end_lineno", "end_col_offset"],
      "properties": {
        "_type": {"type": "string", "minLength": 1},
        "lineno": {"type": "integer", "minimum": 1},
        "col_offset": {"type": "integer", "minimum": 0},
        "end_lineno": {"type": "integer", "minimum": 1},
        "end_col_offset": {"type": "integer", "minimum": 0}
      },
      "additionalProperties": {"$ref": "#/definitions/field"}
    },
    "field": {
      "anyOf": [
        {"type": ["string", "number", "boolean", "null"]},
        {"type": "array", "items": {"$ref": "#/definitions/field"}},
        {"$ref": "#/definitions/node"}
      ]
    }
  },
  "$ref": "#/definitions/node"
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(NodeSchema))
	})

	return schema, schemaErr
}

// SchemaResult is the outcome of validating a dumped tree against NodeSchema.
type SchemaResult struct {
	Valid  bool
	Errors []string
}

// ValidateSchema checks the dump of node against NodeSchema.
func ValidateSchema(node Node) (SchemaResult, error) {
	return ValidateDump(Dump(node))
}

// ValidateDump checks an already dumped tree against NodeSchema.
func ValidateDump(dump any) (SchemaResult, error) {
	compiled, err := compiledSchema()
	if err != nil {
		return SchemaResult{}, fmt.Errorf("compile node schema: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(dump))
	if err != nil {
		return SchemaResult{}, fmt.Errorf("validate dump: %w", err)
	}

	out := SchemaResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, re.Field()+": "+re.Description())
	}

	return out, nil
}

// Validate reports whether node is fully position-stamped and structurally
// well formed: the dump satisfies NodeSchema, every span is ordered and
// every required child and name is present.
func Validate(node Node) error {
	res, err := ValidateSchema(node)
	if err != nil {
		return err
	}

	if !res.Valid {
		return fmt.Errorf("%w: %s", ErrUnstamped, strings.Join(res.Errors, "; "))
	}

	var problems []string

	Inspect(node, func(n Node) bool {
		if msg := checkNode(n); msg != "" {
			pos := n.Pos()
			problems = append(problems, fmt.Sprintf("%s at %d:%d: %s", typeName(n), pos.Line, pos.Col, msg))
		}

		return true
	})

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMalformedTree, strings.Join(problems, "; "))
	}

	return nil
}

func checkNode(node Node) string {
	pos := node.Pos()
	if pos.EndLine < pos.Line {
		return "span ends before it starts"
	}

	switch n := node.(type) {
	case *FunctionDef:
		if n.Name == "" {
			return "missing name"
		}
	case *Param:
		if n.Name == "" {
			return "missing parameter name"
		}
	case *If:
		if n.Test == nil {
			return "missing test"
		}
	case *While:
		if n.Test == nil {
			return "missing test"
		}
	case *Assign:
		if len(n.Targets) == 0 || n.Value == nil {
			return "missing target or value"
		}
	case *AugAssign:
		if n.Target == nil || n.Value == nil || n.Op == "" {
			return "missing target, operator or value"
		}
	case *ExprStmt:
		if n.X == nil {
			return "missing expression"
		}
	case *Name:
		if n.ID == "" {
			return "empty identifier"
		}
	case *BinOp:
		if n.Left == nil || n.Right == nil || n.Op == "" {
			return "incomplete binary operation"
		}
	case *UnaryOp:
		if n.X == nil || n.Op == "" {
			return "incomplete unary operation"
		}
	case *BoolOp:
		if len(n.Values) < 2 {
			return "boolean operation needs two operands"
		}
	case *Compare:
		if n.Left == nil || len(n.Ops) == 0 || len(n.Ops) != len(n.Comparators) {
			return "unbalanced comparison"
		}
	case *Call:
		if n.Func == nil {
			return "missing callee"
		}
	case *Attribute:
		if n.X == nil || n.Attr == "" {
			return "incomplete attribute"
		}
	case *Subscript:
		if n.X == nil || n.Index == nil {
			return "incomplete subscript"
		}
	case *IfExp:
		if n.Test == nil || n.Body == nil || n.Orelse == nil {
			return "incomplete conditional expression"
		}
	}

	return ""
}
