package pyeval

// Env is a variable scope. Lookups walk outwards through parents; writes go
// to the scope itself, matching Python's function-local assignment rule.
type Env struct {
	vars   map[string]Value
	parent *Env
}

// NewEnv creates a scope nested in parent, which may be nil.
func NewEnv(parent *Env) *Env {
	return &Env{vars: make(map[string]Value), parent: parent}
}

// Get looks name up in this scope and its parents.
func (e *Env) Get(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// Set binds name in this scope.
func (e *Env) Set(name string, v Value) {
	e.vars[name] = v
}
