package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/iter2tail/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	version.Init()

	s := version.String()
	assert.Contains(t, s, "iter2tail ")
	assert.Contains(t, s, version.Version)
	assert.Contains(t, s, "commit: "+version.Commit)
}
