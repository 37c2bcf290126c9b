package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = ""
	assert.Equal(t, "dev", String())

	Version = "v1.4.0"
	assert.Equal(t, "v1.4.0", String())
}

func TestShortCommit(t *testing.T) {
	orig := GitCommit
	t.Cleanup(func() { GitCommit = orig })

	GitCommit = "0123456789abcdef"
	assert.Equal(t, "0123456", ShortCommit())

	GitCommit = "abc"
	assert.Equal(t, "abc", ShortCommit())
}
