package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	t.Setenv("EMPTY_VAR", "")

	assert.Equal(t, "test_value", GetEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", GetEnv("EMPTY_VAR", "default"))
	assert.Equal(t, "default", GetEnv("NONEXISTENT_VAR", "default"))
}
