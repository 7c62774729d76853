package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_ReturnsExitCode(t *testing.T) {
	t.Setenv("JWT_SECRET", "sweeper-test-secret")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "coworking")

	t.Run("memory store is refused", func(t *testing.T) {
		t.Setenv("STORE", "memory")
		assert.Equal(t, 1, run(true, time.Second))
	})

	t.Run("unreachable database", func(t *testing.T) {
		t.Setenv("STORE", "mysql")
		t.Setenv("DB_HOST", "127.0.0.1")
		t.Setenv("DB_PORT", "1")
		assert.Equal(t, 1, run(true, time.Second))
	})
}
