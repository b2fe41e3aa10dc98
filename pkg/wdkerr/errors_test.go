package wdkerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"model configuration", ModelConfiguration("filter %s not found", "f1"), KindModelConfiguration},
		{"parameter validation", ParameterValidation("organism", "Organism", "x", "not allowed"), KindParameterValidation},
		{"integrity", Integrity("mismatch", []string{"SELECT 1"}, "q1"), KindIntegrity},
		{"data access", DataAccess("executing query", "SELECT 1", errors.New("boom")), KindDataAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.Equal(t, tt.kind, KindOf(wrapped))
			assert.Equal(t, tt.kind == KindModelConfiguration, IsModelConfiguration(wrapped))
			assert.Equal(t, tt.kind == KindParameterValidation, IsParameterValidation(wrapped))
			assert.Equal(t, tt.kind == KindIntegrity, IsIntegrity(wrapped))
			assert.Equal(t, tt.kind == KindDataAccess, IsDataAccess(wrapped))
		})
	}
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsIntegrity(nil))
}

func TestError_Message(t *testing.T) {
	t.Run("parameter validation includes value and prompt", func(t *testing.T) {
		err := ParameterValidation("min_len", "Minimum length", "abc", "not a number")
		assert.Contains(t, err.Error(), "not a number")
		assert.Contains(t, err.Error(), `value="abc"`)
		assert.Contains(t, err.Error(), `prompt="Minimum length"`)
	})

	t.Run("integrity includes sql and queries", func(t *testing.T) {
		err := Integrity("row without record", []string{"SELECT a", "SELECT b"}, "GeneAttributes.Alias")
		msg := err.Error()
		assert.Contains(t, msg, "GeneAttributes.Alias")
		assert.Contains(t, msg, "SELECT a")
		assert.Contains(t, msg, "SELECT b")
	})

	t.Run("data access unwraps", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := DataAccess("opening cursor", "", cause)
		assert.ErrorIs(t, err, cause)
		assert.Empty(t, err.SQL)
	})
}
