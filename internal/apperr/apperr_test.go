package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawirricardo/remix-realworld/internal/storage"
)

func TestKindOf(t *testing.T) {
	v := NewValidationError()
	v.Add("title", "too short")

	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"validation", v, KindValidation},
		{"wrapped validation", fmt.Errorf("create: %w", v), KindValidation},
		{"forbidden", Forbidden("self follow"), KindForbidden},
		{"not authenticated", &NotAuthenticatedError{RedirectTo: "/login"}, KindNotAuthenticated},
		{"not found", NotFound("article", "x"), KindNotFound},
		{"storage conflict", fmt.Errorf("insert: %w", storage.ErrConflict), KindConflict},
		{"other", errors.New("db down"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	v := NewValidationError()
	assert.True(t, v.Empty())
	assert.NoError(t, v.ErrOrNil())

	v.Add("title", "too short")
	v.Add("content", "too short")
	v.Add("content", "required")

	assert.Error(t, v.ErrOrNil())
	assert.Equal(t, "validation failed: content, title", v.Error())
	assert.Len(t, v.Fields["content"], 2)
}
