package apperr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Title    string   `json:"title" validate:"min=3,max=10"`
	Email    string   `json:"email" validate:"required,email"`
	Image    string   `json:"image" validate:"omitempty,url"`
	Password string   `json:"password" validate:"required"`
	Confirm  string   `json:"passwordConfirmation" validate:"eqfield=Password"`
	Tags     []string `json:"tags" validate:"dive,max=5"`
}

func TestValidate(t *testing.T) {
	valid := sampleInput{Title: "hello", Email: "a@b.co", Password: "pw", Confirm: "pw", Tags: []string{"go"}}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name    string
		mutate  func(in *sampleInput)
		field   string
		message string
	}{
		{"too short", func(in *sampleInput) { in.Title = "hi" }, "title", "must be at least 3 characters"},
		{"too long", func(in *sampleInput) { in.Title = strings.Repeat("x", 11) }, "title", "must be at most 10 characters"},
		{"missing email", func(in *sampleInput) { in.Email = "" }, "email", "is required"},
		{"bad email", func(in *sampleInput) { in.Email = "nope" }, "email", "must be a valid email"},
		{"bad url", func(in *sampleInput) { in.Image = "not a url" }, "image", "must be a valid URL"},
		{"mismatch", func(in *sampleInput) { in.Confirm = "other" }, "passwordConfirmation", "must match password"},
		{"long tag", func(in *sampleInput) { in.Tags = []string{"go", "toolong"} }, "tags[1]", "must be at most 5 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			err := Validate(in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, []string{tt.message}, verr.Fields[tt.field])
		})
	}
}

func TestValidate_CountsRunes(t *testing.T) {
	// three runes, five bytes
	assert.NoError(t, Validate(sampleInput{Title: "été", Email: "a@b.co", Password: "p", Confirm: "p"}))
}
