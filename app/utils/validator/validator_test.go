package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishBody struct {
	User  string `json:"user" validate:"required"`
	Title string `json:"title" validate:"required,max=255"`
	Lang  string `json:"target" validate:"required,langcode"`
}

func TestValidate(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		body      publishBody
		wantError bool
		wantField string
	}{
		{
			name: "valid body",
			body: publishBody{User: "TestUser", Title: "Test Page", Lang: "ar"},
		},
		{
			name:      "missing user",
			body:      publishBody{Title: "Test Page", Lang: "ar"},
			wantError: true,
			wantField: "user",
		},
		{
			name:      "bad lang code",
			body:      publishBody{User: "TestUser", Title: "Test Page", Lang: "Arabic!"},
			wantError: true,
			wantField: "target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.body)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			verr, ok := err.(ValidationError)
			require.True(t, ok)
			assert.Contains(t, verr.Errors, tt.wantField)
		})
	}
}

func TestValidateVarLangCode(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateVar("zh-yue", "langcode"))
	assert.NoError(t, v.ValidateVar("simple", "langcode"))
	assert.Error(t, v.ValidateVar("EN", "langcode"))
	assert.Error(t, v.ValidateVar("", "langcode"))
}
