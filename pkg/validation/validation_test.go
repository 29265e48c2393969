package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid email", "user@example.com", false},
		{"valid email with subdomain", "user@mail.example.com", false},
		{"valid with plus", "user+tag@example.com", false},
		{"empty email", "", true},
		{"invalid format", "invalid-email", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			assert.Equal(t, tt.wantErr, err != nil, "ValidateEmail(%q) = %v", tt.email, err)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(""))
	assert.EqualError(t, ValidatePassword("12345"), "Password must be at least 6 characters")
	assert.NoError(t, ValidatePassword("123456"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 129)))
}

func TestStruct_RequiredFields(t *testing.T) {
	type input struct {
		Name  string `validate:"required"`
		Email string `validate:"required"`
		File  *int   `validate:"required"`
	}

	assert.Error(t, Struct(input{Name: "a"}))

	one := 1
	assert.NoError(t, Struct(input{Name: "a", Email: "b", File: &one}))
}
