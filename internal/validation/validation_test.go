package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required,notblank"`
	City  string `json:"city" validate:"required,notblank"`
	Count int    `json:"count" validate:"min=1"`
	Note  string `validate:"max=3"`
}

func TestValidator_Fields(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		input    sample
		expected []string
	}{
		{
			name:     "valid",
			input:    sample{Name: "a", City: "b", Count: 1},
			expected: nil,
		},
		{
			name:     "missing and blank",
			input:    sample{Name: "   ", Count: 1},
			expected: []string{"name", "city"},
		},
		{
			name:     "untagged field uses struct name",
			input:    sample{Name: "a", City: "b", Count: 0, Note: "toolong"},
			expected: []string{"count", "Note"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := v.Fields(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fields)
		})
	}
}

func TestValidator_NonStruct(t *testing.T) {
	v := New()

	_, err := v.Fields("not a struct")
	assert.Error(t, err)
}
