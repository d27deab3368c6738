package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "USER",
			expected: []string{"USER"},
		},
		{
			name:     "two values",
			input:    "USER,ADMIN",
			expected: []string{"USER", "ADMIN"},
		},
		{
			name:     "varied spacing",
			input:    "USER,  ADMIN , AUDITOR",
			expected: []string{"USER", "ADMIN", "AUDITOR"},
		},
		{
			name:     "trailing comma",
			input:    "USER,",
			expected: []string{"USER"},
		},
		{
			name:     "leading comma",
			input:    ",ADMIN",
			expected: []string{"ADMIN"},
		},
		{
			name:     "only spaces",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "comma only",
			input:    ",",
			expected: nil,
		},
		{
			name:     "repeated commas",
			input:    ",,USER,,ADMIN,,",
			expected: []string{"USER", "ADMIN"},
		},
		{
			name:     "internal spaces preserved",
			input:    "read only, super admin",
			expected: []string{"read only", "super admin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseCSV(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
