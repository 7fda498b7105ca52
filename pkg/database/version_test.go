package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *VersionInfo
		wantErr  bool
	}{
		{
			name:     "standard version format",
			input:    "16.4",
			expected: &VersionInfo{Major: 16, Minor: 4, Raw: "16.4"},
		},
		{
			name:  "version with distribution suffix",
			input: "16.4 (Debian 16.4-1.pgdg120+2)",
			expected: &VersionInfo{
				Major: 16,
				Minor: 4,
				Raw:   "16.4 (Debian 16.4-1.pgdg120+2)",
			},
		},
		{
			name:     "three part legacy version",
			input:    "9.6.24",
			expected: &VersionInfo{Major: 9, Minor: 6, Patch: 24, Raw: "9.6.24"},
		},
		{
			name:     "pre-release version",
			input:    "17beta1",
			expected: &VersionInfo{Major: 17, Raw: "17beta1"},
		},
		{
			name:    "invalid version",
			input:   "unknown",
			wantErr: true,
		},
		{
			name:    "empty version",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestVersionInfo(t *testing.T) {
	v := VersionInfo{Major: 16, Minor: 4}
	assert.Equal(t, "16.4.0", v.String())
	assert.True(t, v.IsAtLeast(16, 4))
	assert.True(t, v.IsAtLeast(15, 9))
	assert.False(t, v.IsAtLeast(16, 5))
	assert.True(t, v.Supported())

	assert.False(t, VersionInfo{Major: 9, Minor: 5}.Supported())
	assert.True(t, VersionInfo{Major: 9, Minor: 6}.Supported())
}
