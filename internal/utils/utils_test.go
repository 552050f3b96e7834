package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomString(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{name: "length 1", n: 1},
		{name: "length 7", n: 7},
		{name: "length 12", n: 12},
		{name: "negative length", n: -1, wantErr: true},
		{name: "zero length", n: 0, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateRandomString(tt.n)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadLength)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.n)
			for _, r := range got {
				assert.True(t, strings.ContainsRune(Base62, r), "unexpected rune %q", r)
			}
		})
	}
}

func TestGenerateDigits(t *testing.T) {
	got, err := GenerateDigits(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, got)
}
