package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{name: "default", length: 0, want: DefaultLength},
		{name: "in range", length: 8, want: 8},
		{name: "too short", length: 2, want: MinLength},
		{name: "negative", length: -3, want: MinLength},
		{name: "too long", length: 64, want: MaxLength},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.length).Length())
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	g := New(DefaultLength)
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9A-Za-z]{7}$`, code)
		seen[code] = struct{}{}
	}
	// 62^7 codes make a repeat within 1000 draws practically impossible.
	assert.Len(t, seen, 1000)
}
