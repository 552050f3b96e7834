// Package codegen draws random base62 short codes.
package codegen

import (
	"fmt"

	"github.com/rawen554/shortlinks/internal/utils"
)

const (
	DefaultLength = 7
	MinLength     = 6
	MaxLength     = 12
	// DefaultMaxAttempts bounds draws per create before the store gives up.
	DefaultMaxAttempts = 8
)

type Generator struct {
	length int
}

// New returns a generator of fixed-length codes. Length is clamped to MinLength..MaxLength,
// zero selects DefaultLength.
func New(length int) *Generator {
	switch {
	case length == 0:
		length = DefaultLength
	case length < MinLength:
		length = MinLength
	case length > MaxLength:
		length = MaxLength
	}
	return &Generator{length: length}
}

func (g *Generator) Length() int {
	return g.length
}

func (g *Generator) Generate() (string, error) {
	code, err := utils.GenerateRandomString(g.length)
	if err != nil {
		return "", fmt.Errorf("error generating short code: %w", err)
	}
	return code, nil
}
