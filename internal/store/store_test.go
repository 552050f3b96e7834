package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	limit, offset := Page(1, 10)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 0, offset)

	limit, offset = Page(3, 5)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 10, offset)
}
