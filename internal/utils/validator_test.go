package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "https", url: "https://example.com/a?b=c"},
		{name: "http with port", url: "http://localhost:8080/x"},
		{name: "empty", url: "", want: ErrEmptyURL},
		{name: "no scheme", url: "example.com", want: ErrInvalidURL},
		{name: "ftp", url: "ftp://example.com", want: ErrInvalidScheme},
		{name: "javascript", url: "javascript:alert(1)", want: ErrInvalidScheme},
		{name: "no host", url: "http:///path", want: ErrEmptyHost},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", MaxURLLength), want: ErrURLTooLong},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		name  string
		alias string
		want  error
	}{
		{name: "plain", alias: "my-link"},
		{name: "underscore", alias: "my_link_2"},
		{name: "too short", alias: "ab", want: ErrAliasTooShort},
		{name: "too long", alias: strings.Repeat("a", MaxAliasLength+1), want: ErrAliasTooLong},
		{name: "leading dash", alias: "-abc", want: ErrAliasFormat},
		{name: "trailing underscore", alias: "abc_", want: ErrAliasFormat},
		{name: "slash", alias: "a/b/c", want: ErrAliasFormat},
		{name: "unicode", alias: "ссылка", want: ErrAliasFormat},
		{name: "number", alias: "12345", want: ErrAliasPureNumber},
		{name: "reserved", alias: "auth", want: ErrAliasReserved},
		{name: "reserved any case", alias: "Admin", want: ErrAliasReserved},
		{name: "reserved url route", alias: "History", want: ErrAliasReserved},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAlias(tt.alias)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Alice@Example.COM ")
	assert.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)

	for _, bad := range []string{"", "alice", "alice@", "Alice <alice@example.com>", "alice@localhost"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("long-enough"))
}
