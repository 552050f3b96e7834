package utils

import (
	"errors"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

const (
	MaxURLLength   = 2048
	MinAliasLength = 3
	// MaxAliasLength stays below the 36 characters of a UUID so link ids and aliases never collide.
	MaxAliasLength    = 30
	MinPasswordLength = 8
)

var (
	ErrEmptyURL        = errors.New("URL cannot be empty")
	ErrURLTooLong      = errors.New("URL is too long")
	ErrInvalidURL      = errors.New("invalid URL format")
	ErrInvalidScheme   = errors.New("URL scheme must be http or https")
	ErrEmptyHost       = errors.New("URL host cannot be empty")
	ErrAliasTooShort   = errors.New("alias is too short")
	ErrAliasTooLong    = errors.New("alias is too long")
	ErrAliasFormat     = errors.New("alias may contain letters, digits, '-' and '_' and must start and end with a letter or digit")
	ErrAliasPureNumber = errors.New("alias cannot be a number")
	ErrAliasReserved   = errors.New("alias is reserved")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
)

var (
	aliasRe      = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_-]*[A-Za-z0-9])?$`)
	pureNumberRe = regexp.MustCompile(`^[0-9]+$`)
)

// reserved words collide with routes mounted next to /:shortCode and /url/:code.
var reserved = map[string]struct{}{
	"api": {}, "auth": {}, "url": {}, "ping": {}, "health": {}, "debug": {}, "history": {},
	"admin": {}, "login": {}, "logout": {}, "signin": {}, "signup": {},
	"static": {}, "favicon.ico": {}, "robots.txt": {},
}

// ValidateURL checks an absolute http(s) destination.
func ValidateURL(raw string) error {
	if raw == "" {
		return ErrEmptyURL
	}
	if len(raw) > MaxURLLength {
		return ErrURLTooLong
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidScheme
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return ErrEmptyHost
	}
	return nil
}

func ValidateAlias(alias string) error {
	if len(alias) < MinAliasLength {
		return ErrAliasTooShort
	}
	if len(alias) > MaxAliasLength {
		return ErrAliasTooLong
	}
	if !aliasRe.MatchString(alias) {
		return ErrAliasFormat
	}
	if pureNumberRe.MatchString(alias) {
		return ErrAliasPureNumber
	}
	if IsReserved(alias) {
		return ErrAliasReserved
	}
	return nil
}

func IsReserved(alias string) bool {
	_, ok := reserved[strings.ToLower(alias)]
	return ok
}

// NormalizeEmail lower-cases and trims an address, rejecting anything net/mail can't parse
// or that carries a display name.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
