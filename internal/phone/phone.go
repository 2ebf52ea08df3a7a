// Package phone validates and normalizes Kenyan mobile numbers for the
// mobile-money gateway, which expects the 254XXXXXXXXX form.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalid indicates the input is not a recognizable Kenyan mobile number.
var ErrInvalid = errors.New("invalid phone number")

// Accepted inputs: optional +254/254/0 prefix, then 7 and eight more digits.
var pattern = regexp.MustCompile(`^(?:\+?254|0)?(7[0-9]{8})$`)

// Normalize strips separators, validates the number and returns it in
// 254XXXXXXXXX form. Normalizing an already-normalized number is a no-op.
func Normalize(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	m := pattern.FindStringSubmatch(cleaned)
	if m == nil {
		return "", ErrInvalid
	}
	return "254" + m[1], nil
}

// Valid reports whether raw would normalize successfully.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
