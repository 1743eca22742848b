// Package email holds address-shape helpers shared by the identity validator
// and the notification dispatcher. It deliberately knows nothing about
// deliverability; DNS and blacklist checks live with the validator.
package email

import (
	"strings"
	"unicode"
)

// Split breaks an address into local part and domain. ok is false when the
// address has no usable "@" separator.
func Split(address string) (local, domain string, ok bool) {
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return "", "", false
	}
	return address[:at], strings.ToLower(address[at+1:]), true
}

// LocalTokens splits a local part on the common separators used in
// human-chosen mailbox names.
func LocalTokens(local string) []string {
	return strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
}

// DeriveName guesses a first/last name pair from an address, for use in
// notification greetings only.
func DeriveName(address string) (string, string) {
	local := address
	if l, _, ok := Split(address); ok {
		local = l
	}

	parts := LocalTokens(local)
	if len(parts) == 0 {
		return "Reviewer", "Reviewer"
	}

	first := capitalize(parts[0])
	last := "Reviewer"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
