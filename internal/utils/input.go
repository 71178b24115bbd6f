package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// kanji digits and rank markers that count as numeric content for the
// sensitive-entry policy.
const kanjiNumerals = "〇一二三四五六七八九十百千万億兆京"

// ContainsDigits checks if a string contains any numeric content,
// covering halfwidth, fullwidth and kanji digits.
func ContainsDigits(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) || strings.ContainsRune(kanjiNumerals, r) {
			return true
		}
	}
	return false
}

// IsOnlyDigits checks if a string consists entirely of halfwidth digits
func IsOnlyDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsRepetitive checks if a string consists of one repeated rune
// (e.g., "あああ", "wwww"). Used to gate junk keys before lookup.
func IsRepetitive(s string) bool {
	if utf8.RuneCountInString(s) <= 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

// LooksSensitive reports whether a committed value looks like personal
// data that must stay out of zero-query suggestions: anything carrying
// digits (phone numbers, PINs, dates) or long runs of raw ASCII
// (addresses, identifiers typed in direct input).
func LooksSensitive(key, value string) bool {
	if ContainsDigits(key) || ContainsDigits(value) {
		return true
	}
	asciiRun := 0
	for _, r := range value {
		if r < utf8.RuneSelf && !unicode.IsSpace(r) {
			asciiRun++
			if asciiRun >= 8 {
				return true
			}
		} else {
			asciiRun = 0
		}
	}
	return false
}

// ValidKey checks if a key should be processed for lookups at all.
// Empty keys are handled separately by the zero-query path.
func ValidKey(s string, maxRunes int) bool {
	if s == "" {
		return false
	}
	n := utf8.RuneCountInString(s)
	if n > maxRunes {
		return false
	}
	if IsRepetitive(s) && n > 4 {
		return false
	}
	return true
}

// TrimKey normalizes raw client input: surrounding whitespace is never
// part of a reading.
func TrimKey(s string) string {
	return strings.TrimSpace(s)
}
