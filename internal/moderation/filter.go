// Package moderation screens chat messages for spam-like content. A flagged
// message is not delivered; the sender collects a strike through the normal
// strike flow instead.
package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

// FilterResult describes the outcome of a content check.
type FilterResult struct {
	Blocked bool
	Reason  string // machine-readable reason ("url", "char_flood", ...)
}

// Filter applies the spam checks. It holds no state and is safe for
// concurrent use.
type Filter struct{}

// NewFilter creates a Filter.
func NewFilter() *Filter {
	return &Filter{}
}

// urlPattern matches http/https URLs and www.-prefixed hosts. Bare domains
// are deliberately not matched to avoid false positives on things like
// version strings.
var urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+)`)

// Check runs every spam check against text; the first match wins.
func (f *Filter) Check(text string) FilterResult {
	switch {
	case urlPattern.MatchString(text):
		return FilterResult{Blocked: true, Reason: "url"}
	case hasCharFlood(text, 6):
		return FilterResult{Blocked: true, Reason: "char_flood"}
	case hasWordFlood(text, 4):
		return FilterResult{Blocked: true, Reason: "word_flood"}
	case isShouting(text):
		return FilterResult{Blocked: true, Reason: "shouting"}
	}
	return FilterResult{}
}

// hasCharFlood reports whether text contains threshold or more consecutive
// identical characters. RE2 has no backreferences, so this is a linear scan.
func hasCharFlood(text string, threshold int) bool {
	run := 0
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			run++
			if run >= threshold {
				return true
			}
		} else {
			run = 1
			prev = r
		}
	}
	return false
}

// hasWordFlood reports whether the same word repeats threshold or more times
// in a row, case-insensitively.
func hasWordFlood(text string, threshold int) bool {
	run := 0
	prev := ""
	for _, w := range strings.Fields(text) {
		lower := strings.ToLower(w)
		if lower == prev {
			run++
			if run >= threshold {
				return true
			}
		} else {
			run = 1
			prev = lower
		}
	}
	return false
}

// isShouting reports whether a message of meaningful length is written almost
// entirely in upper case. Short messages are exempt so "OK" and "LOL" pass.
func isShouting(text string) bool {
	const minLetters = 12

	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < minLetters {
		return false
	}
	return upper*10 >= letters*9 // >= 90% upper case
}
