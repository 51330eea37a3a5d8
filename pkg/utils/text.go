// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize splits s into lowercased word tokens. Word characters are Unicode
// letters, digits, and underscore, so accented queries tokenize cleanly.
func Tokenize(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

// TokenSet returns the distinct lowercased tokens of s.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Tokenize(s) {
		set[w] = struct{}{}
	}
	return set
}
