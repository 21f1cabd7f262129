// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Matches any run of whitespace, including tabs and newlines.
var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeTagName converts user input to the display form of a tag name.
// Unlike a slug, case and punctuation are kept: "Work" and "work" are
// different names.
//
// Normalization rules:
//  1. Compose Unicode to NFC, so "é" typed two ways compares equal
//  2. Drop control characters
//  3. Collapse whitespace runs to a single space
//  4. Trim leading/trailing whitespace
//
// Examples:
//
//	"  Travel  "      → "Travel"
//	"Road\t\tTrip"    → "Road Trip"
//	"Cafe\u0301"     → "Caf\u00e9"
func NormalizeTagName(input string) string {
	// 1. Compose
	s := norm.NFC.String(input)

	// 2. Strip control characters (tabs and newlines become spaces first)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	// 3. Collapse whitespace
	s = whitespaceRe.ReplaceAllString(s, " ")

	// 4. Trim
	return strings.TrimSpace(s)
}

// SameTagName reports whether two raw names normalize to the same display
// name.
func SameTagName(a, b string) bool {
	return NormalizeTagName(a) == NormalizeTagName(b)
}
