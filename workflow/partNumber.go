package workflow

import "strings"

// FixPartNumberDirection repairs part numbers whose run order was reversed
// by bidirectional-text extraction (RTL documents embedding LTR part
// numbers). The string is split into maximal runs of ASCII letters and
// non-letters; the order of the runs is reversed while characters inside
// each run keep their order. Strings containing no ASCII letters carry no
// directional information and are returned unchanged.
//
// For strings with embedded whitespace, the whitespace-separated words are
// reversed first (whitespace runs travel with the reversal), then each word
// is fixed independently. The transform is an involution: applying it twice
// returns the original input.
func FixPartNumberDirection(s string) string {
	if !strings.ContainsFunc(s, isASCIILetter) {
		// no directional information to fix
		return s
	}

	tokens := splitRuns(s, isSpace)
	if len(tokens) > 1 {
		reversed := make([]string, 0, len(tokens))
		for i := len(tokens) - 1; i >= 0; i-- {
			tok := tokens[i]
			if !isSpace(rune(tok[0])) {
				tok = reverseLetterRuns(tok)
			}
			reversed = append(reversed, tok)
		}
		return strings.Join(reversed, "")
	}
	return reverseLetterRuns(s)
}

func reverseLetterRuns(word string) string {
	if !strings.ContainsFunc(word, isASCIILetter) {
		return word
	}
	runs := splitRuns(word, isASCIILetter)
	var b strings.Builder
	b.Grow(len(word))
	for i := len(runs) - 1; i >= 0; i-- {
		b.WriteString(runs[i])
	}
	return b.String()
}

// splitRuns cuts s into maximal runs whose bytes all agree on pred.
func splitRuns(s string, pred func(rune) bool) []string {
	var runs []string
	start := 0
	runes := []rune(s)
	for i := 1; i <= len(runes); i++ {
		if i == len(runes) || pred(runes[i]) != pred(runes[start]) {
			runs = append(runs, string(runes[start:i]))
			start = i
		}
	}
	return runs
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
