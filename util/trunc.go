package util

import "unicode/utf8"

// TruncateRightWithSuffix keeps the first n runes of text and only appends the suffix if truncation happens.
//
// The suffix counts towards n so that the result never exceeds n runes unless the suffix alone does.
func TruncateRightWithSuffix(text string, n int, suffix string) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}

	keep := n - utf8.RuneCountInString(suffix)
	if keep <= 0 {
		return suffix
	}

	rs := make([]rune, 0, n)
	for _, r := range text {
		if len(rs) == keep {
			break
		}

		rs = append(rs, r)
	}

	return string(rs) + suffix
}
