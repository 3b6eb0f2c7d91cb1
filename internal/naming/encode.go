// Package naming normalizes declared field names into names the search index accepts.
package naming

import "regexp"

var nonWord = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Encode replaces every character outside [A-Za-z0-9_] with an underscore and then
// drops the leading run of non-letters, so the result starts with a letter.
// Encode is total: an input with no letters yields "".
func Encode(name string) string {
	s := nonWord.ReplaceAllString(name, "_")
	for i := 0; i < len(s); i++ {
		if isLetter(s[i]) {
			return s[i:]
		}
	}
	return ""
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
