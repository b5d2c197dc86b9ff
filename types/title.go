package types

import "strings"

// SpacedFromCamelCase turns a CamelCase name into space separated words.
// Acronyms stay together when followed by a capitalised word, so
// "CheckAJAXWhenLogFails" becomes "Check AJAX When Log Fails".
func SpacedFromCamelCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)

	for i := 0; i < len(s); {
		if n := acronymAt(s, i); n > 0 {
			b.WriteByte(' ')
			b.WriteString(s[i : i+n])
			i += n
			continue
		}
		if i+1 < len(s) && isUpper(s[i]) && isLower(s[i+1]) {
			b.WriteByte(' ')
			b.WriteString(s[i : i+2])
			i += 2
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return strings.TrimSpace(b.String())
}

// acronymAt returns the length of a run of two or more capitals starting at
// i (never at the start of the string) that is directly followed by a
// capitalised word, or 0.
func acronymAt(s string, i int) int {
	if i == 0 || !isUpper(s[i]) {
		return 0
	}
	j := i
	for j < len(s) && isUpper(s[j]) {
		j++
	}
	// the last capital of the run starts the next word
	if j < len(s) && isLower(s[j]) && j-1-i >= 2 {
		return j - 1 - i
	}
	return 0
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
