// Package logging cleans runner console output before it is stored on a test.
package logging

import (
	"strings"

	"github.com/acarl005/stripansi"
)

// colourTokens are the fragments the runner leaves behind when its colour
// output is only partially disabled. The lone "-" strips the runner's
// separator dashes.
var colourTokens = []string{
	"[37;45m",
	"[2K",
	"[1m",
	"[0m",
	"[30;42m",
	"[37;41m",
	"[33m",
	"[36m",
	"[35;1m",
	"-",
}

var colourReplacer = newTokenReplacer(colourTokens)

func newTokenReplacer(tokens []string) *strings.Replacer {
	pairs := make([]string, 0, len(tokens)*2)
	for _, t := range tokens {
		pairs = append(pairs, t, "")
	}
	return strings.NewReplacer(pairs...)
}

// CleanLine removes complete ANSI escape sequences and the known colour
// token catalog from a single line of runner output.
func CleanLine(line string) string {
	return colourReplacer.Replace(stripANSIEscapeSequences(line))
}

// CleanLines applies CleanLine to every line, preserving order.
func CleanLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = CleanLine(l)
	}
	return out
}

func stripANSIEscapeSequences(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return stripansi.Strip(s)
}
