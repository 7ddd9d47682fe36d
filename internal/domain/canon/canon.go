// Package canon derives grouping keys for assignment titles.
package canon

import "strings"

// Key is the canonical identity of an assignment title. It is used only
// for grouping attempts and is never shown to operators.
type Key string

var dashes = strings.NewReplacer("–", "-", "—", "-")

// levelTags are the cohort prefixes tutors put in front of titles.
var levelTags = map[string]struct{}{
	"a1": {}, "a2": {},
	"b1": {}, "b2": {},
	"c1": {}, "c2": {},
}

// Of canonicalizes an assignment title so that "A1 Essay – 1" and
// "essay - 1" group together.
//
// Whitespace is any Unicode space. Leading level tags are stripped while
// something follows them, so "A1 B1 hw" and "hw" share a key and Of is
// idempotent.
func Of(title string) Key {
	x := strings.ToLower(strings.TrimSpace(title))
	x = dashes.Replace(x)

	words := strings.Fields(x)
	for len(words) > 1 {
		if _, ok := levelTags[words[0]]; !ok {
			break
		}
		words = words[1:]
	}
	return Key(strings.Join(words, " "))
}
