// Package question converts attribute names to yes/no question text and
// parses player-written questions back into attribute names.
//
// Three templates are recognised:
//
//	IsX   <-> "Is it x?"
//	CanX  <-> "Can it x?"
//	HasX  <-> "Does it have x?"
package question

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

type template struct {
	prefix string // attribute name prefix
	text   string // question lead-in, lower case, with trailing space
}

var templates = []template{
	{prefix: "Is", text: "is it "},
	{prefix: "Can", text: "can it "},
	{prefix: "Has", text: "does it have "},
}

// Format renders an attribute name as a question. Names that do not start
// with a known prefix followed by an upper-case letter are returned as
// "<words>?".
func Format(attribute string) string {
	for _, tp := range templates {
		rest, ok := strings.CutPrefix(attribute, tp.prefix)
		if !ok || rest == "" || !unicode.IsUpper(firstRune(rest)) {
			continue
		}
		lead := strings.ToUpper(tp.text[:1]) + tp.text[1:]
		return lead + strings.Join(splitWords(rest), " ") + "?"
	}
	words := splitWords(attribute)
	if len(words) == 0 {
		return "?"
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ") + "?"
}

// Parse turns question text into an attribute name: "Is it found in
// Africa?" becomes "IsFoundInAfrica". Case, surrounding whitespace and
// trailing question marks are ignored. Text matching no template returns
// ErrMalformedQuestion.
func Parse(text string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(text))
	q = strings.TrimSpace(strings.TrimRight(q, "?"))
	for _, tp := range templates {
		rest, ok := strings.CutPrefix(q, tp.text)
		if !ok {
			continue
		}
		name := pascal(rest)
		if name == "" {
			break
		}
		return tp.prefix + name, nil
	}
	return "", fmt.Errorf("%q: %w", text, types.ErrMalformedQuestion)
}

// pascal joins the alphanumeric words of s with each word capitalised.
func pascal(s string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		runes := []rune(word)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}

// splitWords breaks a PascalCase name into lower-case words.
func splitWords(name string) []string {
	var words []string
	var cur []rune
	for _, r := range name {
		if unicode.IsUpper(r) && len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, strings.ToLower(string(cur)))
	}
	return words
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
