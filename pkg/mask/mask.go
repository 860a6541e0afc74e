// Package mask redacts sensitive words from text before it reaches a log.
package mask

import "strings"

// Token replaces every masked occurrence.
const Token = "********"

// Rule rewrites Old to New inside a sensitive word before it is matched.
type Rule struct {
	Old string
	New string
}

// ShellQuoteRules rewrites single quotes the way they appear inside a
// single-quoted shell argument, so a secret passed as '...' is still found.
var ShellQuoteRules = []Rule{{Old: "'", New: `'\''`}}

// String returns unmasked with every occurrence of each word replaced by
// Token. Each word is rewritten by rules, in order, before matching.
// Empty words are ignored.
func String(unmasked string, words []string, rules []Rule) string {
	masked := unmasked
	for _, word := range words {
		if word == "" {
			continue
		}
		for _, r := range rules {
			word = strings.ReplaceAll(word, r.Old, r.New)
		}
		masked = strings.ReplaceAll(masked, word, Token)
	}
	return masked
}

// Masker holds a mask set for the duration of one call.
type Masker struct {
	Words []string
	Rules []Rule
}

// New returns a Masker for words using rules.
func New(words []string, rules ...Rule) Masker {
	return Masker{Words: words, Rules: rules}
}

// Mask masks s. The rewritten form of each word is replaced first; when the
// rewrite changed the word, its raw form is replaced as well.
func (m Masker) Mask(s string) string {
	s = String(s, m.Words, m.Rules)
	if len(m.Rules) > 0 {
		s = String(s, m.Words, nil)
	}
	return s
}

// Lines masks each line and joins the results with newlines.
func (m Masker) Lines(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = m.Mask(l)
	}
	return strings.Join(out, "\n")
}

// Empty reports whether the masker has no words to hide.
func (m Masker) Empty() bool {
	for _, w := range m.Words {
		if w != "" {
			return false
		}
	}
	return true
}
