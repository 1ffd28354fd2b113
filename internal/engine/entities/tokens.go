package entities

import (
	"regexp"
	"strings"
)

var (
	wordPattern  = regexp.MustCompile(`[a-z0-9]+`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Token is one lowercase word with its byte offsets in the lowered text.
type Token struct {
	Text  string
	Stem  string
	Start int
	End   int
}

// Normalize lowercases and collapses whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(strings.ToLower(s), " "))
}

// Tokenize splits text into word tokens. Offsets refer to strings.ToLower(text).
func Tokenize(text string) []Token {
	lower := strings.ToLower(text)
	idx := wordPattern.FindAllStringIndex(lower, -1)
	tokens := make([]Token, 0, len(idx))
	for _, loc := range idx {
		word := lower[loc[0]:loc[1]]
		tokens = append(tokens, Token{
			Text:  word,
			Stem:  Stem(word),
			Start: loc[0],
			End:   loc[1],
		})
	}
	return tokens
}

// Stem folds simple English plurals so "expenses" matches "expense".
func Stem(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 4 && strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s") &&
		!strings.HasSuffix(word, "ss") && !strings.HasSuffix(word, "us") && !strings.HasSuffix(word, "is"):
		return word[:len(word)-1]
	}
	return word
}

func stems(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Stem
	}
	return out
}

// ContainsWord reports whether phrase occurs in text on word boundaries, comparing stems.
func ContainsWord(text, phrase string) bool {
	return IndexWords(Tokenize(text), phrase) >= 0
}

// IndexWords returns the token index where phrase starts, or -1.
func IndexWords(tokens []Token, phrase string) int {
	want := stems(Tokenize(phrase))
	if len(want) == 0 {
		return -1
	}
	have := stems(tokens)
	for i := 0; i+len(want) <= len(have); i++ {
		match := true
		for j := range want {
			if have[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
