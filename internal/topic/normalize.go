package topic

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Stop tokens stripped during normalization. Kept short on purpose:
// over-stripping makes unrelated headlines collide.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "and": true, "or": true, "by": true,
	"with": true, "from": true, "is": true, "are": true, "was": true,
	"after": true, "over": true, "amid": true, "as": true, "its": true,
}

var reTags = regexp.MustCompile(`<[^>]*>`)

// Normalize lowercases a title, strips markup and punctuation, and drops
// stop tokens and tokens shorter than 3 runes. The result is the token set
// a signature is derived from, sorted so word order does not matter.
func Normalize(title string) []string {
	s := strings.ToLower(title)
	s = reTags.ReplaceAllString(s, " ")

	b := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b = append(b, r)
		} else {
			b = append(b, ' ')
		}
	}

	words := strings.Fields(string(b))
	seen := make(map[string]bool, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if stopWords[w] || len([]rune(w)) < 3 {
			continue
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}

	// A title made entirely of stop words still needs a stable identity.
	if len(tokens) == 0 {
		for _, w := range words {
			if !seen[w] {
				seen[w] = true
				tokens = append(tokens, w)
			}
		}
	}

	sort.Strings(tokens)
	return tokens
}

// Signature derives the stable dedup key for a title: sha1 of the sorted
// normalized token set, truncated to 16 hex characters.
func Signature(title string) string {
	tokens := Normalize(title)
	h := sha1.New()
	h.Write([]byte(strings.Join(tokens, " ")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Jaccard is the token-set overlap of two titles in [0,1]. Two empty
// titles count as identical.
func Jaccard(a, b string) float64 {
	ta := Normalize(a)
	tb := Normalize(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	inter := 0
	for _, t := range tb {
		if set[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}
