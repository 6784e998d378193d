package sheets

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	minFuzzyWordLen  = 4
	maxFuzzyDistance = 0.3
)

// Normalize lower-cases, strips diacritics and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// FuzzyMatch reports whether query approximately names target. It favors
// recall: callers offer a disambiguation step when several targets match.
func FuzzyMatch(query, target string) bool {
	q := Normalize(query)
	t := Normalize(target)
	if q == "" || t == "" {
		return false
	}

	if q == t || strings.Contains(t, q) {
		return true
	}

	if Singular(q) == Singular(t) || strings.Contains(singularWords(t), singularWords(q)) {
		return true
	}

	qWords := strings.Fields(q)
	if len(qWords) > 1 {
		tSingular := singularWords(t)
		all := true
		for _, w := range qWords {
			if !strings.Contains(t, w) && !strings.Contains(tSingular, Singular(w)) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	if len(qWords) == 1 && len([]rune(q)) >= minFuzzyWordLen {
		limit := int(float64(len([]rune(q))) * maxFuzzyDistance)
		for _, w := range strings.Fields(t) {
			if Levenshtein(Singular(q), Singular(w)) <= limit {
				return true
			}
		}
	}

	return false
}

// Singular strips a trailing Spanish plural ending ("es" or "s").
func Singular(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "es") && !isVowel(rune(word[len(word)-3])):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	default:
		return word
	}
}

func singularWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = Singular(w)
	}
	return strings.Join(words, " ")
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiou", r)
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
