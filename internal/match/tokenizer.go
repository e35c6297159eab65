package match

import (
	"strings"

	"github.com/go-ego/gse"
	"golang.org/x/text/unicode/norm"
)

// stopWords are generic tokens that carry no signal for textbook titles.
// One shared constant for every match path — title, course and search all
// filter against the same set.
var stopWords = map[string]struct{}{
	"的": {}, "了": {}, "和": {}, "是": {}, "在": {}, "有": {}, "我": {}, "也": {},
	"教材": {}, "教程": {}, "入门": {}, "书籍": {}, "课程": {}, "导论": {},
}

// Tokenizer segments mixed Chinese/Latin text into lower-cased tokens with
// stop words removed. Input is NFKC-normalized first so fullwidth digits
// and Latin compare equal to their halfwidth forms.
type Tokenizer struct {
	seg gse.Segmenter
}

// NewTokenizer loads the embedded Chinese dictionary. Loading is expensive;
// share one Tokenizer per process.
func NewTokenizer() (*Tokenizer, error) {
	t := &Tokenizer{}
	if err := t.seg.LoadDict(); err != nil {
		return nil, err
	}
	return t, nil
}

// Tokens segments s and removes stop words. An all-stop-word input yields
// an empty slice.
func (t *Tokenizer) Tokens(s string) []string {
	var out []string
	for _, w := range t.cut(s) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// RawTokens segments s without stop-word removal, for similarity vectors
// where frequency weighting already discounts common words.
func (t *Tokenizer) RawTokens(s string) []string {
	return t.cut(s)
}

func (t *Tokenizer) cut(s string) []string {
	s = norm.NFKC.String(s)
	var out []string
	for _, w := range t.seg.Cut(s, true) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

// containsEither reports whether a is a substring of b or b of a.
func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// TokensOverlap reports whether any token from one list contains, or is
// contained in, any token from the other. Empty lists never overlap.
func TokensOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if containsEither(x, y) {
				return true
			}
		}
	}
	return false
}

// KeywordHit reports whether any of the tokens occurs as a substring of
// field, case-insensitively. Used by the fuzzy field scan in search.
func KeywordHit(field string, tokens []string) bool {
	field = strings.ToLower(norm.NFKC.String(field))
	for _, tok := range tokens {
		if strings.Contains(field, tok) {
			return true
		}
	}
	return false
}
