// Package match decides whether a listed item satisfies a standing need.
// Titles and course names compare softly (word segmentation + bidirectional
// token containment); teacher and author compare exactly.
package match

import "github.com/racktic/bookmarket/pkg/models"

// Engine evaluates the item/need match predicate. The predicate is
// symmetric in its two sides: swapping which record plays the item role
// and which the need role yields the same result.
type Engine struct {
	tok *Tokenizer
}

// NewEngine builds an Engine with a freshly loaded tokenizer.
func NewEngine() (*Engine, error) {
	tok, err := NewTokenizer()
	if err != nil {
		return nil, err
	}
	return &Engine{tok: tok}, nil
}

// NewEngineWith wraps an existing shared tokenizer.
func NewEngineWith(tok *Tokenizer) *Engine {
	return &Engine{tok: tok}
}

// Tokenizer exposes the engine's tokenizer for callers that segment search
// keywords or similarity texts with the same rules.
func (e *Engine) Tokenizer() *Tokenizer {
	return e.tok
}

// Matches reports whether item and need refer to the same book.
// Requires BOTH a soft title match and a metadata match (exact teacher,
// exact author, or soft course). Price eligibility and ownership checks
// are the caller's pre-filter, not part of the predicate.
func (e *Engine) Matches(item *models.Item, need *models.Need) bool {
	return e.titleMatch(item.Title, need.Title) && e.metaMatch(item.Meta, need.Meta)
}

func (e *Engine) titleMatch(itemTitle, needTitle string) bool {
	if itemTitle == "" || needTitle == "" {
		return false
	}
	return TokensOverlap(e.tok.Tokens(itemTitle), e.tok.Tokens(needTitle))
}

func (e *Engine) metaMatch(item, need models.MetaInfo) bool {
	if teacherMatch(item.Teacher, need.Teacher) {
		return true
	}
	if authorMatch(item.Author, need.Author) {
		return true
	}
	return e.courseMatch(item.Course, need.Course)
}

// teacherMatch and authorMatch are hard matches: exact equality, both
// sides present.
func teacherMatch(a, b string) bool {
	return a != "" && b != "" && a == b
}

func authorMatch(a, b string) bool {
	return a != "" && b != "" && a == b
}

// courseMatch is a soft match over segmented course names, with the same
// stop-word set as titles.
func (e *Engine) courseMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return TokensOverlap(e.tok.Tokens(a), e.tok.Tokens(b))
}

// PriceOverlap reports whether two closed price ranges intersect.
// Touching bounds count as overlap.
func PriceOverlap(aLower, aUpper, bLower, bUpper float64) bool {
	return aLower <= bUpper && aUpper >= bLower
}
