// Package recommend orders the homepage item feed for a viewer using
// two signals: overlap between item metadata and the viewer's class
// schedule, and text similarity between items and the viewer's standing
// needs. With neither signal the feed is shuffled.
package recommend

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/racktic/bookmarket/internal/match"
	"github.com/racktic/bookmarket/pkg/models"
)

type Ranker struct {
	tok *match.Tokenizer
}

func NewRanker(tok *match.Tokenizer) *Ranker {
	return &Ranker{tok: tok}
}

// Rank returns the items reordered for the viewer. Items whose course,
// teacher or author shows up in the schedule come first in scan order;
// the rest follow sorted by summed need similarity. Items that repeat
// the same feature tuple keep only their first occurrence. Without a
// schedule or needs the order is random.
func (r *Ranker) Rank(items []models.Item, schedule []models.ClassEntry, needs []models.Need) []models.Item {
	if len(schedule) == 0 && len(needs) == 0 {
		out := make([]models.Item, len(items))
		copy(out, items)
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	terms := scheduleTerms(schedule)
	var head, tail []models.Item
	for _, it := range items {
		if r.scheduleHit(it, terms) {
			head = append(head, it)
		} else {
			tail = append(tail, it)
		}
	}

	if len(needs) > 0 {
		scores := make([]float64, len(tail))
		needTexts := make([]string, len(needs))
		for i, n := range needs {
			needTexts[i] = featureText(n.Title, n.Meta)
		}
		for i, it := range tail {
			itemText := featureText(it.Title, it.Meta)
			for _, nt := range needTexts {
				scores[i] += r.cosine(itemText, nt)
			}
		}
		// Sort a permutation so the comparator reads scores by the
		// items' original positions.
		idx := make([]int, len(tail))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })
		ordered := make([]models.Item, 0, len(head)+len(tail))
		ordered = append(ordered, head...)
		for _, i := range idx {
			ordered = append(ordered, tail[i])
		}
		return dedupeByFeature(ordered)
	}
	return dedupeByFeature(append(head, tail...))
}

func scheduleTerms(schedule []models.ClassEntry) map[string]struct{} {
	terms := make(map[string]struct{}, len(schedule)*2)
	for _, e := range schedule {
		if e.Course != "" {
			terms[e.Course] = struct{}{}
		}
		if e.Teacher != "" {
			terms[e.Teacher] = struct{}{}
		}
	}
	return terms
}

func (r *Ranker) scheduleHit(it models.Item, terms map[string]struct{}) bool {
	for _, field := range []string{it.Meta.Course, it.Meta.Teacher, it.Meta.Author} {
		if field == "" {
			continue
		}
		if _, ok := terms[field]; ok {
			return true
		}
	}
	return false
}

func featureText(title string, m models.MetaInfo) string {
	return strings.Join([]string{title, m.Author, m.Course, m.Teacher, m.Description}, " ")
}

func featureKey(title string, m models.MetaInfo) string {
	return strings.Join([]string{title, m.Author, m.Course, m.Teacher, m.Description}, "\x00")
}

func dedupeByFeature(items []models.Item) []models.Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		key := featureKey(it.Title, it.Meta)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// cosine computes the TF-IDF cosine similarity of two texts over their
// two-document corpus, with the smoothed inverse document frequency
// ln((1+n)/(1+df)) + 1.
func (r *Ranker) cosine(a, b string) float64 {
	ta := termCounts(r.tok.RawTokens(a))
	tb := termCounts(r.tok.RawTokens(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	vocab := make([]string, 0, len(ta)+len(tb))
	for term := range ta {
		vocab = append(vocab, term)
	}
	for term := range tb {
		if _, dup := ta[term]; !dup {
			vocab = append(vocab, term)
		}
	}

	va := make([]float64, len(vocab))
	vb := make([]float64, len(vocab))
	for i, term := range vocab {
		df := 0.0
		if ta[term] > 0 {
			df++
		}
		if tb[term] > 0 {
			df++
		}
		idf := math.Log(3/(1+df)) + 1
		va[i] = float64(ta[term]) * idf
		vb[i] = float64(tb[term]) * idf
	}

	na := floats.Norm(va, 2)
	nb := floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	floats.Scale(1/na, va)
	floats.Scale(1/nb, vb)
	return floats.Dot(va, vb)
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}
