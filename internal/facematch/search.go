package facematch

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"github.com/kozaktomas/face-graph/internal/constants"
)

// How a search result matched.
const (
	MatchPrefix   = "prefix"
	MatchInitials = "initials"
	MatchFuzzy    = "fuzzy"
)

// Candidate is a searchable person.
type Candidate struct {
	ID   int64
	Name string
}

// Match is a ranked search hit.
type Match struct {
	Candidate
	Score     int
	MatchedOn string
}

// Search ranks candidates against query in three tiers: name prefix, word
// initials (queries of two or more characters) and fuzzy similarity above
// constants.FuzzyMatchMinScore. A candidate appears once, in the first tier it
// matches. Equal scores keep candidate order.
func Search(candidates []Candidate, query string, limit int) []Match {
	q := NormalizePersonName(query)
	if q == "" || limit <= 0 {
		return nil
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = NormalizePersonName(c.Name)
	}

	var results []Match
	added := make(map[int64]bool)
	add := func(c Candidate, score int, how string) {
		if added[c.ID] {
			return
		}
		added[c.ID] = true
		results = append(results, Match{Candidate: c, Score: score, MatchedOn: how})
	}

	for i, c := range candidates {
		if len(names[i]) >= len(q) && names[i][:len(q)] == q {
			add(c, constants.PrefixMatchScore, MatchPrefix)
		}
	}

	if utf8.RuneCountInString(q) >= constants.MinInitialsQueryLength {
		qi := Initials(q)
		for i, c := range candidates {
			ni := Initials(names[i])
			if len(ni) >= len(qi) && ni[:len(qi)] == qi {
				add(c, constants.InitialsMatchScore, MatchInitials)
			}
		}
	}

	if len(results) < limit {
		type scored struct {
			idx   int
			score int
		}
		fuzzy := make([]scored, len(candidates))
		for i := range candidates {
			fuzzy[i] = scored{idx: i, score: WeightedRatio(q, names[i])}
		}
		slices.SortStableFunc(fuzzy, func(a, b scored) int { return cmp.Compare(b.score, a.score) })
		if len(fuzzy) > limit {
			fuzzy = fuzzy[:limit]
		}
		for _, f := range fuzzy {
			if f.score > constants.FuzzyMatchMinScore {
				add(candidates[f.idx], f.score, MatchFuzzy)
			}
		}
	}

	slices.SortStableFunc(results, func(a, b Match) int { return cmp.Compare(b.Score, a.Score) })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
