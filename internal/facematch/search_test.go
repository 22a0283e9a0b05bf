package facematch

import "testing"

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 100},
		{"abc", "abc", 100},
		{"abc", "xyz", 0},
		{"kitten", "sitting", 62},
		{"jane", "mark", 25},
		{"anna", "emma", 25},
		{"jan novak", "jan novakova", 86},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := Ratio(tt.a, tt.b); got != tt.want {
				t.Errorf("Ratio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPartialRatio(t *testing.T) {
	if got := PartialRatio("smith", "alice smith"); got != 100 {
		t.Errorf("expected exact window match, got %d", got)
	}
	if got := PartialRatio("", "abc"); got != 0 {
		t.Errorf("expected 0 for empty string, got %d", got)
	}
}

func TestTokenSortRatio(t *testing.T) {
	if got := TokenSortRatio("smith alice", "alice smith"); got != 100 {
		t.Errorf("expected word order to be ignored, got %d", got)
	}
}

func TestWeightedRatio(t *testing.T) {
	if got := WeightedRatio("", "abc"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := WeightedRatio("alice smith", "alice smith"); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
	if got := WeightedRatio("smith", "alice smith"); got != 90 {
		t.Errorf("expected scaled partial 90, got %d", got)
	}
}

func names(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestSearch_PrefixTiesKeepOrder(t *testing.T) {
	people := []Candidate{{ID: 1, Name: "Alice Smith"}, {ID: 2, Name: "Al Smithson"}}

	got := Search(people, "al", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %+v", got)
	}
	for i, want := range []string{"Alice Smith", "Al Smithson"} {
		if got[i].Name != want || got[i].Score != 100 || got[i].MatchedOn != MatchPrefix {
			t.Errorf("result %d: expected prefix match %q, got %+v", i, want, got[i])
		}
	}
}

func TestSearch_Tiers(t *testing.T) {
	people := []Candidate{
		{ID: 1, Name: "Jan Novák"},
		{ID: 2, Name: "Josef Nemec"},
		{ID: 3, Name: "Petr Svoboda"},
		{ID: 4, Name: "Novák Jan"},
	}

	tests := []struct {
		name  string
		query string
		limit int
		want  []Match
	}{
		{
			name:  "prefix with diacritics folded",
			query: "jan nov",
			limit: 10,
			want:  []Match{{Candidate: people[0], Score: 100, MatchedOn: MatchPrefix}},
		},
		{
			name:  "initials",
			query: "j n",
			limit: 1,
			want:  []Match{{Candidate: people[0], Score: 90, MatchedOn: MatchInitials}},
		},
		{
			name:  "fuzzy",
			query: "betr svoboda",
			limit: 10,
			want:  []Match{{Candidate: people[2], Score: 92, MatchedOn: MatchFuzzy}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Search(people, tt.query, tt.limit)
			if len(got) < len(tt.want) {
				t.Fatalf("expected at least %d results, got %v", len(tt.want), names(got))
			}
			for i, w := range tt.want {
				if got[i] != w {
					t.Errorf("result %d: expected %+v, got %+v", i, w, got[i])
				}
			}
			if len(got) > tt.limit {
				t.Errorf("limit %d exceeded: %d results", tt.limit, len(got))
			}
		})
	}
}

func TestSearch_DeduplicatesAcrossTiers(t *testing.T) {
	people := []Candidate{{ID: 1, Name: "Jan Novak"}}
	got := Search(people, "jan", 10)
	if len(got) != 1 || got[0].MatchedOn != MatchPrefix {
		t.Errorf("expected a single prefix match, got %+v", got)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	if got := Search([]Candidate{{ID: 1, Name: "A"}}, "   ", 10); got != nil {
		t.Errorf("expected no results, got %+v", got)
	}
}

func TestSearch_FuzzyThreshold(t *testing.T) {
	got := Search([]Candidate{{ID: 1, Name: "Zdenek Zeman"}}, "qq", 10)
	if len(got) != 0 {
		t.Errorf("unrelated names must not match, got %+v", got)
	}
}

func TestSearch_FuzzyRejectsSameLengthStrangers(t *testing.T) {
	people := []Candidate{{ID: 1, Name: "Mark"}, {ID: 2, Name: "Emma"}}

	for _, query := range []string{"jane", "anna"} {
		if got := Search(people, query, 10); len(got) != 0 {
			t.Errorf("query %q: expected no matches, got %+v", query, got)
		}
	}
}

func TestSearch_FuzzyTypo(t *testing.T) {
	got := Search([]Candidate{{ID: 1, Name: "Mark"}, {ID: 2, Name: "Emma"}}, "nark", 10)
	if len(got) != 1 || got[0].Name != "Mark" || got[0].Score != 75 || got[0].MatchedOn != MatchFuzzy {
		t.Errorf("expected a single fuzzy hit on Mark, got %+v", got)
	}
}
