package facematch

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Ratio is the share of matched characters, 2*M/T on a 0-100 scale, where M
// is the longest common subsequence and T the combined length. A substitution
// costs a deletion plus an insertion, so strings with nothing in common score 0.
func Ratio(a, b string) int {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	matched := edlib.LCS(a, b)
	return int(math.Round(100 * float64(2*matched) / float64(total)))
}

// PartialRatio is the best Ratio of the shorter string against every window
// of the longer one with the same length.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}

	best := 0
	s := string(short)
	for start := 0; start+len(short) <= len(long); start++ {
		best = max(best, Ratio(s, string(long[start:start+len(short)])))
		if best == 100 {
			break
		}
	}
	return best
}

func sortedTokens(s string) string {
	words := strings.Fields(s)
	slices.Sort(words)
	return strings.Join(words, " ")
}

// TokenSortRatio compares the strings with their words sorted.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// WeightedRatio combines the plain, partial and token-sorted ratios, trusting
// partial matches less as the length difference grows.
func WeightedRatio(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}

	base := float64(Ratio(a, b))
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	if lenRatio < 1.5 {
		return int(math.Round(max(base, float64(TokenSortRatio(a, b))*0.95)))
	}

	scale := 0.9
	if lenRatio >= 8 {
		scale = 0.6
	}
	partial := float64(PartialRatio(a, b)) * scale
	partialSorted := float64(PartialRatio(sortedTokens(a), sortedTokens(b))) * scale * 0.95
	return int(math.Round(max(base, partial, partialSorted)))
}
