// Package fuzzy scores the similarity of two short strings on a 0-100 scale
// and picks the best candidate from a pool of canonical names.
//
// The score is a weighted blend of plain, partial, token-sort and token-set
// ratios. Case, punctuation and word order differences score high, so
// "cars" matches "Cars" and "york new" matches "New York".
package fuzzy

import (
	"math"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultThreshold is the minimum score for two names to be treated as the
// same entity.
const DefaultThreshold = 85

const (
	unbaseScale       = 0.95
	partialScale      = 0.90
	longPartialScale  = 0.6
	partialLenRatio   = 1.5
	longLenRatioLimit = 8

	latin1First = 0x80
	latin1Last  = 0xFF
)

// Process normalizes a string for scoring. Latin-1 supplement runes
// (U+0080 to U+00FF) are dropped first, then the rest is lower-cased, every
// rune that is not a letter, number or underscore becomes a space and outer
// whitespace is trimmed. Subscripts and Greek letters are kept, so "NO₂"
// and "N₂O" stay different names.
func Process(s string) string {
	s = strings.Map(func(r rune) rune {
		if r >= latin1First && r <= latin1Last {
			return -1
		}
		return r
	}, s)
	lowered := cases.Lower(language.Und).String(s)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_' {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// intr rounds half to even.
func intr(f float64) int {
	return int(math.RoundToEven(f))
}

// Ratio is 2*LCS/(len(a)+len(b)) scaled to 0-100. Equal strings score 100,
// otherwise an empty side scores 0.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	return intr(100 * 2 * float64(edlib.LCS(a, b)) / float64(la+lb))
}

// PartialRatio is the best Ratio of the shorter string against every window
// of the same length in the longer one.
func PartialRatio(a, b string) int {
	if a == b {
		return 100
	}
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	shortStr := string(short)
	best := 0
	for start := 0; start+len(short) <= len(long); start++ {
		score := Ratio(shortStr, string(long[start:start+len(short)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

func tokenSort(a, b string, partial, process bool) int {
	if process {
		a, b = Process(a), Process(b)
	}
	sa, sb := sortedTokens(a), sortedTokens(b)
	if partial {
		return PartialRatio(sa, sb)
	}
	return Ratio(sa, sb)
}

func tokenSet(a, b string, partial, process bool) int {
	if process {
		a, b = Process(a), Process(b)
	}
	if a == "" || b == "" {
		return 0
	}

	tokensA, tokensB := tokenSetOf(a), tokenSetOf(b)
	var sect, onlyA, onlyB []string
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			sect = append(sect, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tokensB {
		if _, ok := tokensA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	slices.Sort(sect)
	slices.Sort(onlyA)
	slices.Sort(onlyB)

	sortedSect := strings.Join(sect, " ")
	combinedAB := strings.TrimSpace(sortedSect + " " + strings.Join(onlyA, " "))
	combinedBA := strings.TrimSpace(sortedSect + " " + strings.Join(onlyB, " "))

	ratio := Ratio
	if partial {
		ratio = PartialRatio
	}
	return max(
		ratio(sortedSect, combinedAB),
		ratio(sortedSect, combinedBA),
		ratio(combinedAB, combinedBA),
	)
}

func tokenSetOf(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[tok] = struct{}{}
	}
	return out
}

// TokenSortRatio compares the processed strings after sorting their words.
func TokenSortRatio(a, b string) int {
	return tokenSort(a, b, false, true)
}

// TokenSetRatio compares the shared words of both strings against each
// side's remaining words, which ignores duplicated and extra words.
func TokenSetRatio(a, b string) int {
	return tokenSet(a, b, false, true)
}

// Score is the weighted ratio used for entity matching. Strings of similar
// length are compared whole and by tokens; when one is at least 1.5 times
// longer, partial (substring) comparisons are used with reduced weight.
func Score(a, b string) int {
	pa, pb := Process(a), Process(b)
	if pa == "" || pb == "" {
		return 0
	}

	base := float64(Ratio(pa, pb))
	la, lb := float64(utf8.RuneCountInString(pa)), float64(utf8.RuneCountInString(pb))
	lenRatio := max(la, lb) / min(la, lb)

	if lenRatio < partialLenRatio {
		tsor := float64(tokenSort(pa, pb, false, false)) * unbaseScale
		tser := float64(tokenSet(pa, pb, false, false)) * unbaseScale
		return intr(max(base, tsor, tser))
	}

	scale := partialScale
	if lenRatio > longLenRatioLimit {
		scale = longPartialScale
	}
	partial := float64(PartialRatio(pa, pb)) * scale
	ptsor := float64(tokenSort(pa, pb, true, false)) * unbaseScale * scale
	ptser := float64(tokenSet(pa, pb, true, false)) * unbaseScale * scale
	return intr(max(base, partial, ptsor, ptser))
}

// ExtractOne returns the pool member with the highest Score against
// candidate, its score and its index. The first member wins ties. An empty
// pool returns index -1.
func ExtractOne(candidate string, pool []string) (string, int, int) {
	bestIdx, bestScore := -1, -1
	for i, choice := range pool {
		score := Score(candidate, choice)
		if score > bestScore {
			bestIdx, bestScore = i, score
			if score == 100 {
				break
			}
		}
	}
	if bestIdx < 0 {
		return "", 0, -1
	}
	return pool[bestIdx], bestScore, bestIdx
}

// Match returns the best pool member for candidate when its score reaches
// threshold. It reports false for an empty pool or when every score is
// below threshold.
func Match(candidate string, pool []string, threshold int) (string, bool) {
	best, score, idx := ExtractOne(candidate, pool)
	if idx < 0 || score < threshold {
		return "", false
	}
	return best, true
}
