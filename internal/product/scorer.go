package product

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Scorer rates how similar a query is to a candidate name on a 0-100 scale.
type Scorer interface {
	Score(query, candidate string) int
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(query, candidate string) int

func (f ScorerFunc) Score(query, candidate string) int { return f(query, candidate) }

// WeightedRatio is the default Scorer. It takes the best of a plain edit
// distance ratio, a sliding partial ratio and token sort/set ratios, scaling
// the partial and token variants down so that exact matches still win.
var WeightedRatio = ScorerFunc(weightedRatio)

const (
	tokenScale      = 0.95
	partialScale    = 0.90
	farPartialScale = 0.60
)

func weightedRatio(a, b string) int {
	a, b = process(a), process(b)
	if a == "" || b == "" {
		return 0
	}

	base := float64(ratio(a, b))
	la, lb := runeLen(a), runeLen(b)
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	if lenRatio < 1.5 {
		best := base
		best = math.Max(best, float64(tokenSortRatio(a, b, false))*tokenScale)
		best = math.Max(best, float64(tokenSetRatio(a, b, false))*tokenScale)
		return int(math.Round(best))
	}

	scale := partialScale
	if lenRatio > 8 {
		scale = farPartialScale
	}
	best := base
	best = math.Max(best, float64(partialRatio(a, b))*scale)
	best = math.Max(best, float64(tokenSortRatio(a, b, true))*tokenScale*scale)
	best = math.Max(best, float64(tokenSetRatio(a, b, true))*tokenScale*scale)
	return int(math.Round(best))
}

// ratio is the normalized Levenshtein similarity of a and b.
func ratio(a, b string) int {
	la, lb := runeLen(a), runeLen(b)
	if la == 0 || lb == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(d)/float64(max(la, lb)))))
}

// partialRatio is the best ratio between the shorter string and any window of
// the same length in the longer one.
func partialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		r := ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func tokenSortRatio(a, b string, partial bool) int {
	sa, sb := sortedTokens(a), sortedTokens(b)
	if partial {
		return partialRatio(sa, sb)
	}
	return ratio(sa, sb)
}

func tokenSetRatio(a, b string, partial bool) int {
	ta, tb := tokenSet(a), tokenSet(b)
	var inter, onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(inter, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	score := ratio
	if partial {
		score = partialRatio
	}
	return max(score(sect, combinedA), score(sect, combinedB), score(combinedA, combinedB))
}

// process lower-cases s and replaces anything but letters and digits with
// single spaces.
func process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

func sortedTokens(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[tok] = struct{}{}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
