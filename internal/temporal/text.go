package temporal

// #region imports
import (
	"fmt"
	"strings"
	"unicode"
)

// #endregion

// #region lexicons

// positiveWords and negativeWords cover the vocabulary reviewers actually
// use for rendered pages. Matched per token, lowercase.
var positiveWords = map[string]bool{
	"clean": true, "clear": true, "balanced": true, "consistent": true,
	"polished": true, "smooth": true, "legible": true, "readable": true,
	"aligned": true, "cohesive": true, "intuitive": true, "responsive": true,
	"crisp": true, "elegant": true, "pleasant": true, "works": true,
	"working": true, "correct": true, "good": true, "great": true,
	"improved": true, "better": true, "fixed": true, "stable": true,
}

var negativeWords = map[string]bool{
	"broken": true, "cluttered": true, "misaligned": true, "overlapping": true,
	"illegible": true, "unreadable": true, "confusing": true, "inconsistent": true,
	"janky": true, "slow": true, "laggy": true, "cramped": true,
	"garish": true, "jarring": true, "wrong": true, "bad": true,
	"worse": true, "missing": true, "regressed": true, "clipped": true,
	"truncated": true, "overflowing": true, "unbalanced": true, "distracting": true,
}

// stopwords contains common English words excluded from topic matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "not": true, "no": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"than": true, "so": true, "as": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "into": true, "of": true,
	"on": true, "to": true, "with": true, "about": true, "up": true,
	"out": true, "it": true, "its": true, "this": true, "that": true,
	"there": true, "here": true, "now": true, "still": true, "very": true,
	"looks": true, "seems": true, "feels": true, "appears": true,
}

// #endregion

// #region consistency

// Penalties applied per adjacent window pair. A sentiment reversal is a
// conflict; a complete topic change just erodes consistency.
const (
	contradictionPenalty = 0.3
	topicShiftPenalty    = 0.1

	// polarityStrong is the |polarity| above which a window's narrative
	// counts as decidedly positive or negative.
	polarityStrong = 0.3
)

// observationConsistency scans adjacent window pairs for contradictory or
// disconnected narratives. Starts at 1.0 and only decreases; pairs where
// either side has no usable text are skipped, so score-only streams stay
// at 1.0.
func observationConsistency(windows []Window) (float64, []Conflict) {
	score := 1.0
	var conflicts []Conflict

	for i := 0; i+1 < len(windows); i++ {
		ta := tokenizeObs(windows[i].Observations)
		tb := tokenizeObs(windows[i+1].Observations)
		if len(ta) == 0 || len(tb) == 0 {
			continue
		}

		pa, aOK := polarity(windows[i].Observations)
		pb, bOK := polarity(windows[i+1].Observations)
		if aOK && bOK && opposed(pa, pb) {
			score -= contradictionPenalty
			conflicts = append(conflicts, Conflict{
				WindowA: i,
				WindowB: i + 1,
				Reason: fmt.Sprintf("sentiment reversal between %dms and %dms",
					windows[i].Start, windows[i+1].Start),
			})
			continue
		}

		if len(ta) >= 3 && len(tb) >= 3 && sharedTokens(ta, tb) == 0 {
			score -= topicShiftPenalty
		}
	}

	return clamp01(score), conflicts
}

func opposed(pa, pb float64) bool {
	return (pa > polarityStrong && pb < -polarityStrong) ||
		(pa < -polarityStrong && pb > polarityStrong)
}

// #endregion

// #region tokenize

// tokenizeObs splits text into unique lowercase non-stopword tokens.
func tokenizeObs(text string) []string {
	words := splitWords(text)
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// polarity scores text in [-1, 1] from sentiment word counts. The second
// return is false when no sentiment word was found.
func polarity(text string) (float64, bool) {
	var pos, neg int
	for _, w := range splitWords(text) {
		if positiveWords[w] {
			pos++
		} else if negativeWords[w] {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0, false
	}
	return float64(pos-neg) / float64(total), true
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// sharedTokens returns the count of tokens present in both slices.
func sharedTokens(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	count := 0
	for _, t := range b {
		if set[t] {
			count++
		}
	}
	return count
}

// #endregion
