package heuristic

// #region imports
import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// #endregion

// #region markers

var uncertaintyMarkers = []string{
	"i don't know",
	"i cannot",
}

var apologyMarkers = []string{
	"error",
	"sorry",
}

// #endregion

// #region score

// Score rates a response against its prompt without calling any model.
// The result is deterministic for identical inputs.
func Score(prompt, response, category string) Result {
	lower := strings.ToLower(response)
	words := strings.Fields(response)

	criteria := map[Criterion]float64{
		CriterionAccuracy:     clip(scoreAccuracy(response, lower)),
		CriterionCompleteness: clip(scoreCompleteness(len(words))),
		CriterionClarity:      clip(scoreClarity(response)),
		CriterionRelevance:    clip(scoreRelevance(prompt, words)),
		CriterionFormatting:   clip(scoreFormatting(response)),
	}

	var weighted float64
	for _, r := range Rubric {
		weighted += criteria[r.Criterion] * r.Weight
	}
	overall := clip(weighted)

	return Result{
		Overall:   overall,
		Criteria:  criteria,
		Passed:    overall >= PassMark,
		Notes:     notes(len(words), criteria),
		WordCount: len(words),
		Category:  category,
	}
}

// #endregion

// #region criteria

// scoreAccuracy starts at 0.7; only the first matching check changes it.
func scoreAccuracy(response, lower string) float64 {
	switch {
	case utf8.RuneCountInString(response) < 10:
		return 0.3
	case containsAny(lower, uncertaintyMarkers):
		return 0.5
	case containsAny(lower, apologyMarkers):
		return 0.6
	}
	return 0.7
}

func scoreCompleteness(wordCount int) float64 {
	switch {
	case wordCount < 10:
		return 0.4
	case wordCount < 50:
		return 0.6
	case wordCount < 200:
		return 0.8
	}
	return 0.85
}

func scoreClarity(response string) float64 {
	score := 0.7
	if strings.Contains(response, "\n") {
		score += 0.1
	}
	if strings.Count(response, ".") >= 3 {
		score += 0.05
	}
	return min(score, 1.0)
}

// scoreRelevance measures how many distinct prompt keywords (longer than
// three characters) reappear in the response.
func scoreRelevance(prompt string, responseWords []string) float64 {
	keywords := make(map[string]struct{})
	for _, w := range strings.Fields(prompt) {
		if utf8.RuneCountInString(w) > 3 {
			keywords[strings.ToLower(w)] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(responseWords))
	for _, w := range responseWords {
		seen[strings.ToLower(w)] = struct{}{}
	}

	overlap := 0
	for k := range keywords {
		if _, ok := seen[k]; ok {
			overlap++
		}
	}
	return min(float64(overlap)/float64(max(len(keywords), 1))*0.8+0.2, 1.0)
}

func scoreFormatting(response string) float64 {
	score := 0.5
	if strings.HasSuffix(response, ".") || strings.HasSuffix(response, "!") || strings.HasSuffix(response, "?") {
		score += 0.3
	}
	if first, _ := utf8.DecodeRuneInString(response); first != utf8.RuneError && unicode.IsUpper(first) {
		score += 0.2
	}
	return score
}

// #endregion

// #region helpers

func notes(wordCount int, c map[Criterion]float64) string {
	return fmt.Sprintf(
		"Response length: %d words. Accuracy: %.2f, Completeness: %.2f, Clarity: %.2f, Relevance: %.2f, Formatting: %.2f",
		wordCount,
		c[CriterionAccuracy], c[CriterionCompleteness], c[CriterionClarity],
		c[CriterionRelevance], c[CriterionFormatting],
	)
}

func clip(v float64) float64 {
	return max(0, min(v, 1.0))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// #endregion
