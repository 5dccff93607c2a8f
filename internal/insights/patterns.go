// Package insights holds best-effort heuristics that sit beside the scoring
// engine: keyword pattern hints, time-of-day context and a fatigue model.
// None of them feed into priority scores.
package insights

import (
	"math"
	"regexp"
	"strings"

	"github.com/benvon/task-analyzer/internal/models"
)

var (
	highImportanceKeywords = []string{
		"critical", "urgent", "emergency", "asap", "important", "priority",
		"blocker", "blocking", "deadline", "must", "required", "essential",
		"production", "outage", "down", "broken", "fix", "bug", "security",
		"customer", "client", "ceo", "vp", "executive", "stakeholder",
	}
	lowImportanceKeywords = []string{
		"nice to have", "maybe", "someday", "future", "backlog", "low priority",
		"refactor", "cleanup", "documentation", "readme", "comment", "style",
		"formatting", "optimization", "enhancement", "improvement", "wish",
	}
	highEffortKeywords = []string{
		"rewrite", "redesign", "architecture", "migration", "infrastructure",
		"database", "integration", "api", "system", "framework", "platform",
		"major", "complete", "full", "entire", "overhaul", "rebuild",
	}
	lowEffortKeywords = []string{
		"quick", "simple", "easy", "minor", "small", "tiny", "typo", "tweak",
		"update", "change", "add", "remove", "fix typo", "rename", "move",
	}
)

type keywordSet struct {
	words    []string
	patterns []*regexp.Regexp
}

func newKeywordSet(words []string) keywordSet {
	ks := keywordSet{words: words, patterns: make([]*regexp.Regexp, len(words))}
	for i, w := range words {
		ks.patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return ks
}

// matches returns the keywords found in text, in list order.
func (ks keywordSet) matches(text string) []string {
	var found []string
	for i, re := range ks.patterns {
		if re.MatchString(text) {
			found = append(found, ks.words[i])
		}
	}
	return found
}

var (
	highImportance = newKeywordSet(highImportanceKeywords)
	lowImportance  = newKeywordSet(lowImportanceKeywords)
	highEffort     = newKeywordSet(highEffortKeywords)
	lowEffort      = newKeywordSet(lowEffortKeywords)
)

// DetectPatterns suggests an importance rating (1-5) and an effort estimate
// from keywords in a task's title and description. Matching is
// case-insensitive on whole words. Fields stay nil when nothing matched.
func DetectPatterns(title, description string) models.PatternHints {
	text := strings.ToLower(title + " " + description)
	hints := models.PatternHints{DetectedKeywords: []string{}}

	if found := highImportance.matches(text); len(found) > 0 {
		n := len(found)
		importance := min(3+n, 5)
		hints.SuggestedImportance = &importance
		hints.ImportanceConfidence = confidence(0.3+0.15*float64(n), 0.9)
		hints.DetectedKeywords = append(hints.DetectedKeywords, found...)
	} else if found := lowImportance.matches(text); len(found) > 0 {
		n := len(found)
		importance := max(2-n/2, 1)
		hints.SuggestedImportance = &importance
		hints.ImportanceConfidence = confidence(0.3+0.1*float64(n), 0.7)
		hints.DetectedKeywords = append(hints.DetectedKeywords, found...)
	}

	if found := highEffort.matches(text); len(found) > 0 {
		n := len(found)
		hours := 8 + 4*float64(n)
		hints.SuggestedEffortHours = &hours
		hints.EffortConfidence = confidence(0.3+0.1*float64(n), 0.7)
		hints.DetectedKeywords = append(hints.DetectedKeywords, found...)
	} else if found := lowEffort.matches(text); len(found) > 0 {
		n := len(found)
		hours := math.Max(1-0.25*float64(n), 0.5)
		hints.SuggestedEffortHours = &hours
		hints.EffortConfidence = confidence(0.3+0.1*float64(n), 0.7)
		hints.DetectedKeywords = append(hints.DetectedKeywords, found...)
	}

	return hints
}

// confidence caps c and rounds away float noise from the 0.1/0.15 steps.
func confidence(c, ceiling float64) float64 {
	return math.Round(math.Min(c, ceiling)*100) / 100
}
