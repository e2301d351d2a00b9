package textutil

import (
	"regexp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctuationRegex = regexp.MustCompile(`[.,#'"]`)

var suffixes = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"road":      "rd",
	"drive":     "dr",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"terrace":   "ter",
	"boulevard": "blvd",
	"highway":   "hwy",
	"parkway":   "pkwy",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
}

// NormalizeAddress reduces an address to a comparable form,
// "12 Main Street, Apt. 4" -> "12 main st apt 4".
func NormalizeAddress(address string) string {
	address = strings.ToLower(address)
	address = punctuationRegex.ReplaceAllString(address, " ")
	words := strings.Fields(whitespaceRegex.ReplaceAllString(address, " "))
	for i, w := range words {
		if short, ok := suffixes[w]; ok {
			words[i] = short
		}
	}
	return strings.Join(words, " ")
}

type Match struct {
	Value string
	Score float64
}

// RankAddresses scores every candidate against query by Jaro-Winkler
// similarity of their normalized forms, best first. Candidates scoring below
// minScore are dropped, limit <= 0 keeps every match.
func RankAddresses(query string, candidates []string, minScore float64, limit int) []Match {
	normalizedQuery := NormalizeAddress(query)

	var matches []Match
	for _, c := range candidates {
		normalized := NormalizeAddress(c)
		score := matchr.JaroWinkler(normalizedQuery, normalized, false)
		if strings.Contains(normalized, normalizedQuery) && normalizedQuery != "" {
			score = max(score, 0.95)
		}
		if score < minScore {
			continue
		}
		matches = append(matches, Match{Value: c, Score: score})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.Value, b.Value)
		}
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
