/* names.go
 * Contains fuzzy matching of user typed names (teams, maps, pilots) against the known list
 */

package logic

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MatchName resolves input against valid names.
// Preconditions: receives the user's input and the list of valid names
// Postconditions: returns the matched name in its original casing and true, or "" and false if nothing matches
func MatchName(input string, valid []string) (string, bool) {
	lookup := make(map[string]string, len(valid))
	validLower := make([]string, 0, len(valid))
	for _, name := range valid {
		lower := strings.ToLower(name)
		lookup[lower] = name
		validLower = append(validLower, lower)
	}

	lowerInput := strings.ToLower(strings.TrimSpace(input))
	if lowerInput == "" {
		return "", false
	}
	if name, ok := lookup[lowerInput]; ok {
		return name, true
	}

	results := fuzzy.RankFind(lowerInput, validLower)
	if len(results) == 0 {
		return "", false
	}
	// lowest distance first
	best := results[0]
	for _, r := range results[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return lookup[best.Target], true
}

// MatchNames resolves each input, returning the matches and the inputs that did not match
func MatchNames(inputs []string, valid []string) ([]string, []string) {
	var matched, invalid []string
	for _, in := range inputs {
		name, ok := MatchName(in, valid)
		if !ok {
			invalid = append(invalid, in)
			continue
		}
		matched = append(matched, name)
	}
	return matched, invalid
}

// CleanQuotes strips the straight and curly double quotes discord clients insert around arguments
func CleanQuotes(s string) string {
	s = strings.ReplaceAll(s, "\"", "")
	s = strings.ReplaceAll(s, "“", "")
	s = strings.ReplaceAll(s, "”", "")
	return strings.TrimSpace(s)
}
