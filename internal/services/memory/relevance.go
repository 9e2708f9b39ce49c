package memory

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minQueryRunes = 12

var (
	genericIntent = regexp.MustCompile(`(?i)^\s*(explain|what\s+is\s+this|help|this|that)\b`)
	nonWord       = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the and or but if then else so of to in on at by for with about from into over under
		is am are was were be been being do does did done have has had having can could will would
		shall should may might must i me my mine you your yours he him his she her hers it its we us
		our ours they them their theirs this that these those what which who whom whose when where why
		how not no yes all any some just also too very more most much many than as up down out off
		again there here please tell said say told know`) {
		stopWords[w] = struct{}{}
	}
}

// ShouldSearch is the gate in front of the memory service. Short or generic
// prompts and turns with attachments never trigger a search.
func ShouldSearch(text string, hasAttachment bool) bool {
	if hasAttachment {
		return false
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minQueryRunes {
		return false
	}
	return !genericIntent.MatchString(text)
}

// Keywords lowercases text, splits on non-word runes and drops stop words.
func Keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range nonWord.Split(strings.ToLower(text), -1) {
		if tok == "" {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// FilterRelevant keeps snippets sharing at least one keyword with query, in
// their original order, up to limit.
func FilterRelevant(query string, snippets []Snippet, limit int) []Snippet {
	keys := Keywords(query)
	if len(keys) == 0 {
		return nil
	}
	kept := make([]Snippet, 0, limit)
	for _, s := range snippets {
		if len(kept) >= limit {
			break
		}
		for tok := range Keywords(s.Text) {
			if _, ok := keys[tok]; ok {
				kept = append(kept, s)
				break
			}
		}
	}
	return kept
}
