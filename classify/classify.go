// Package classify turns raw message text into an optional status label
// and an optional company guess. Every function is total: malformed input
// yields no inference, never an error.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// Rule maps a case-insensitive pattern to the status it implies.
type Rule struct {
	Pattern *regexp.Regexp
	Status  model.Status
}

// Rules are tried in order and the first match wins, so interview wording
// beats a rejection phrase in the same message.
var Rules = []Rule{
	{Pattern: regexp.MustCompile(`(?i)(shortlist|interview|convocation|entretien)`), Status: model.StatusInterview},
	{Pattern: regexp.MustCompile(`(?i)(offer|offre|congrats|félicitations)`), Status: model.StatusAccepted},
	{Pattern: regexp.MustCompile(`(?i)(reject|refus|unfortunately|regret)`), Status: model.StatusRejected},
	{Pattern: regexp.MustCompile(`(?i)(received|merci.*candidature|thank.*apply)`), Status: model.StatusPending},
}

var senderDomain = regexp.MustCompile(`@([A-Za-z0-9\-]+)\.(?:com|fr|io|net|org|co)`)

// InferStatus returns the status implied by the subject and body preview,
// and false when no rule matches.
func InferStatus(subject, preview string) (model.Status, bool) {
	text := subject + "\n" + preview
	for _, rule := range Rules {
		if rule.Pattern.MatchString(text) {
			return rule.Status, true
		}
	}
	return "", false
}

// InferCompany guesses the company from the sender domain label, falling
// back to the first capitalized word of the subject.
func InferCompany(sender, subject string) (string, bool) {
	if m := senderDomain.FindStringSubmatch(sender); m != nil {
		return capitalize(m[1]), true
	}
	return capitalizedWord(subject)
}

// capitalizedWord returns the first run of at least three ASCII letters or
// hyphens starting with an upper-case letter that stands as a whole word.
// Accented letters count as word characters, so "Société" yields nothing
// rather than "Soci".
func capitalizedWord(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] < 'A' || s[start] > 'Z' {
			continue
		}
		if prev, _ := utf8.DecodeLastRuneInString(s[:start]); start > 0 && isWordRune(prev) {
			continue
		}
		end := start + 1
		for end < len(s) && isNameByte(s[end]) {
			end++
		}
		for ; end-start >= 3; end-- {
			if wordBoundary(s, end) {
				return s[start:end], true
			}
		}
	}
	return "", false
}

func isNameByte(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b == '-'
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// wordBoundary reports whether s[:end] ends on a word boundary. The byte
// before end is always ASCII.
func wordBoundary(s string, end int) bool {
	nextIsWord := false
	if end < len(s) {
		next, _ := utf8.DecodeRuneInString(s[end:])
		nextIsWord = isWordRune(next)
	}
	return isWordRune(rune(s[end-1])) != nextIsWord
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
