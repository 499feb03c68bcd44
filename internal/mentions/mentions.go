// Package mentions extracts @username tokens from free text. Parsing is
// pure and stateless; resolving usernames to tenant members is the
// caller's concern.
package mentions

import "regexp"

// mentionRegex matches an @ followed by one or more username characters.
// The scan is greedy and non-overlapping, so mentions can never overlap.
// An @ embedded in a longer token (e.g. an email address) still matches
// whatever follows it; no disambiguation is attempted.
var mentionRegex = regexp.MustCompile(`@([A-Za-z0-9_.\-]+)`)

// usernameRegex is the full-string form of the mention character class.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

const (
	// MinUsernameLength is the shortest username considered well formed.
	MinUsernameLength = 3
	// MaxUsernameLength is the longest username considered well formed.
	MaxUsernameLength = 30
)

// Mention is a single @username occurrence within the scanned text.
type Mention struct {
	Username    string `json:"username"`
	StartIndex  int    `json:"start_index"`
	EndIndex    int    `json:"end_index"`
	MatchedText string `json:"matched_text"`
}

// ParseMentions returns every @username occurrence in text, in order of
// appearance. Empty text yields an empty slice. A trailing @ with no
// following username character yields no match.
func ParseMentions(text string) []Mention {
	if text == "" {
		return nil
	}

	matches := mentionRegex.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	mentions := make([]Mention, 0, len(matches))
	for _, m := range matches {
		start, end := m[0], m[1]
		mentions = append(mentions, Mention{
			Username:    text[m[2]:m[3]],
			StartIndex:  start,
			EndIndex:    end,
			MatchedText: text[start:end],
		})
	}
	return mentions
}

// ExtractMentionedUsernames returns the distinct usernames mentioned in
// text, case-sensitive as typed, preserving first-occurrence order.
func ExtractMentionedUsernames(text string) []string {
	parsed := ParseMentions(text)
	if len(parsed) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(parsed))
	usernames := make([]string, 0, len(parsed))
	for _, m := range parsed {
		if _, dup := seen[m.Username]; dup {
			continue
		}
		seen[m.Username] = struct{}{}
		usernames = append(usernames, m.Username)
	}
	return usernames
}

// IsValidMentionFormat reports whether username is well formed: the
// mention character class only, with length between MinUsernameLength
// and MaxUsernameLength inclusive. Producers use this to screen handles
// before registration; the parser itself does not enforce it.
func IsValidMentionFormat(username string) bool {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return false
	}
	return usernameRegex.MatchString(username)
}
