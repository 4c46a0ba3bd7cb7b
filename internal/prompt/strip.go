package prompt

import (
	"regexp"
	"strings"
)

var controlTags = regexp.MustCompile(`<\|[^|>]*\|>|\[/?INST\]|</?s>|<(?:start|end)_of_turn>`)

// StripControlTags removes chat-template markers some local models echo
// into their output, then trims the result.
func StripControlTags(reply string) string {
	return strings.TrimSpace(controlTags.ReplaceAllString(reply, ""))
}
