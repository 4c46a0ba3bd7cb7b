// Package router detects file and memory commands in user text before it
// reaches the language model. Matchers run in a fixed order and the first
// match wins.
package router

import (
	"regexp"
	"strings"
)

// Kind identifies a detected intent.
type Kind int

const (
	None Kind = iota
	ListFiles
	ReadFile
	SaveReply
	Reshare
	Delete
	Feedback
)

func (k Kind) String() string {
	switch k {
	case ListFiles:
		return "list_files"
	case ReadFile:
		return "read_file"
	case SaveReply:
		return "save_reply"
	case Reshare:
		return "reshare"
	case Delete:
		return "delete"
	case Feedback:
		return "feedback"
	default:
		return "none"
	}
}

// Intent is the result of detection. Name is the file the command refers
// to, Text the rule body for Feedback, and Bare marks the "delete <name>"
// form without a file extension.
type Intent struct {
	Kind  Kind
	Name  string
	Text  string
	Bare  bool
	Input string
}

// Matcher is one detection rule. lower is the lower-cased input, original
// the input as typed.
type Matcher struct {
	Kind  Kind
	Match func(lower, original string) (Intent, bool)
}

var (
	readPattern      = regexp.MustCompile(`(?i)(?:whats inside|what's inside|read|what is in).*?([\w-]+\.\w+)`)
	saveReplyPattern = regexp.MustCompile(`(?i)^(?:send|save|write)\s+(?:it|that|this)\s+(?:as|to|into|in)\s+([\w-]+\.\w+)`)
	resharePattern   = regexp.MustCompile(`(?i)(?:reshare|share|send me|send).*?([\w-]+\.\w+)`)
	deletePattern    = regexp.MustCompile(`(?i)delete.*?([\w-]+\.\w+)`)
	saveTextPattern  = regexp.MustCompile(`(?i)(?:send|write|save).*? ([\w-]+\.txt)`)
)

var listPhrases = []string{"how many files", "list files", "list my files", "show files"}

var feedbackPrefixes = []string{"feedback:", "rule:", "remember:", "/feedback "}

func patternMatcher(kind Kind, re *regexp.Regexp) Matcher {
	return Matcher{
		Kind: kind,
		Match: func(_, original string) (Intent, bool) {
			m := re.FindStringSubmatch(original)
			if m == nil {
				return Intent{}, false
			}
			return Intent{Kind: kind, Name: m[1]}, true
		},
	}
}

// DefaultMatchers returns the built-in rules in evaluation order.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{
			Kind: ListFiles,
			Match: func(lower, _ string) (Intent, bool) {
				for _, p := range listPhrases {
					if strings.Contains(lower, p) {
						return Intent{Kind: ListFiles}, true
					}
				}
				return Intent{}, false
			},
		},
		patternMatcher(ReadFile, readPattern),
		patternMatcher(SaveReply, saveReplyPattern),
		patternMatcher(Reshare, resharePattern),
		patternMatcher(Delete, deletePattern),
		{
			Kind: Delete,
			Match: func(lower, original string) (Intent, bool) {
				if !strings.HasPrefix(lower, "delete ") {
					return Intent{}, false
				}
				name := strings.TrimSpace(original[len("delete "):])
				if name == "" {
					return Intent{}, false
				}
				return Intent{Kind: Delete, Name: name, Bare: true}, true
			},
		},
		{
			Kind: Feedback,
			Match: func(_, original string) (Intent, bool) {
				for _, p := range feedbackPrefixes {
					if len(original) >= len(p) && strings.EqualFold(original[:len(p)], p) {
						return Intent{Kind: Feedback, Text: strings.TrimSpace(original[len(p):])}, true
					}
				}
				return Intent{}, false
			},
		},
	}
}

// Router runs an ordered matcher list.
type Router struct {
	matchers []Matcher
}

// New returns a Router over matchers, or over DefaultMatchers when none are
// given.
func New(matchers ...Matcher) *Router {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	return &Router{matchers: matchers}
}

// Detect returns the first matching intent, or an intent of Kind None.
func (r *Router) Detect(text string) Intent {
	return r.DetectWithout(text, None)
}

// DetectWithout is Detect with every matcher of kind skip left out. It is
// used to re-route text whose first intent could not be acted on.
func (r *Router) DetectWithout(text string, skip Kind) Intent {
	original := strings.TrimSpace(text)
	lower := strings.ToLower(original)
	for _, m := range r.matchers {
		if skip != None && m.Kind == skip {
			continue
		}
		if in, ok := m.Match(lower, original); ok {
			in.Input = text
			return in
		}
	}
	return Intent{Kind: None, Input: text}
}

var defaultRouter = New()

// Detect runs the default matchers.
func Detect(text string) Intent {
	return defaultRouter.Detect(text)
}

// SaveTarget reports the .txt file a request asks the generated reply to be
// written to, as in "write a poem and save it in poem.txt".
func SaveTarget(text string) (string, bool) {
	m := saveTextPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
