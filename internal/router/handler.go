package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/adapter"
	"github.com/memvra/docbot/internal/conversation"
	"github.com/memvra/docbot/internal/files"
)

// SavedReplyText is returned when a reply has been written to a file.
const SavedReplyText = "I generated the content. Sending it over!"

// ExistsText is the reply when a generated reply would replace an existing
// artifact.
func ExistsText(name string) string {
	return fmt.Sprintf("`%s` already exists, so I left it untouched. Pick another name to save this reply.", name)
}

// FeedbackText acknowledges a new rule.
const FeedbackText = "Got it. I'll remember that going forward."

// Response is what a handled intent produces. Attachment is the path of a
// file to send back with the text, if any.
type Response struct {
	Kind       Kind
	Text       string
	Attachment string
	Err        error
}

// RecordDeleter removes every memory record stored for a source.
type RecordDeleter interface {
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// RuleAppender stores a behavioral rule.
type RuleAppender interface {
	Append(rule string) error
}

// Handler executes detected intents against the managed directory, long-term
// memory and the rule store.
type Handler struct {
	Files  *files.Dir
	Memory RecordDeleter
	Rules  RuleAppender
	Logger *zap.Logger
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// Handle runs the intent. It returns false when the intent could not be
// acted on: Kind None, or SaveReply with no earlier reply. Callers re-route
// the latter without the SaveReply matcher.
func (h *Handler) Handle(ctx context.Context, sess *conversation.Session, in Intent) (Response, bool) {
	switch in.Kind {
	case ListFiles:
		return h.listFiles(), true
	case ReadFile:
		return h.readFile(in.Name), true
	case SaveReply:
		return h.saveReply(sess, in)
	case Reshare:
		return h.reshare(in.Name), true
	case Delete:
		res := h.Delete(ctx, in.Name)
		return Response{Kind: Delete, Text: res.Message(), Err: res.Err()}, true
	case Feedback:
		return h.feedback(in.Text), true
	}
	return Response{}, false
}

func (h *Handler) listFiles() Response {
	names, err := h.Files.List()
	if err != nil {
		return Response{Kind: ListFiles, Text: fmt.Sprintf("I couldn't list my folder: %v", err), Err: err}
	}
	if len(names) == 0 {
		return Response{Kind: ListFiles, Text: "I currently have 0 files."}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I have %d files in my directory:", len(names))
	for i, name := range names {
		fmt.Fprintf(&b, "\n%d. `%s`", i+1, name)
	}
	return Response{Kind: ListFiles, Text: b.String()}
}

func corruptText(name string) string {
	return fmt.Sprintf("`%s` appears to be corrupt (0 bytes), so I removed it.", name)
}

func (h *Handler) readFile(name string) Response {
	name = h.Files.Resolve(name)
	if !files.IsText(name) {
		_, err := h.Files.Path(name)
		switch {
		case errors.Is(err, files.ErrCorrupt):
			return Response{Kind: ReadFile, Text: corruptText(name)}
		case err != nil:
			return Response{Kind: ReadFile, Text: fmt.Sprintf("I couldn't find `%s` in my folder.", name)}
		}
		return Response{Kind: ReadFile, Text: fmt.Sprintf("`%s` is not a text file. If you want it, ask me to 'send' it instead.", name)}
	}

	content, err := h.Files.ReadText(name)
	switch {
	case errors.Is(err, files.ErrCorrupt):
		return Response{Kind: ReadFile, Text: corruptText(name)}
	case errors.Is(err, files.ErrNotFound), errors.Is(err, files.ErrInvalidName):
		return Response{Kind: ReadFile, Text: fmt.Sprintf("I couldn't find `%s` in my folder.", name)}
	case err != nil:
		return Response{Kind: ReadFile, Text: fmt.Sprintf("I couldn't read `%s`: %v", name, err), Err: err}
	}
	return Response{Kind: ReadFile, Text: fmt.Sprintf("Contents of `%s`:\n\n%s", name, content)}
}

func (h *Handler) reshare(name string) Response {
	name = h.Files.Resolve(name)
	path, err := h.Files.Path(name)
	switch {
	case errors.Is(err, files.ErrCorrupt):
		return Response{Kind: Reshare, Text: corruptText(name)}
	case err != nil:
		return Response{Kind: Reshare, Text: fmt.Sprintf("I couldn't find `%s` in my folder to send.", name)}
	}
	return Response{Kind: Reshare, Text: "Here is the file you requested: " + name, Attachment: path}
}

func (h *Handler) saveReply(sess *conversation.Session, in Intent) (Response, bool) {
	if sess == nil {
		return Response{}, false
	}
	last, ok := sess.LastAssistant()
	if !ok {
		return Response{}, false
	}
	path, err := h.Files.CreateText(in.Name, last)
	if errors.Is(err, files.ErrExists) {
		return Response{Kind: SaveReply, Text: ExistsText(in.Name)}, true
	}
	if err != nil {
		return Response{Kind: SaveReply, Text: fmt.Sprintf("I couldn't save `%s`: %v", in.Name, err), Err: err}, true
	}
	sess.Append(
		conversation.Turn{Role: adapter.RoleUser, Content: in.Input},
		conversation.Turn{Role: adapter.RoleAssistant, Content: SavedReplyText},
	)
	return Response{Kind: SaveReply, Text: SavedReplyText, Attachment: path}, true
}

func (h *Handler) feedback(text string) Response {
	if h.Rules == nil || text == "" {
		return Response{Kind: Feedback, Text: FeedbackText}
	}
	if err := h.Rules.Append(text); err != nil {
		h.logger().Warn("store rule", zap.Error(err))
		return Response{Kind: Feedback, Text: FeedbackText, Err: err}
	}
	return Response{Kind: Feedback, Text: FeedbackText}
}

// DeleteResult reports both halves of a delete. The file and the records
// are removed independently, so either side may succeed alone.
type DeleteResult struct {
	Name           string
	FileRemoved    bool
	RecordsRemoved int
	FileErr        error
	RecordsErr     error
}

// Found reports whether anything was removed.
func (r DeleteResult) Found() bool {
	return r.FileRemoved || r.RecordsRemoved > 0
}

// Err joins the errors from both halves.
func (r DeleteResult) Err() error {
	return errors.Join(r.FileErr, r.RecordsErr)
}

// Message renders the result for the user.
func (r DeleteResult) Message() string {
	switch {
	case r.Found() && r.FileErr == nil && r.RecordsErr == nil:
		return fmt.Sprintf("Successfully deleted `%s` from disk and AI memory.", r.Name)
	case r.FileRemoved && r.RecordsErr != nil:
		return fmt.Sprintf("Deleted `%s` from disk, but its AI memory could not be cleared: %v", r.Name, r.RecordsErr)
	case r.RecordsRemoved > 0 && r.FileErr != nil:
		return fmt.Sprintf("Removed `%s` from AI memory, but the file could not be deleted: %v", r.Name, r.FileErr)
	case r.Err() != nil:
		return fmt.Sprintf("Could not delete `%s`: %v", r.Name, r.Err())
	default:
		return fmt.Sprintf("Could not find `%s` to delete.", r.Name)
	}
}

// Delete removes the artifact and every memory record for name. Both
// removals are always attempted.
func (h *Handler) Delete(ctx context.Context, name string) DeleteResult {
	name = h.Files.Resolve(name)
	res := DeleteResult{Name: name}

	if files.ValidateName(name) == nil {
		res.FileRemoved, res.FileErr = h.Files.Remove(name)
	}
	if h.Memory != nil {
		res.RecordsRemoved, res.RecordsErr = h.Memory.DeleteBySource(ctx, name)
	}

	if err := res.Err(); err != nil {
		h.logger().Warn("delete incomplete",
			zap.String("name", name),
			zap.Bool("file_removed", res.FileRemoved),
			zap.Int("records_removed", res.RecordsRemoved),
			zap.Error(err))
	}
	return res
}
