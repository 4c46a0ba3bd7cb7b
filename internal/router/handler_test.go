package router

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memvra/docbot/internal/adapter"
	"github.com/memvra/docbot/internal/conversation"
	"github.com/memvra/docbot/internal/files"
)

type fakeMemory struct {
	bySource map[string]int
	err      error
	calls    []string
}

func (f *fakeMemory) DeleteBySource(_ context.Context, source string) (int, error) {
	f.calls = append(f.calls, source)
	if f.err != nil {
		return 0, f.err
	}
	n := f.bySource[source]
	delete(f.bySource, source)
	return n, nil
}

type fakeRules struct {
	rules []string
}

func (f *fakeRules) Append(rule string) error {
	f.rules = append(f.rules, rule)
	return nil
}

func newHandler(t *testing.T) (*Handler, string, *fakeMemory, *fakeRules) {
	t.Helper()
	root := t.TempDir()
	mem := &fakeMemory{bySource: map[string]int{}}
	rules := &fakeRules{}
	return &Handler{Files: files.New(root), Memory: mem, Rules: rules}, root, mem, rules
}

func put(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
}

func handle(t *testing.T, h *Handler, sess *conversation.Session, input string) Response {
	t.Helper()
	resp, ok := h.Handle(context.Background(), sess, Detect(input))
	require.True(t, ok, "expected %q to be handled", input)
	return resp
}

func TestHandle_ListFiles(t *testing.T) {
	h, root, _, _ := newHandler(t)

	assert.Equal(t, "I currently have 0 files.", handle(t, h, nil, "how many files").Text)

	put(t, root, "b.txt", "b")
	put(t, root, "a.pdf", "a")
	put(t, root, "broken.txt", "")
	resp := handle(t, h, nil, "list files")
	assert.Equal(t, "I have 2 files in my directory:\n1. `a.pdf`\n2. `b.txt`", resp.Text)
	assert.FileExists(t, filepath.Join(root, "broken.txt"))
}

func TestHandle_ReadFile(t *testing.T) {
	h, root, _, _ := newHandler(t)
	put(t, root, "notes.txt", "hello world")
	put(t, root, "photo.jpg", "pixels")
	put(t, root, "empty.md", "")

	assert.Equal(t, "Contents of `notes.txt`:\n\nhello world", handle(t, h, nil, "what's inside notes.txt").Text)
	assert.Equal(t, "`photo.jpg` is not a text file. If you want it, ask me to 'send' it instead.",
		handle(t, h, nil, "read photo.jpg").Text)
	assert.Equal(t, "I couldn't find `ghost.txt` in my folder.", handle(t, h, nil, "read ghost.txt").Text)

	assert.Equal(t, "`empty.md` appears to be corrupt (0 bytes), so I removed it.", handle(t, h, nil, "read empty.md").Text)
	assert.NoFileExists(t, filepath.Join(root, "empty.md"))
}

func TestHandle_ReadFileCaseInsensitive(t *testing.T) {
	h, root, _, _ := newHandler(t)
	put(t, root, "Notes.TXT", "upper")

	assert.Equal(t, "Contents of `Notes.TXT`:\n\nupper", handle(t, h, nil, "read notes.txt").Text)
}

func TestHandle_Reshare(t *testing.T) {
	h, root, _, _ := newHandler(t)
	put(t, root, "invoice.jpg", "pixels")
	put(t, root, "zero.pdf", "")

	resp := handle(t, h, nil, "send me invoice.jpg")
	assert.Equal(t, "Here is the file you requested: invoice.jpg", resp.Text)
	assert.Equal(t, filepath.Join(root, "invoice.jpg"), resp.Attachment)

	resp = handle(t, h, nil, "share missing.pdf")
	assert.Equal(t, "I couldn't find `missing.pdf` in my folder to send.", resp.Text)
	assert.Empty(t, resp.Attachment)

	resp = handle(t, h, nil, "share zero.pdf")
	assert.Contains(t, resp.Text, "corrupt")
	assert.Empty(t, resp.Attachment)
	assert.NoFileExists(t, filepath.Join(root, "zero.pdf"))
}

func TestHandle_Delete(t *testing.T) {
	h, root, mem, _ := newHandler(t)
	put(t, root, "notes.txt", "hello world")
	mem.bySource["notes.txt"] = 1

	resp := handle(t, h, nil, "delete notes.txt")
	assert.Equal(t, "Successfully deleted `notes.txt` from disk and AI memory.", resp.Text)
	assert.NoError(t, resp.Err)
	assert.NoFileExists(t, filepath.Join(root, "notes.txt"))
	assert.Equal(t, []string{"notes.txt"}, mem.calls)

	resp = handle(t, h, nil, "delete notes.txt")
	assert.Equal(t, "Could not find `notes.txt` to delete.", resp.Text)
}

func TestHandle_DeleteRecordsOnly(t *testing.T) {
	h, _, mem, _ := newHandler(t)
	mem.bySource["old.pdf"] = 3

	resp := handle(t, h, nil, "delete old.pdf")
	assert.Equal(t, "Successfully deleted `old.pdf` from disk and AI memory.", resp.Text)
}

func TestHandle_DeleteBare(t *testing.T) {
	h, _, mem, _ := newHandler(t)
	mem.bySource["meeting notes"] = 2

	resp := handle(t, h, nil, "delete meeting notes")
	assert.Equal(t, Delete, resp.Kind)
	assert.Equal(t, "Successfully deleted `meeting notes` from disk and AI memory.", resp.Text)
}

func TestHandle_DeletePartial(t *testing.T) {
	h, root, mem, _ := newHandler(t)
	put(t, root, "notes.txt", "x")
	mem.err = errors.New("database is locked")

	res := h.Delete(context.Background(), "notes.txt")
	assert.True(t, res.FileRemoved)
	assert.Error(t, res.RecordsErr)
	assert.Contains(t, res.Message(), "Deleted `notes.txt` from disk, but its AI memory could not be cleared")
	assert.ErrorContains(t, res.Err(), "database is locked")
}

func TestDeleteResult_Message(t *testing.T) {
	fileErr := errors.New("permission denied")
	assert.Contains(t, DeleteResult{Name: "a.txt", RecordsRemoved: 2, FileErr: fileErr}.Message(),
		"Removed `a.txt` from AI memory, but the file could not be deleted")
	assert.Equal(t, "Could not delete `a.txt`: permission denied",
		DeleteResult{Name: "a.txt", FileErr: fileErr}.Message())
	assert.Equal(t, "Could not find `a.txt` to delete.", DeleteResult{Name: "a.txt"}.Message())
}

func TestHandle_Feedback(t *testing.T) {
	h, _, _, rules := newHandler(t)

	resp := handle(t, h, nil, "feedback: never use emoji")
	assert.Equal(t, FeedbackText, resp.Text)
	assert.Equal(t, []string{"never use emoji"}, rules.rules)
}

func TestHandle_SaveReply(t *testing.T) {
	h, root, _, _ := newHandler(t)
	sess := conversation.NewSession("s", 0)

	_, ok := h.Handle(context.Background(), sess, Detect("save it as poem.txt"))
	assert.False(t, ok, "save-reply without a prior reply should fall through")

	sess.Append(
		conversation.Turn{Role: adapter.RoleUser, Content: "write a haiku"},
		conversation.Turn{Role: adapter.RoleAssistant, Content: "old pond\nfrog jumps in"},
	)
	resp := handle(t, h, sess, "save it as poem.txt")
	assert.Equal(t, SavedReplyText, resp.Text)
	assert.Equal(t, filepath.Join(root, "poem.txt"), resp.Attachment)

	data, err := os.ReadFile(resp.Attachment)
	require.NoError(t, err)
	assert.Equal(t, "old pond\nfrog jumps in", string(data))
	assert.Equal(t, 4, sess.Len())
}

func TestHandle_SaveReplyKeepsExistingFile(t *testing.T) {
	h, root, _, _ := newHandler(t)
	put(t, root, "notes.txt", "uploaded notes")
	sess := conversation.NewSession("s", 0)
	sess.Append(
		conversation.Turn{Role: adapter.RoleUser, Content: "summarize"},
		conversation.Turn{Role: adapter.RoleAssistant, Content: "a summary"},
	)

	resp := handle(t, h, sess, "save it as notes.txt")
	assert.Equal(t, ExistsText("notes.txt"), resp.Text)
	assert.Empty(t, resp.Attachment)

	data, err := os.ReadFile(filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded notes", string(data))
	assert.Equal(t, 2, sess.Len())
}

func TestHandle_None(t *testing.T) {
	h, _, _, _ := newHandler(t)
	_, ok := h.Handle(context.Background(), nil, Detect("tell me a joke"))
	assert.False(t, ok)
}
