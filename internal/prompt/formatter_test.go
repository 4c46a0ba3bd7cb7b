package prompt

import (
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 9, 14, 5, 0, 0, time.UTC)

func TestSystemPrompt(t *testing.T) {
	f := NewFormatter()
	got := f.SystemPrompt(SystemData{
		Persona:  "You are a helpful archivist.",
		UserName: "abey",
		Now:      fixedNow,
		Files:    []string{"notes.txt", "scan.pdf"},
		Rules:    "Answer in French.\nBe brief.",
	})

	checks := []string{
		"You are a helpful archivist.",
		"The current local date and time is: 2025-03-09 02:05 PM.",
		"named 'abey'",
		"--- Currently Available Files ---\n- notes.txt\n- scan.pdf\n",
		"Context retrieved from memory",
		"--- Behavioral Rules ---\nAnswer in French.\nBe brief.",
	}
	for _, check := range checks {
		if !strings.Contains(got, check) {
			t.Errorf("missing %q in system prompt:\n%s", check, got)
		}
	}
}

func TestSystemPrompt_Empty(t *testing.T) {
	f := NewFormatter()
	got := f.SystemPrompt(SystemData{Persona: "p", Now: fixedNow})

	if !strings.Contains(got, NoFilesText) {
		t.Error("empty listing should say no files are uploaded")
	}
	if strings.Contains(got, "Behavioral Rules") {
		t.Error("rules section should be omitted when there are no rules")
	}
	if strings.Contains(got, "named '") {
		t.Error("user name line should be omitted when unset")
	}
}

func TestUserPrompt(t *testing.T) {
	f := NewFormatter()
	if got := f.UserPrompt("", "hi"); got != "hi" {
		t.Errorf("no context: got %q", got)
	}
	want := "Context retrieved from memory:\nchunk a\n\nchunk b\n\nUser Question:\nwhat?"
	if got := f.UserPrompt(f.ContextBlock([]string{"chunk a", "chunk b"}), "what?"); got != want {
		t.Errorf("UserPrompt = %q", got)
	}
}
