package prompt

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is how the current time is shown to the model.
const TimeLayout = "2006-01-02 03:04 PM"

// NoFilesText stands in for the file listing when the folder is empty.
const NoFilesText = "No files currently uploaded."

// SystemData is everything the system prompt is built from.
type SystemData struct {
	Persona  string
	UserName string
	Now      time.Time
	Files    []string
	Rules    string
}

// Formatter renders prompt sections into strings.
type Formatter struct{}

// NewFormatter creates a Formatter.
func NewFormatter() *Formatter { return &Formatter{} }

// FileListing renders one "- name" line per file.
func (f *Formatter) FileListing(files []string) string {
	if len(files) == 0 {
		return NoFilesText
	}
	lines := make([]string, len(files))
	for i, name := range files {
		lines[i] = "- " + name
	}
	return strings.Join(lines, "\n")
}

// SystemPrompt builds the system instruction.
func (f *Formatter) SystemPrompt(d SystemData) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(d.Persona))
	b.WriteString("\n")
	fmt.Fprintf(&b, "The current local date and time is: %s.\n", d.Now.Format(TimeLayout))
	if d.UserName != "" {
		fmt.Fprintf(&b, "The user talking to you is named '%s'. Always address them naturally.\n", d.UserName)
	}
	b.WriteString("\n")
	b.WriteString("You have full permissions over your files folder to create, send, delete, or search files. ")
	b.WriteString("If the user asks you to create a file (e.g., 'write a poem in poem.txt'), reply ONLY with the content meant for that file.\n")
	b.WriteString("If the user asks how to share or get an image or file, tell them to literally type 'share [filename]' (e.g. 'share photo.jpg').\n")
	fmt.Fprintf(&b, "\n--- Currently Available Files ---\n%s\n", f.FileListing(d.Files))
	b.WriteString("\nIf the user asks questions about past files, refer to the provided 'Context retrieved from memory'.")
	if rules := strings.TrimSpace(d.Rules); rules != "" {
		fmt.Fprintf(&b, "\n\n--- Behavioral Rules ---\n%s", rules)
	}
	return b.String()
}

// ContextBlock joins retrieved chunks with blank lines.
func (f *Formatter) ContextBlock(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}

// UserPrompt returns the final user turn: the question alone, or the
// retrieved context followed by the question.
func (f *Formatter) UserPrompt(contextBlock, question string) string {
	if contextBlock == "" {
		return question
	}
	return fmt.Sprintf("Context retrieved from memory:\n%s\n\nUser Question:\n%s", contextBlock, question)
}
