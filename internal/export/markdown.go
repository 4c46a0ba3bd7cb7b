package export

import (
	"fmt"
	"strings"
)

// MarkdownExporter renders the inventory as generic markdown.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(data ExportData) (string, error) {
	var b strings.Builder
	title := data.Workspace
	if title == "" {
		title = "docbot"
	}
	fmt.Fprintf(&b, "# %s: Document Inventory\n\n", title)
	fmt.Fprintf(&b, "_Generated %s_\n\n", data.GeneratedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("## Files\n\n")
	if len(data.Files) == 0 {
		b.WriteString("No files stored.\n\n")
	} else {
		b.WriteString("| File | On disk | Memory records |\n|---|---|---|\n")
		for _, f := range data.Files {
			onDisk := "yes"
			if !f.OnDisk {
				onDisk = "no"
			}
			fmt.Fprintf(&b, "| %s | %s | %d |\n", f.Name, onDisk, f.Records)
		}
		fmt.Fprintf(&b, "\n%d files, %d records.\n\n", len(data.Files), data.TotalRecords())
	}

	if orphans := data.Orphans(); len(orphans) > 0 {
		b.WriteString("## Needs Attention\n\n")
		for _, f := range orphans {
			if !f.OnDisk {
				fmt.Fprintf(&b, "- `%s` has memory records but no file on disk\n", f.Name)
			} else {
				fmt.Fprintf(&b, "- `%s` is on disk but has no memory records\n", f.Name)
			}
		}
		b.WriteString("\n")
	}

	if len(data.Rules) > 0 {
		b.WriteString("## Behavioral Rules\n\n")
		for _, r := range data.Rules {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}

	if len(data.Ingestions) > 0 {
		b.WriteString("## Recent Ingestions\n\n")
		for _, in := range data.Ingestions {
			status := fmt.Sprintf("%d/%d chunks", in.Stored, in.Chunks)
			if in.Error != "" {
				status = "failed: " + in.Error
			}
			fmt.Fprintf(&b, "- %s `%s` (%s) %s\n", in.CreatedAt.Format("2006-01-02 15:04"), in.Source, in.MimeType, status)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}
