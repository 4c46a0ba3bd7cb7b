// Package export renders an inventory of docbot's workspace (files, memory
// records, rules and the ingestion log) into shareable formats.
package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/memvra/docbot/internal/memory"
)

// FileEntry joins what is on disk with what is in memory for one name.
type FileEntry struct {
	Name    string
	OnDisk  bool
	Records int
}

// ExportData is passed to every Exporter.
type ExportData struct {
	Workspace   string
	GeneratedAt time.Time
	Files       []FileEntry
	Rules       []string
	Ingestions  []memory.Ingestion
}

// Orphans returns entries that exist only on disk or only in memory.
func (d ExportData) Orphans() []FileEntry {
	var out []FileEntry
	for _, f := range d.Files {
		if !f.OnDisk || f.Records == 0 {
			out = append(out, f)
		}
	}
	return out
}

// TotalRecords sums the memory records across all files.
func (d ExportData) TotalRecords() int {
	n := 0
	for _, f := range d.Files {
		n += f.Records
	}
	return n
}

// MemorySource is the read side of the memory gateway used by Gather.
type MemorySource interface {
	Sources(ctx context.Context) ([]memory.SourceStat, error)
	RecentIngestions(ctx context.Context, limit int) ([]memory.Ingestion, error)
}

// Gather builds ExportData from the managed file names, the memory
// gateway and the rules list.
func Gather(ctx context.Context, workspace string, names []string, mem MemorySource, rules []string, ingestLimit int) (ExportData, error) {
	data := ExportData{
		Workspace:   workspace,
		GeneratedAt: time.Now().UTC(),
		Rules:       rules,
	}

	stats, err := mem.Sources(ctx)
	if err != nil {
		return data, fmt.Errorf("export: sources: %w", err)
	}
	byName := make(map[string]*FileEntry, len(names)+len(stats))
	for _, n := range names {
		byName[n] = &FileEntry{Name: n, OnDisk: true}
	}
	for _, s := range stats {
		e, ok := byName[s.Source]
		if !ok {
			e = &FileEntry{Name: s.Source}
			byName[s.Source] = e
		}
		e.Records = s.Records
	}
	for _, e := range byName {
		data.Files = append(data.Files, *e)
	}
	sort.Slice(data.Files, func(i, j int) bool { return data.Files[i].Name < data.Files[j].Name })

	if ingestLimit > 0 {
		data.Ingestions, err = mem.RecentIngestions(ctx, ingestLimit)
		if err != nil {
			return data, fmt.Errorf("export: ingestion log: %w", err)
		}
	}
	return data, nil
}

// Exporter renders ExportData to a string in a specific format.
type Exporter interface {
	Export(data ExportData) (string, error)
}

// registry maps format names to Exporter implementations.
var registry = map[string]Exporter{
	"markdown": &MarkdownExporter{},
	"json":     &JSONExporter{},
}

// Get returns the Exporter registered under name, and whether it was found.
func Get(name string) (Exporter, bool) {
	e, ok := registry[name]
	return e, ok
}

// ValidFormats returns the sorted list of supported export format names.
func ValidFormats() []string {
	formats := make([]string, 0, len(registry))
	for k := range registry {
		formats = append(formats, k)
	}
	sort.Strings(formats)
	return formats
}
