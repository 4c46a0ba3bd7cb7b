// Package memory is the typed gateway over docbot's long-term vector memory.
package memory

import "time"

// Metadata is attached to every stored record. Source is the document name
// the chunk came from and is the key used by DeleteBySource.
type Metadata struct {
	Source string
	Type   string
}

// Record is a stored chunk without its embedding.
type Record struct {
	ID        string
	Content   string
	Source    string
	Type      string
	CreatedAt time.Time
}

// Match is a retrieval hit. Similarity is in [0, 1], higher is closer.
type Match struct {
	ID         string
	Content    string
	Source     string
	Similarity float64
}

// SourceStat counts the records stored for one source.
type SourceStat struct {
	Source  string
	Records int
}

// Ingestion is one row of the ingestion log.
type Ingestion struct {
	Source    string
	MimeType  string
	Chunks    int
	Stored    int
	Error     string
	CreatedAt time.Time
}
