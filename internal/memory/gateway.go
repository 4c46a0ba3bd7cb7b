package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/adapter"
	"github.com/memvra/docbot/internal/db"
)

// Gateway is the façade the agent uses for every long-term memory operation:
// embed, store, retrieve, delete by source and wipe.
type Gateway struct {
	db       *db.DB
	vectors  *VectorStore
	ranker   *Ranker
	embedder adapter.Embedder
	logger   *zap.Logger
}

// NewGateway creates a Gateway backed by the given DB. embedder may be nil
// for callers that only delete, wipe or count.
func NewGateway(database *db.DB, embedder adapter.Embedder, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		db:       database,
		vectors:  NewVectorStore(database),
		ranker:   NewRanker(),
		embedder: embedder,
		logger:   logger.Named("memory"),
	}
}

// Embed returns the embedding for text. Blank text yields a nil vector and
// no error.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if g.embedder == nil {
		return nil, errors.New("memory: embed: no embedder configured")
	}
	vec, err := adapter.EmbedOne(ctx, g.embedder, text)
	if err != nil {
		return nil, fmt.Errorf("memory: embed: %w", err)
	}
	return vec, nil
}

// Store persists one chunk with its embedding and returns the new record id.
func (g *Gateway) Store(ctx context.Context, text string, vec []float32, md Metadata) (string, error) {
	if len(vec) == 0 {
		return "", errors.New("memory: store: empty embedding")
	}
	if md.Source == "" {
		return "", errors.New("memory: store: missing source")
	}

	id := uuid.NewString()
	_, err := g.db.Conn().ExecContext(ctx,
		`INSERT INTO records (id, content, source, doc_type, embedding) VALUES (?, ?, ?, ?, ?)`,
		id, text, md.Source, md.Type, float32SliceToBlob(vec),
	)
	if err != nil {
		return "", fmt.Errorf("memory: store: %w", err)
	}

	// The blob above is authoritative; the vec0 row only accelerates search.
	if err := g.vectors.Upsert(ctx, id, vec); err != nil {
		g.logger.Debug("vector index skipped", zap.String("id", id), zap.Error(err))
	}
	return id, nil
}

// Retrieve returns the chunk text of the k records most similar to vec,
// closest first. An empty store yields an empty slice.
func (g *Gateway) Retrieve(ctx context.Context, vec []float32, k int) ([]string, error) {
	matches, err := g.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Content
	}
	return out, nil
}

// Search is Retrieve with scores and sources.
func (g *Gateway) Search(ctx context.Context, vec []float32, k int) ([]Match, error) {
	if len(vec) == 0 || k <= 0 {
		return nil, nil
	}

	total, err := g.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}
	want := min(k, total)

	if hits, err := g.vectors.Search(ctx, vec, k); err != nil {
		g.logger.Debug("vector search unavailable, using brute force", zap.Error(err))
	} else if len(hits) >= want {
		matches, err := g.loadMatches(ctx, hits)
		if err != nil {
			return nil, err
		}
		if len(matches) >= want {
			return matches, nil
		}
	}

	return g.bruteForce(ctx, vec, k)
}

func (g *Gateway) loadMatches(ctx context.Context, hits []VectorMatch) ([]Match, error) {
	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		m := Match{ID: h.ID, Similarity: h.Similarity()}
		err := g.db.Conn().QueryRowContext(ctx,
			`SELECT content, source FROM records WHERE id = ?`, h.ID,
		).Scan(&m.Content, &m.Source)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("memory: load match: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (g *Gateway) bruteForce(ctx context.Context, vec []float32, k int) ([]Match, error) {
	rows, err := g.db.Conn().QueryContext(ctx,
		`SELECT id, content, source, doc_type, embedding FROM records WHERE embedding IS NOT NULL ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("memory: scan records: %w", err)
	}
	defer rows.Close()

	var candidates []candidate
	for rows.Next() {
		var c candidate
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Content, &c.Source, &c.Type, &blob); err != nil {
			return nil, fmt.Errorf("memory: scan records: %w", err)
		}
		c.Embedding = BlobToFloat32Slice(blob)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: scan records: %w", err)
	}
	return g.ranker.Rank(vec, candidates, k), nil
}

// DeleteBySource removes every record whose source equals name and returns
// how many were removed. Removing an unknown source is not an error.
func (g *Gateway) DeleteBySource(ctx context.Context, name string) (int, error) {
	tx, err := g.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("memory: delete by source: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if g.vectors.Enabled() {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_records WHERE id IN (SELECT id FROM records WHERE source = ?)`, name,
		); err != nil {
			return 0, fmt.Errorf("memory: delete vectors for %q: %w", name, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE source = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("memory: delete records for %q: %w", name, err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("memory: delete by source: %w", err)
	}
	return int(n), nil
}

// Wipe drops and recreates the collection and returns how many records it
// held.
func (g *Gateway) Wipe(ctx context.Context) (int, error) {
	count, err := g.Count(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := g.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("memory: wipe: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmts := []string{`DROP TABLE IF EXISTS records`, db.RecordsSchema, db.RecordsIndex}
	if g.vectors.Enabled() {
		stmts = append(stmts, `DROP TABLE IF EXISTS vec_records`)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("memory: wipe: %w", err)
		}
	}
	if g.vectors.Enabled() {
		if err := db.CreateVectorTable(tx, g.db.Dimension()); err != nil {
			return 0, fmt.Errorf("memory: wipe: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("memory: wipe: %w", err)
	}
	g.logger.Info("collection wiped", zap.Int("records", count))
	return count, nil
}

// Count returns the number of stored records.
func (g *Gateway) Count(ctx context.Context) (int, error) {
	var n int
	if err := g.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("memory: count: %w", err)
	}
	return n, nil
}

// Sources lists every source with its record count, by name.
func (g *Gateway) Sources(ctx context.Context) ([]SourceStat, error) {
	rows, err := g.db.Conn().QueryContext(ctx,
		`SELECT source, COUNT(*) FROM records GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("memory: sources: %w", err)
	}
	defer rows.Close()

	var out []SourceStat
	for rows.Next() {
		var s SourceStat
		if err := rows.Scan(&s.Source, &s.Records); err != nil {
			return nil, fmt.Errorf("memory: sources: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordsBySource returns the stored chunks for name in insertion order.
func (g *Gateway) RecordsBySource(ctx context.Context, name string) ([]Record, error) {
	rows, err := g.db.Conn().QueryContext(ctx,
		`SELECT id, content, source, doc_type, created_at FROM records WHERE source = ? ORDER BY created_at, rowid`, name)
	if err != nil {
		return nil, fmt.Errorf("memory: records for %q: %w", name, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Content, &r.Source, &r.Type, &createdAt); err != nil {
			return nil, fmt.Errorf("memory: records for %q: %w", name, err)
		}
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LogIngestion appends one row to the ingestion log.
func (g *Gateway) LogIngestion(ctx context.Context, in Ingestion) error {
	_, err := g.db.Conn().ExecContext(ctx,
		`INSERT INTO ingestions (source, mime_type, chunks, stored, error) VALUES (?, ?, ?, ?, ?)`,
		in.Source, in.MimeType, in.Chunks, in.Stored, nullString(in.Error),
	)
	if err != nil {
		return fmt.Errorf("memory: log ingestion: %w", err)
	}
	return nil
}

// RecentIngestions returns up to limit ingestion log rows, newest first.
func (g *Gateway) RecentIngestions(ctx context.Context, limit int) ([]Ingestion, error) {
	rows, err := g.db.Conn().QueryContext(ctx,
		`SELECT source, mime_type, chunks, stored, COALESCE(error, ''), created_at
		 FROM ingestions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: recent ingestions: %w", err)
	}
	defer rows.Close()

	var out []Ingestion
	for rows.Next() {
		var in Ingestion
		var createdAt string
		if err := rows.Scan(&in.Source, &in.MimeType, &in.Chunks, &in.Stored, &in.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("memory: recent ingestions: %w", err)
		}
		in.CreatedAt = parseTime(createdAt)
		out = append(out, in)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseTime accepts the timestamp layouts go-sqlite3 hands back for
// DATETIME columns.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
