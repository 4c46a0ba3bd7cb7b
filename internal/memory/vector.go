package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/memvra/docbot/internal/db"
)

// VectorStore provides vector similarity search via sqlite-vec.
type VectorStore struct {
	conn    *sql.DB
	enabled bool
}

// NewVectorStore creates a VectorStore backed by the given DB. When the
// vec0 table could not be created every method is a no-op.
func NewVectorStore(database *db.DB) *VectorStore {
	return &VectorStore{conn: database.Conn(), enabled: database.VectorEnabled()}
}

// Enabled reports whether sqlite-vec is usable.
func (v *VectorStore) Enabled() bool {
	return v.enabled
}

// Upsert inserts or replaces a record embedding in vec_records.
func (v *VectorStore) Upsert(ctx context.Context, id string, embedding []float32) error {
	if !v.enabled || len(embedding) == 0 {
		return nil
	}
	// vec0 has no ON CONFLICT support, so replace by delete + insert.
	if _, err := v.conn.ExecContext(ctx, `DELETE FROM vec_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("vector: upsert: %w", err)
	}
	if _, err := v.conn.ExecContext(ctx,
		`INSERT INTO vec_records (id, embedding) VALUES (?, ?)`,
		id, float32SliceToBlob(embedding),
	); err != nil {
		return fmt.Errorf("vector: upsert: %w", err)
	}
	return nil
}

// VectorMatch represents a single similarity search result.
type VectorMatch struct {
	ID       string
	Distance float64
}

// Similarity converts sqlite-vec's L2 distance to a score in (0, 1].
func (m VectorMatch) Similarity() float64 {
	return 1.0 / (1.0 + m.Distance)
}

// Search finds the top-k nearest record embeddings to the query vector.
func (v *VectorStore) Search(ctx context.Context, query []float32, topK int) ([]VectorMatch, error) {
	if !v.enabled || len(query) == 0 || topK <= 0 {
		return nil, nil
	}
	rows, err := v.conn.QueryContext(ctx,
		`SELECT id, distance FROM vec_records WHERE embedding MATCH ? AND k = ?
		 ORDER BY distance`,
		float32SliceToBlob(query), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector: search: %w", err)
	}
	defer rows.Close()

	var out []VectorMatch
	for rows.Next() {
		var m VectorMatch
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---- Helpers ----

// float32SliceToBlob serialises a float32 slice to a little-endian byte blob.
// This is the format expected by sqlite-vec's BLOB column input.
func float32SliceToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BlobToFloat32Slice deserialises a little-endian byte blob to a float32 slice.
func BlobToFloat32Slice(b []byte) []float32 {
	result := make([]float32, len(b)/4)
	for i := range result {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		result[i] = math.Float32frombits(bits)
	}
	return result
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the vectors differ in length or either is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
