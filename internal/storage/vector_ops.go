package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// SQLiteVectorStore keeps chunk vectors in the chunks table of a
// SQLiteStorage and answers queries with a brute-force cosine scan.
type SQLiteVectorStore struct {
	s *SQLiteStorage
}

// NewSQLiteVectorStore returns a vector store sharing s's database. Closing
// the vector store leaves s open.
func NewSQLiteVectorStore(s *SQLiteStorage) *SQLiteVectorStore {
	return &SQLiteVectorStore{s: s}
}

// Add writes all chunks of filePath in a single transaction.
func (v *SQLiteVectorStore) Add(ctx context.Context, filePath string, chunks []types.Chunk, embeddings [][]float32) error {
	if err := validateAdd(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	release, err := v.s.acquire()
	if err != nil {
		return err
	}
	defer release()

	query := `
		INSERT INTO chunks (id, file_path, chunk_index, heading, content, dimension, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path = excluded.file_path,
			chunk_index = excluded.chunk_index,
			heading = excluded.heading,
			content = excluded.content,
			dimension = excluded.dimension,
			vector = excluded.vector
	`
	err = v.s.withTx(ctx, func(q querier) error {
		for i, c := range chunks {
			_, err := q.ExecContext(ctx, query,
				ChunkID(filePath, c.ChunkIndex), filePath, c.ChunkIndex, c.Heading, c.Content,
				len(embeddings[i]), serializeVector(embeddings[i]))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("add chunks", err)
	}
	return nil
}

// DeleteByFile removes every chunk of filePath.
func (v *SQLiteVectorStore) DeleteByFile(ctx context.Context, filePath string) error {
	release, err := v.s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if _, err := v.s.db.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, filePath); err != nil {
		return storageErr("delete chunks", err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (v *SQLiteVectorStore) Count(ctx context.Context) (int, error) {
	release, err := v.s.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := v.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, storageErr("count chunks", err)
	}
	return n, nil
}

// Query scores every vector of matching dimension and returns the topK
// closest by cosine distance.
func (v *SQLiteVectorStore) Query(ctx context.Context, embedding []float32, topK int) ([]types.QueryResult, error) {
	if topK <= 0 {
		return []types.QueryResult{}, nil
	}
	release, err := v.s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := v.s.db.QueryContext(ctx,
		`SELECT seq, vector FROM chunks WHERE dimension = ?`, len(embedding))
	if err != nil {
		return nil, storageErr("scan vectors", err)
	}
	candidates, err := computeSimilarityScores(rows, embedding)
	_ = rows.Close()
	if err != nil {
		return nil, storageErr("scan vectors", err)
	}

	sortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	if len(candidates) == 0 {
		return []types.QueryResult{}, nil
	}

	return v.loadResults(ctx, candidates)
}

// loadResults fetches chunk payloads for the selected candidates, keeping
// their order.
func (v *SQLiteVectorStore) loadResults(ctx context.Context, candidates []candidate) ([]types.QueryResult, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(candidates)), ",")
	args := make([]interface{}, len(candidates))
	pos := make(map[int64]int, len(candidates))
	for i, c := range candidates {
		args[i] = c.seq
		pos[c.seq] = i
	}

	rows, err := v.s.db.QueryContext(ctx,
		`SELECT seq, file_path, chunk_index, heading, content FROM chunks WHERE seq IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, storageErr("load chunks", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.QueryResult, len(candidates))
	found := make([]bool, len(candidates))
	for rows.Next() {
		var seq int64
		var r types.QueryResult
		if err := rows.Scan(&seq, &r.FilePath, &r.ChunkIndex, &r.Heading, &r.Content); err != nil {
			return nil, storageErr("load chunks", err)
		}
		i := pos[seq]
		r.Distance = 1 - candidates[i].score
		results[i] = r
		found[i] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load chunks", err)
	}

	// Rows deleted between the two reads are dropped.
	out := results[:0]
	for i, r := range results {
		if found[i] {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close is a no-op; the database belongs to the SQLiteStorage.
func (v *SQLiteVectorStore) Close() error {
	return nil
}

var _ VectorStore = (*SQLiteVectorStore)(nil)

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// computeSimilarityScores processes rows and computes cosine similarity
func computeSimilarityScores(rows rowScanner, queryVector []float32) ([]candidate, error) {
	candidates := make([]candidate, 0, 256)

	for rows.Next() {
		var seq int64
		var vectorBlob []byte
		if err := rows.Scan(&seq, &vectorBlob); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue
		}

		candidates = append(candidates, candidate{seq: seq, score: cosineSimilarity(queryVector, vector)})
	}

	return candidates, rows.Err()
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a chunk row with its similarity score
type candidate struct {
	seq   int64
	score float64
}

// sortCandidates sorts candidates by score in descending order, insertion
// order breaking ties
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

func dimensionErr(expected, got int) error {
	return fmt.Errorf("%w: dimension mismatch: expected %d, got %d", types.ErrStorage, expected, got)
}
