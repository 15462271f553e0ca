package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stefanpietrusky/IEC/types"
)

// The three artifacts are positionally aligned: row i of the vector file,
// entry i of the metadata file and entry i of the chunks file all describe
// the same chunk.
const (
	indexFile  = "rag_index.f32"
	metaFile   = "rag_meta.json"
	chunksFile = "rag_chunks.json"
)

// Load reconstructs the in-memory index from the persisted artifacts. When
// any artifact is missing the index starts empty; query-time lookups then see
// zero chunks rather than an error.
func (s *IndexStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metas, err := readMetas(filepath.Join(s.dir, metaFile))
	if os.IsNotExist(err) {
		s.logger.Warn("index artifacts not found, starting with an empty index")
		s.clearLocked()
		return nil
	}
	if err != nil {
		return err
	}

	chunks, err := readChunks(filepath.Join(s.dir, chunksFile))
	if os.IsNotExist(err) {
		s.logger.Warn("index artifacts not found, starting with an empty index")
		s.clearLocked()
		return nil
	}
	if err != nil {
		return err
	}

	embeddings, dim, err := readVectors(filepath.Join(s.dir, indexFile), len(metas))
	if os.IsNotExist(err) {
		s.logger.Warn("index artifacts not found, starting with an empty index")
		s.clearLocked()
		return nil
	}
	if err != nil {
		return err
	}

	if len(chunks) != len(metas) {
		return fmt.Errorf("artifact mismatch: %d chunks vs %d metadata entries", len(chunks), len(metas))
	}

	s.embeddings = embeddings
	s.metadatas = metas
	s.chunks = chunks
	s.dim = dim
	s.logger.Info("index loaded", "chunks", len(chunks), "dim", dim)
	return nil
}

// persistLocked writes all three artifacts to temporary files first and
// renames them into place, so a crash mid-write never leaves a half-written
// index behind. Caller holds the write lock.
func (s *IndexStore) persistLocked() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("cannot create index dir %s: %w", s.dir, err)
	}

	writes := []struct {
		name  string
		write func(path string) error
	}{
		{indexFile, func(p string) error { return writeVectors(p, s.embeddings, s.dim) }},
		{metaFile, func(p string) error { return writeJSON(p, s.metadatas) }},
		{chunksFile, func(p string) error { return writeJSON(p, s.chunks) }},
	}

	tmpPaths := make([]string, len(writes))
	for i, w := range writes {
		tmp := filepath.Join(s.dir, w.name+".tmp")
		if err := w.write(tmp); err != nil {
			for _, p := range tmpPaths[:i] {
				os.Remove(p)
			}
			os.Remove(tmp)
			return fmt.Errorf("cannot write %s: %w", w.name, err)
		}
		tmpPaths[i] = tmp
	}
	for i, w := range writes {
		if err := os.Rename(tmpPaths[i], filepath.Join(s.dir, w.name)); err != nil {
			return fmt.Errorf("cannot move %s into place: %w", w.name, err)
		}
	}
	return nil
}

// writeVectors lays the matrix out as two int32 header fields (row count,
// dimension) followed by little-endian float32 rows.
func writeVectors(path string, rows [][]float32, dim int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	header := []int32{int32(len(rows)), int32(dim)}
	if err := binary.Write(f, binary.LittleEndian, header); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		if len(row) != dim {
			f.Close()
			return fmt.Errorf("row length %d does not match dim %d", len(row), dim)
		}
		if err := binary.Write(f, binary.LittleEndian, row); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func readVectors(path string, wantRows int) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var header [2]int32
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("cannot read vector header from %s: %w", path, err)
	}
	count, dim := int(header[0]), int(header[1])
	if count != wantRows {
		return nil, 0, fmt.Errorf("vector row count mismatch: got %d want %d", count, wantRows)
	}
	if dim <= 0 && count > 0 {
		return nil, 0, fmt.Errorf("invalid vector dimension %d in %s", dim, path)
	}

	st, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	expected := int64(8 + count*dim*4)
	if st.Size() != expected {
		return nil, 0, fmt.Errorf("vector file size mismatch: got %d want %d (rows=%d dim=%d)", st.Size(), expected, count, dim)
	}

	rows := make([][]float32, count)
	for i := range rows {
		row := make([]float32, dim)
		if err := binary.Read(f, binary.LittleEndian, row); err != nil {
			return nil, 0, fmt.Errorf("cannot read vector row %d from %s: %w", i, path, err)
		}
		rows[i] = row
	}
	return rows, dim, nil
}

func readMetas(path string) ([]types.ChunkMeta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var metas []types.ChunkMeta
	if err := json.Unmarshal(b, &metas); err != nil {
		return nil, fmt.Errorf("invalid metadata JSON %s: %w", path, err)
	}
	return metas, nil
}

func readChunks(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chunks []string
	if err := json.Unmarshal(b, &chunks); err != nil {
		return nil, fmt.Errorf("invalid chunks JSON %s: %w", path, err)
	}
	return chunks, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
