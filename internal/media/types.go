package media

import (
	"io"
	"iter"
)

// Download is a fully buffered payload fetched from a remote platform.
type Download struct {
	Data        []byte
	ContentType string
	FileName    string
}

// StreamOpener exposes a payload behind a readable stream accessor.
type StreamOpener interface {
	Open() (io.ReadCloser, error)
}

// FileWriter exposes a payload that can only be saved to a filesystem path.
// Feishu SDK download responses implement it.
type FileWriter interface {
	WriteFile(path string) error
}

// ChunkSeq yields payload chunks in arrival order. Chunks that are not
// []byte are coerced before concatenation.
type ChunkSeq = iter.Seq2[any, error]
