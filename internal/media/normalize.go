package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"reflect"
)

// payload is the closed set of response shapes ExtractBuffer understands.
// Classify produces one of them right after a remote call returns.
type payload interface {
	payloadShape() string
}

type (
	bytesPayload  struct{ data []byte }
	blockPayload  struct{ block any }
	streamPayload struct{ opener StreamOpener }
	savePayload   struct{ writer FileWriter }
	chunkPayload  struct{ chunks ChunkSeq }
)

func (bytesPayload) payloadShape() string  { return "bytes" }
func (blockPayload) payloadShape() string  { return "block" }
func (streamPayload) payloadShape() string { return "stream" }
func (savePayload) payloadShape() string   { return "file" }
func (chunkPayload) payloadShape() string  { return "chunks" }

type byteBlock interface {
	Bytes() []byte
}

// Classify probes response shapes in a fixed priority order and returns the
// first match: raw bytes, binary block, data wrapper, stream accessor,
// save-to-path handle, chunk source.
func Classify(response any, what string) (payload, error) {
	if response == nil {
		return nil, fmt.Errorf("%w: %s: nil response", ErrUnrecognizedResponseShape, what)
	}
	if data, ok := response.([]byte); ok {
		return bytesPayload{data: data}, nil
	}
	if isBlock(response) {
		return blockPayload{block: response}, nil
	}
	if inner, ok := dataField(response); ok {
		if data, ok := inner.([]byte); ok {
			return bytesPayload{data: data}, nil
		}
		if isBlock(inner) {
			return blockPayload{block: inner}, nil
		}
	}
	if opener, ok := response.(StreamOpener); ok {
		return streamPayload{opener: opener}, nil
	}
	if writer, ok := response.(FileWriter); ok {
		return savePayload{writer: writer}, nil
	}
	if chunks, ok := chunkSource(response); ok {
		return chunkPayload{chunks: chunks}, nil
	}
	return nil, fmt.Errorf("%w: %s: %T", ErrUnrecognizedResponseShape, what, response)
}

// ExtractBuffer reduces a remote response to one byte slice. Chunks are
// concatenated exactly, in arrival order. what names the operation for errors.
func ExtractBuffer(ctx context.Context, scratch *Scratch, response any, what string) ([]byte, error) {
	shape, err := Classify(response, what)
	if err != nil {
		return nil, err
	}
	switch p := shape.(type) {
	case bytesPayload:
		return p.data, nil
	case blockPayload:
		return blockBytes(p.block), nil
	case streamPayload:
		reader, err := p.opener.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: open stream: %w", what, err)
		}
		defer func() {
			_ = reader.Close()
		}()
		return readStream(ctx, reader, what)
	case savePayload:
		var data []byte
		err := scratch.With("download", what, func(path string) error {
			if err := p.writer.WriteFile(path); err != nil {
				return fmt.Errorf("%s: save to scratch file: %w", what, err)
			}
			saved, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%s: read scratch file: %w", what, err)
			}
			if int64(len(saved)) > MaxAssetBytes {
				return fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, MaxAssetBytes)
			}
			data = saved
			return nil
		})
		if err != nil {
			return nil, err
		}
		return data, nil
	case chunkPayload:
		return drainChunks(ctx, p.chunks, what)
	default:
		return nil, fmt.Errorf("%w: %s: %s", ErrUnrecognizedResponseShape, what, shape.payloadShape())
	}
}

func readStream(ctx context.Context, reader io.Reader, what string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ReadAllWithLimit(ctxReader{ctx: ctx, r: reader}, MaxAssetBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: read stream: %w", what, err)
	}
	return data, nil
}

// ctxReader stops a long read once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func drainChunks(ctx context.Context, chunks ChunkSeq, what string) ([]byte, error) {
	var buf bytes.Buffer
	for chunk, err := range chunks {
		if err != nil {
			return nil, fmt.Errorf("%s: read chunk: %w", what, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, ok := coerceChunk(chunk)
		if !ok {
			return nil, fmt.Errorf("%w: %s: chunk %T", ErrUnrecognizedResponseShape, what, chunk)
		}
		if int64(buf.Len()+len(data)) > MaxAssetBytes {
			return nil, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, MaxAssetBytes)
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func coerceChunk(chunk any) ([]byte, bool) {
	switch v := chunk.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	case byte:
		return []byte{v}, true
	}
	if isBlock(chunk) {
		return blockBytes(chunk), true
	}
	return nil, false
}

func isBlock(v any) bool {
	if _, ok := v.(byteBlock); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8
}

// blockBytes copies a binary block so the result never aliases the source.
func blockBytes(v any) []byte {
	if block, ok := v.(byteBlock); ok {
		return bytes.Clone(block.Bytes())
	}
	rv := reflect.ValueOf(v)
	out := make([]byte, rv.Len())
	reflect.Copy(reflect.ValueOf(out), rv)
	return out
}

// dataField unwraps {"data": ...} maps and structs with a Data field.
func dataField(v any) (any, bool) {
	if m, ok := v.(map[string]any); ok {
		inner, ok := m["data"]
		return inner, ok && inner != nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	sf, ok := rv.Type().FieldByName("Data")
	if !ok || !sf.IsExported() {
		return nil, false
	}
	field, err := rv.FieldByIndexErr(sf.Index)
	if err != nil {
		return nil, false
	}
	if (field.Kind() == reflect.Pointer || field.Kind() == reflect.Interface || field.Kind() == reflect.Slice) && field.IsNil() {
		return nil, false
	}
	return field.Interface(), true
}

func chunkSource(v any) (ChunkSeq, bool) {
	switch src := v.(type) {
	case ChunkSeq:
		return src, true
	case func(func(any, error) bool):
		return src, true
	case iter.Seq[[]byte]:
		return byteSeqChunks(src), true
	case func(func([]byte) bool):
		return byteSeqChunks(src), true
	case io.Reader:
		return readerChunks(src), true
	}
	return nil, false
}

func byteSeqChunks(src iter.Seq[[]byte]) ChunkSeq {
	return func(yield func(any, error) bool) {
		for chunk := range src {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

const readerChunkSize = 32 * 1024

func readerChunks(reader io.Reader) ChunkSeq {
	return func(yield func(any, error) bool) {
		buf := make([]byte, readerChunkSize)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				if !yield(bytes.Clone(buf[:n]), nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}
