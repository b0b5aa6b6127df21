package media

import (
	"fmt"
	"io"
)

// MaxAssetBytes bounds every buffered payload unless a smaller limit is configured.
const MaxAssetBytes int64 = 200 * 1024 * 1024

// EffectiveLimit clamps a configured byte limit to (0, MaxAssetBytes].
func EffectiveLimit(configured int64) int64 {
	if configured <= 0 || configured > MaxAssetBytes {
		return MaxAssetBytes
	}
	return configured
}

// ReadAllWithLimit reads from reader and rejects payloads larger than maxBytes.
func ReadAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be greater than 0")
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, maxBytes)
	}
	return data, nil
}
