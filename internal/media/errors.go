package media

import "errors"

var (
	// ErrAssetTooLarge indicates the payload exceeds the configured max asset size.
	ErrAssetTooLarge = errors.New("media asset too large")
	// ErrUnrecognizedResponseShape indicates a remote response carried no payload shape we can read.
	ErrUnrecognizedResponseShape = errors.New("unrecognized response shape")
	// ErrScratchUnavailable indicates the scratch directory is not configured.
	ErrScratchUnavailable = errors.New("scratch directory unavailable")
)
