package feishu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/memohai/feishubridge/internal/media"
)

const defaultMediaName = "file"

var (
	imageExtensions = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
		".webp": {}, ".bmp": {}, ".ico": {}, ".tiff": {},
	}
	driveLetterPrefix = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
)

// SendMediaInput names one attachment to deliver. Buffer wins over MediaURL.
// MediaURL may be an http(s) URL, an absolute or ~ path, or a file: URL.
type SendMediaInput struct {
	AccountID        string
	To               string
	MediaURL         string
	Buffer           []byte
	FileName         string
	ReplyToMessageID string
	DurationMs       int
}

// SendMedia resolves the media source, uploads it as an image or a file
// depending on the final file name, and sends it.
func (a *FeishuAdapter) SendMedia(ctx context.Context, in SendMediaInput) (SendResult, error) {
	data, name, err := a.resolveMediaSource(ctx, in)
	if err != nil {
		return SendResult{}, err
	}
	target := Target{AccountID: in.AccountID, To: in.To, ReplyToMessageID: in.ReplyToMessageID}

	if isImageName(name) {
		ref, err := a.UploadImage(ctx, in.AccountID, UploadImageInput{Buffer: data})
		if err != nil {
			return SendResult{}, err
		}
		return a.SendImage(ctx, target, ref.Key)
	}
	ref, err := a.UploadFile(ctx, in.AccountID, UploadFileInput{
		Buffer:     data,
		FileName:   name,
		FileType:   DetectFileType(name),
		DurationMs: in.DurationMs,
	})
	if err != nil {
		return SendResult{}, err
	}
	return a.SendFile(ctx, target, ref.Key)
}

// resolveMediaSource returns the payload bytes and the final file name.
func (a *FeishuAdapter) resolveMediaSource(ctx context.Context, in SendMediaInput) ([]byte, string, error) {
	name := strings.TrimSpace(in.FileName)
	if in.Buffer != nil {
		if name == "" {
			name = defaultMediaName
		}
		return in.Buffer, name, nil
	}
	ref := strings.TrimSpace(in.MediaURL)
	if ref == "" {
		return nil, "", ErrNoMediaSource
	}
	if isLocalMediaRef(ref) {
		localPath, err := localMediaPath(ref)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s", ErrLocalFileUnreadable, ref)
		}
		data, err := a.readLocalFile(localPath)
		if err != nil {
			return nil, "", err
		}
		if name == "" {
			name = filepath.Base(localPath)
		}
		return data, name, nil
	}
	data, err := a.fetchRemote(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		name = remoteFileName(ref)
	}
	return data, name, nil
}

func isLocalMediaRef(ref string) bool {
	if strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "~") || driveLetterPrefix.MatchString(ref) {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		return true
	}
	return strings.EqualFold(u.Scheme, "file")
}

func localMediaPath(ref string) (string, error) {
	switch {
	case ref == "~" || strings.HasPrefix(ref, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(ref, "~")), nil
	case len(ref) >= 5 && strings.EqualFold(ref[:5], "file:"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", err
		}
		if u.Path == "" {
			return u.Opaque, nil
		}
		return u.Path, nil
	default:
		return ref, nil
	}
}

// readLocalFile hides the underlying I/O error; only the path is reported.
func (a *FeishuAdapter) readLocalFile(localPath string) ([]byte, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLocalFileUnreadable, localPath)
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := media.ReadAllWithLimit(file, a.maxMediaBytes)
	if err != nil {
		if errors.Is(err, media.ErrAssetTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrLocalFileUnreadable, localPath)
	}
	return data, nil
}

func (a *FeishuAdapter) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetchFailed, err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}
	if resp.ContentLength > a.maxMediaBytes {
		return nil, fmt.Errorf("%w: max %d bytes", media.ErrAssetTooLarge, a.maxMediaBytes)
	}
	data, err := media.ReadAllWithLimit(resp.Body, a.maxMediaBytes)
	if err != nil {
		return nil, fmt.Errorf("read fetched media: %w", err)
	}
	return data, nil
}

func remoteFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultMediaName
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return defaultMediaName
	}
	return base
}

func isImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(strings.TrimSpace(name)))]
	return ok
}
