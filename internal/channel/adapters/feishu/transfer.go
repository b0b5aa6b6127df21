package feishu

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/memohai/feishubridge/internal/media"
)

// MediaKind distinguishes image keys from file keys.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindFile  MediaKind = "file"
)

// MediaRef is an uploaded asset, addressable by later send calls.
type MediaRef struct {
	Kind MediaKind
	Key  string
}

// UploadImageInput names the image to upload: Path or Buffer, Buffer first.
type UploadImageInput struct {
	Path      string
	Buffer    []byte
	ImageType string
}

// UploadFileInput names the file to upload: Path or Buffer, Buffer first.
// FileType defaults to DetectFileType(FileName); DurationMs applies to audio and video.
type UploadFileInput struct {
	Path       string
	Buffer     []byte
	FileName   string
	FileType   string
	DurationMs int
}

// DownloadImage fetches an image by key.
func (a *FeishuAdapter) DownloadImage(ctx context.Context, accountID, imageKey string) (media.Download, error) {
	_, client, err := a.account(accountID)
	if err != nil {
		return media.Download{}, err
	}
	req := larkim.NewGetImageReqBuilder().ImageKey(strings.TrimSpace(imageKey)).Build()
	resp, err := client.Image.Get(ctx, req)
	if err == nil && resp != nil && !resp.Success() {
		err = &RemoteError{Op: "image.get", Code: resp.Code, Msg: resp.Msg}
	}
	a.observe("image.get", err)
	if err != nil {
		return media.Download{}, fmt.Errorf("download image: %w", err)
	}
	if resp == nil {
		return media.Download{}, fmt.Errorf("%w: image download: empty response", media.ErrUnrecognizedResponseShape)
	}
	data, err := media.ExtractBuffer(ctx, a.scratch, resp, "image download")
	if err != nil {
		return media.Download{}, err
	}
	return newDownload(data, resp.FileName), nil
}

// DownloadMessageResource fetches a file or image attached to a message.
// resourceType is "image" or "file".
func (a *FeishuAdapter) DownloadMessageResource(ctx context.Context, accountID, messageID, fileKey, resourceType string) (media.Download, error) {
	_, client, err := a.account(accountID)
	if err != nil {
		return media.Download{}, err
	}
	resourceType = strings.ToLower(strings.TrimSpace(resourceType))
	if resourceType != string(MediaKindImage) {
		resourceType = string(MediaKindFile)
	}
	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(strings.TrimSpace(messageID)).
		FileKey(strings.TrimSpace(fileKey)).
		Type(resourceType).
		Build()
	resp, err := client.MessageResource.Get(ctx, req)
	if err == nil && resp != nil && !resp.Success() {
		err = &RemoteError{Op: "message_resource.get", Code: resp.Code, Msg: resp.Msg}
	}
	a.observe("message_resource.get", err)
	if err != nil {
		return media.Download{}, fmt.Errorf("download message resource: %w", err)
	}
	if resp == nil {
		return media.Download{}, fmt.Errorf("%w: resource download: empty response", media.ErrUnrecognizedResponseShape)
	}
	data, err := media.ExtractBuffer(ctx, a.scratch, resp, "resource download")
	if err != nil {
		return media.Download{}, err
	}
	return newDownload(data, resp.FileName), nil
}

// UploadImage uploads an image and returns its image key.
func (a *FeishuAdapter) UploadImage(ctx context.Context, accountID string, in UploadImageInput) (MediaRef, error) {
	_, client, err := a.account(accountID)
	if err != nil {
		return MediaRef{}, err
	}
	file, release, err := a.openUploadSource("image", in.Path, in.Buffer)
	if err != nil {
		return MediaRef{}, err
	}
	defer release()

	imageType := strings.TrimSpace(in.ImageType)
	if imageType == "" {
		imageType = larkim.ImageTypeMessage
	}
	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType(imageType).
			Image(file).
			Build()).
		Build()
	resp, err := client.Image.Create(ctx, req)
	key, err := imageKeyFrom(resp, err)
	a.observe("image.create", err)
	if err != nil {
		return MediaRef{}, fmt.Errorf("upload image: %w", err)
	}
	return MediaRef{Kind: MediaKindImage, Key: key}, nil
}

// UploadFile uploads a file and returns its file key.
func (a *FeishuAdapter) UploadFile(ctx context.Context, accountID string, in UploadFileInput) (MediaRef, error) {
	_, client, err := a.account(accountID)
	if err != nil {
		return MediaRef{}, err
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" && in.Buffer == nil && strings.TrimSpace(in.Path) != "" {
		fileName = filepath.Base(strings.TrimSpace(in.Path))
	}
	if fileName == "" {
		fileName = defaultMediaName
	}
	file, release, err := a.openUploadSource("file", in.Path, in.Buffer)
	if err != nil {
		return MediaRef{}, err
	}
	defer release()

	fileType := strings.TrimSpace(in.FileType)
	if fileType == "" {
		fileType = DetectFileType(fileName)
	}
	body := larkim.NewCreateFileReqBodyBuilder().
		FileType(fileType).
		FileName(fileName)
	if in.DurationMs > 0 && (fileType == larkim.FileTypeOpus || fileType == larkim.FileTypeMp4) {
		body = body.Duration(in.DurationMs)
	}
	req := larkim.NewCreateFileReqBuilder().
		Body(body.File(file).Build()).
		Build()
	resp, err := client.File.Create(ctx, req)
	key, err := fileKeyFrom(resp, err)
	a.observe("file.create", err)
	if err != nil {
		a.logger.Warn("file upload failed", slog.String("file_name", fileName), slog.Any("error", err))
		return MediaRef{}, fmt.Errorf("upload file: %w", err)
	}
	return MediaRef{Kind: MediaKindFile, Key: key}, nil
}

func imageKeyFrom(resp *larkim.CreateImageResp, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("%w: image_key", ErrMissingResultKey)
	}
	if !resp.Success() {
		return "", &RemoteError{Op: "image.create", Code: resp.Code, Msg: resp.Msg}
	}
	var nested *string
	if resp.Data != nil {
		nested = resp.Data.ImageKey
	}
	return resultKey(nested, resp.ApiResp, "image_key")
}

func fileKeyFrom(resp *larkim.CreateFileResp, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("%w: file_key", ErrMissingResultKey)
	}
	if !resp.Success() {
		return "", &RemoteError{Op: "file.create", Code: resp.Code, Msg: resp.Msg}
	}
	var nested *string
	if resp.Data != nil {
		nested = resp.Data.FileKey
	}
	return resultKey(nested, resp.ApiResp, "file_key")
}

// DetectFileType maps a file name to a Feishu upload file type.
func DetectFileType(name string) string {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".opus", ".ogg":
		return larkim.FileTypeOpus
	case ".mp4", ".mov", ".avi":
		return larkim.FileTypeMp4
	case ".pdf":
		return larkim.FileTypePdf
	case ".doc", ".docx":
		return larkim.FileTypeDoc
	case ".xls", ".xlsx":
		return larkim.FileTypeXls
	case ".ppt", ".pptx":
		return larkim.FileTypePpt
	default:
		return larkim.FileTypeStream
	}
}

// openUploadSource returns a file handle for the upload body. Buffers are
// written to a scratch file first so the multipart encoder sees a sized file.
func (a *FeishuAdapter) openUploadSource(prefix, path string, buffer []byte) (*os.File, func(), error) {
	if buffer != nil {
		scratchPath, releaseScratch, err := a.scratch.WriteTemp("upload_"+prefix, prefix, buffer)
		if err != nil {
			return nil, func() {}, err
		}
		file, err := os.Open(scratchPath)
		if err != nil {
			releaseScratch()
			return nil, func() {}, fmt.Errorf("open scratch upload: %w", err)
		}
		return file, func() {
			_ = file.Close()
			releaseScratch()
		}, nil
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, func() {}, ErrNoMediaSource
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: %s", ErrLocalFileUnreadable, path)
	}
	return file, func() { _ = file.Close() }, nil
}

// resultKey reads an upload key from resp.Data or, failing that, from a
// top-level field of the raw body.
func resultKey(nested *string, raw *larkcore.ApiResp, field string) (string, error) {
	if nested != nil && strings.TrimSpace(*nested) != "" {
		return strings.TrimSpace(*nested), nil
	}
	if raw != nil && len(raw.RawBody) > 0 {
		if node, err := sonic.Get(raw.RawBody, field); err == nil {
			if value, err := node.String(); err == nil && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value), nil
			}
		}
		if node, err := sonic.Get(raw.RawBody, "data", field); err == nil {
			if value, err := node.String(); err == nil && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingResultKey, field)
}

func newDownload(data []byte, fileName string) media.Download {
	return media.Download{
		Data:        data,
		ContentType: mimetype.Detect(data).String(),
		FileName:    strings.TrimSpace(fileName),
	}
}
