package handlers

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memohai/feishubridge/internal/channel/adapters/feishu"
	"github.com/memohai/feishubridge/internal/media"
)

// MediaService is the part of the Feishu adapter the media routes use.
type MediaService interface {
	SendMedia(ctx context.Context, in feishu.SendMediaInput) (feishu.SendResult, error)
	DownloadImage(ctx context.Context, accountID, imageKey string) (media.Download, error)
	DownloadMessageResource(ctx context.Context, accountID, messageID, fileKey, resourceType string) (media.Download, error)
}

type MediaHandler struct {
	logger   *slog.Logger
	service  MediaService
	maxBytes int64
}

func NewMediaHandler(log *slog.Logger, service MediaService, maxBytes int64) *MediaHandler {
	return &MediaHandler{
		logger:   log.With(slog.String("handler", "media")),
		service:  service,
		maxBytes: media.EffectiveLimit(maxBytes),
	}
}

func (h *MediaHandler) Register(e *echo.Echo) {
	group := e.Group("/accounts/:account_id")
	group.POST("/media", h.Send)
	group.GET("/images/:image_key", h.DownloadImage)
	group.GET("/messages/:message_id/resources/:file_key", h.DownloadResource)
}

// SendMediaRequest names a media source by URL or path. Multipart requests
// carry the bytes in a "file" part and these fields as form values.
type SendMediaRequest struct {
	To               string `json:"to" form:"to"`
	MediaURL         string `json:"media_url" form:"media_url"`
	FileName         string `json:"file_name" form:"file_name"`
	ReplyToMessageID string `json:"reply_to_message_id" form:"reply_to_message_id"`
	DurationMs       int    `json:"duration_ms" form:"duration_ms"`
}

func (h *MediaHandler) Send(c echo.Context) error {
	in := feishu.SendMediaInput{AccountID: c.Param("account_id")}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := h.bindMultipart(c, &in); err != nil {
			return err
		}
	} else {
		var req SendMediaRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		in.To = req.To
		in.MediaURL = req.MediaURL
		in.FileName = req.FileName
		in.ReplyToMessageID = req.ReplyToMessageID
		in.DurationMs = req.DurationMs
	}

	result, err := h.service.SendMedia(c.Request().Context(), in)
	if err != nil {
		h.logger.Warn("send media failed", slog.String("account_id", in.AccountID), slog.Any("error", err))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *MediaHandler) bindMultipart(c echo.Context, in *feishu.SendMediaInput) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart request needs a file part")
	}
	if fileHeader.Size > h.maxBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, media.ErrAssetTooLarge.Error())
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := media.ReadAllWithLimit(file, h.maxBytes)
	if err != nil {
		return httpError(err)
	}

	in.Buffer = data
	in.To = c.FormValue("to")
	in.ReplyToMessageID = c.FormValue("reply_to_message_id")
	in.FileName = strings.TrimSpace(c.FormValue("file_name"))
	if in.FileName == "" {
		in.FileName = fileHeader.Filename
	}
	if raw := strings.TrimSpace(c.FormValue("duration_ms")); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "duration_ms must be an integer")
		}
		in.DurationMs = duration
	}
	return nil
}

func (h *MediaHandler) DownloadImage(c echo.Context) error {
	download, err := h.service.DownloadImage(c.Request().Context(), c.Param("account_id"), c.Param("image_key"))
	if err != nil {
		return httpError(err)
	}
	return writeDownload(c, download)
}

// DownloadResource serves a message attachment; ?type=image|file, default file.
func (h *MediaHandler) DownloadResource(c echo.Context) error {
	download, err := h.service.DownloadMessageResource(
		c.Request().Context(),
		c.Param("account_id"),
		c.Param("message_id"),
		c.Param("file_key"),
		c.QueryParam("type"),
	)
	if err != nil {
		return httpError(err)
	}
	return writeDownload(c, download)
}

func writeDownload(c echo.Context, download media.Download) error {
	if name := strings.TrimSpace(download.FileName); name != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition,
			mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	contentType := download.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Blob(http.StatusOK, contentType, download.Data)
}
