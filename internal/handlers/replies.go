package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memohai/feishubridge/internal/channel"
)

const defaultReplyChannel = "feishu"

type RepliesHandler struct {
	logger    *slog.Logger
	registry  *channel.Registry
	sequencer *channel.ReplySequencer
}

func NewRepliesHandler(log *slog.Logger, registry *channel.Registry, sequencer *channel.ReplySequencer) *RepliesHandler {
	return &RepliesHandler{
		logger:    log.With(slog.String("handler", "replies")),
		registry:  registry,
		sequencer: sequencer,
	}
}

func (h *RepliesHandler) Register(e *echo.Echo) {
	e.POST("/accounts/:account_id/replies", h.Send)
}

// SendRepliesRequest is one reply sequence. Channel defaults to feishu.
type SendRepliesRequest struct {
	Channel          string                  `json:"channel,omitempty"`
	To               string                  `json:"to"`
	ReplyToMessageID string                  `json:"reply_to_message_id"`
	Mentions         []channel.Mention       `json:"mentions"`
	Fragments        []channel.ReplyFragment `json:"fragments"`
}

type SendRepliesResponse struct {
	Fragments int      `json:"fragments"`
	Errors    []string `json:"errors,omitempty"`
}

// Send runs the fragments through one dispatcher. Per-fragment failures do
// not stop the sequence; they are reported with a 502.
func (h *RepliesHandler) Send(c echo.Context) error {
	var req SendRepliesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Fragments) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "fragments are required")
	}
	rawChannel := strings.TrimSpace(req.Channel)
	if rawChannel == "" {
		rawChannel = defaultReplyChannel
	}
	channelType, err := h.registry.ParseChannelType(rawChannel)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	factory, ok := h.registry.GetReplyDispatcherFactory(channelType)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, channel.ErrDispatcherNotSupported.Error())
	}

	ctx := c.Request().Context()
	dispatcher, err := factory.OpenReplyDispatcher(ctx, channel.ReplyTarget{
		AccountID:        c.Param("account_id"),
		To:               req.To,
		ReplyToMessageID: req.ReplyToMessageID,
		Mentions:         req.Mentions,
	})
	if err != nil {
		return httpError(err)
	}

	resp := SendRepliesResponse{Fragments: len(req.Fragments)}
	if err := h.sequencer.Run(ctx, dispatcher, channel.Fragments(req.Fragments)); err != nil {
		h.logger.Warn("reply sequence finished with errors",
			slog.String("account_id", c.Param("account_id")),
			slog.Any("error", err))
		resp.Errors = splitJoined(err)
		return c.JSON(http.StatusBadGateway, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func splitJoined(err error) []string {
	items := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		items = joined.Unwrap()
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Error())
	}
	return out
}
