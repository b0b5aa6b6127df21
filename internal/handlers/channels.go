package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/feishubridge/internal/channel"
)

type ChannelHandler struct {
	registry *channel.Registry
}

func NewChannelHandler(registry *channel.Registry) *ChannelHandler {
	return &ChannelHandler{registry: registry}
}

func (h *ChannelHandler) Register(e *echo.Echo) {
	group := e.Group("/channels")
	group.GET("", h.ListChannels)
	group.GET("/:platform", h.GetChannel)
}

type ChannelMeta struct {
	Type           string                      `json:"type"`
	DisplayName    string                      `json:"display_name"`
	Capabilities   channel.ChannelCapabilities `json:"capabilities"`
	TextChunkLimit int                         `json:"text_chunk_limit"`
	ChunkerMode    string                      `json:"chunker_mode"`
}

func (h *ChannelHandler) ListChannels(c echo.Context) error {
	types := h.registry.Types()
	items := make([]ChannelMeta, 0, len(types))
	for _, ct := range types {
		desc, ok := h.registry.GetDescriptor(ct)
		if !ok {
			continue
		}
		items = append(items, channelMeta(desc))
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ChannelHandler) GetChannel(c echo.Context) error {
	channelType, err := h.registry.ParseChannelType(c.Param("platform"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	desc, ok := h.registry.GetDescriptor(channelType)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "channel not found")
	}
	return c.JSON(http.StatusOK, channelMeta(desc))
}

func channelMeta(desc channel.Descriptor) ChannelMeta {
	return ChannelMeta{
		Type:           desc.Type.String(),
		DisplayName:    desc.DisplayName,
		Capabilities:   desc.Capabilities,
		TextChunkLimit: desc.OutboundPolicy.TextChunkLimit,
		ChunkerMode:    string(desc.OutboundPolicy.ChunkerMode),
	}
}
