package render

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/newsflow/internal/model"
)

// service renders posts into graphics.
type service interface {
	Render(ctx context.Context, req model.RenderRequest) (model.Rendered, error)
}

// RequestedHandler handles Kafka messages carrying render requests.
type RequestedHandler struct {
	service service
}

// NewRequestedHandler creates a new handler with the given service.
func NewRequestedHandler(s service) *RequestedHandler {
	return &RequestedHandler{service: s}
}

// Handle decodes a render request and renders it. A request without an ID
// takes the message key when that is a UUID.
func (h *RequestedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var req model.RenderRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("unmarshal render request: %w", err)
	}

	if req.ID == uuid.Nil {
		if id, err := uuid.ParseBytes(msg.Key); err == nil {
			req.ID = id
		}
	}

	out, err := h.service.Render(ctx, req)
	if err != nil {
		return fmt.Errorf("render post %d: %w", req.Post.ID, err)
	}

	zlog.Logger.Info().
		Str("render_id", out.RenderID.String()).
		Int64("post_id", out.PostID).
		Msg("graphic rendered from queue")

	return nil
}
