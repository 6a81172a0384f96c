package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/newsflow/internal/api/respond"
	"github.com/aliskhannn/newsflow/internal/model"
	"github.com/aliskhannn/newsflow/internal/processor"
	"github.com/aliskhannn/newsflow/internal/storage/file"
)

// service defines the interface for render operations.
type service interface {
	Render(ctx context.Context, req model.RenderRequest) (model.Rendered, error)
	Enqueue(ctx context.Context, req model.RenderRequest) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Templates() []model.Template
}

// Handler provides HTTP handlers for render endpoints.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Health reports that the process is serving requests.
func (h *Handler) Health(c *ginext.Context) {
	respond.OK(c, "ok")
}

// Templates lists the available templates.
func (h *Handler) Templates(c *ginext.Context) {
	respond.OK(c, h.service.Templates())
}

// Render renders the posted request and responds with the PNG itself.
// The render ID is returned in the X-Render-ID header.
func (h *Handler) Render(c *ginext.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	out, err := h.service.Render(c.Request.Context(), req)
	if err != nil {
		var exportErr *processor.ExportError
		if errors.As(err, &exportErr) {
			zlog.Logger.Warn().Err(err).Msg("graphic could not be exported")
			respond.Fail(c, http.StatusUnprocessableEntity, fmt.Errorf("graphic could not be exported: %v", err))
			return
		}

		zlog.Logger.Err(err).Msg("failed to render")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to render: %v", err))
		return
	}

	c.Header("X-Render-ID", out.RenderID.String())
	respond.PNG(c, http.StatusOK, out.PNG)
}

// RenderAsync enqueues the posted request and responds with its ID.
func (h *Handler) RenderAsync(c *ginext.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	id, err := h.service.Enqueue(c.Request.Context(), req)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to enqueue render")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to enqueue render: %v", err))
		return
	}

	respond.Accepted(c, map[string]interface{}{"id": id})
}

// Get serves the PNG bytes of a stored render.
func (h *Handler) Get(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	reader, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, file.ErrObjectNotFound) {
			zlog.Logger.Warn().Str("id", id.String()).Msg("render not found")
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("render not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to get render")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get render: %v", err))
		return
	}
	defer reader.Close()

	// Renders are immutable under their ID.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")

	respond.PNGStream(c, http.StatusOK, reader)
}

// Delete removes a stored render by ID.
func (h *Handler) Delete(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, file.ErrObjectNotFound) {
			zlog.Logger.Warn().Str("id", id.String()).Msg("render not found")
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("render not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to delete the render")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to delete render: %w", err))
		return
	}

	c.Status(http.StatusNoContent)
}

func bindRequest(c *ginext.Context) (model.RenderRequest, bool) {
	var req model.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Err(err).Msg("failed to decode render request")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid render request: %v", err))
		return req, false
	}

	if req.Template != "" {
		if _, ok := model.LookupTemplate(req.Template); !ok {
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("unknown template %q", req.Template))
			return req, false
		}
	}

	return req, true
}

func parseID(c *ginext.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	if idStr == "" {
		zlog.Logger.Warn().Msg("missing id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing id"))
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return uuid.Nil, false
	}

	return id, true
}
