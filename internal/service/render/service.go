package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/newsflow/internal/model"
	"github.com/aliskhannn/newsflow/internal/processor"
)

const rendersDir = "renders"

// ErrNotDelivered is returned when the processor finished without handing over a graphic.
var ErrNotDelivered = errors.New("render produced no output")

// renderer runs the compositing pipeline.
type renderer interface {
	Render(ctx context.Context, req model.RenderRequest, deliver processor.DeliverFunc) error
}

// fileStorage defines the interface for storing rendered graphics (e.g., S3).
type fileStorage interface {
	SavePNG(ctx context.Context, subdir, filename string, data []byte, meta map[string]string) (string, error)
	Load(ctx context.Context, objectPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectPath string) error
}

// requestProducer enqueues render requests into a message broker.
type requestProducer interface {
	ProduceRequest(ctx context.Context, req model.RenderRequest) error
}

// resultProducer announces stored graphics.
type resultProducer interface {
	ProduceRendered(ctx context.Context, ev model.RenderedEvent) error
}

// Defaults fill the fields a request leaves empty.
type Defaults struct {
	Template  model.TemplateID
	Logo      string
	SiteLabel string
}

// Service provides business logic for rendering post graphics.
// It runs the processor, stores every delivered graphic and publishes the result.
type Service struct {
	renderer renderer
	storage  fileStorage
	requests requestProducer
	results  resultProducer
	defaults Defaults
}

// NewService creates a new Service.
func NewService(r renderer, fs fileStorage, req requestProducer, res resultProducer, d Defaults) *Service {
	return &Service{
		renderer: r,
		storage:  fs,
		requests: req,
		results:  res,
		defaults: d,
	}
}

// Render renders req synchronously and returns the delivered graphic.
// The graphic is stored under renders/<id>.png and announced on the result topic.
func (s *Service) Render(ctx context.Context, req model.RenderRequest) (model.Rendered, error) {
	req = s.withDefaults(req)

	var (
		out       model.Rendered
		delivered bool
		storeErr  error
	)

	err := s.renderer.Render(ctx, req, func(r model.Rendered) {
		out, delivered = r, true
		storeErr = s.store(ctx, r)
	})
	if err != nil {
		return model.Rendered{}, fmt.Errorf("render: %w", err)
	}

	if !delivered {
		return model.Rendered{}, ErrNotDelivered
	}

	if storeErr != nil {
		return model.Rendered{}, fmt.Errorf("render: %w", storeErr)
	}

	return out, nil
}

// Enqueue assigns an ID when missing and sends req to the request topic.
func (s *Service) Enqueue(ctx context.Context, req model.RenderRequest) (uuid.UUID, error) {
	req = s.withDefaults(req)

	if err := s.requests.ProduceRequest(ctx, req); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue: %w", err)
	}

	zlog.Logger.Info().
		Str("render_id", req.ID.String()).
		Int64("post_id", req.Post.ID).
		Msg("render request enqueued")

	return req.ID, nil
}

// Get returns a reader for a stored graphic.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	return s.storage.Load(ctx, objectPath(id))
}

// Delete removes a stored graphic.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.storage.Delete(ctx, objectPath(id))
}

// Templates lists the available templates.
func (s *Service) Templates() []model.Template {
	return model.Templates()
}

func (s *Service) withDefaults(req model.RenderRequest) model.RenderRequest {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.Template == "" {
		req.Template = s.defaults.Template
	}
	if req.Logo == "" {
		req.Logo = s.defaults.Logo
	}
	if req.SiteLabel == "" {
		req.SiteLabel = s.defaults.SiteLabel
	}

	return req
}

func (s *Service) store(ctx context.Context, r model.Rendered) error {
	meta := map[string]string{
		"post-id":       strconv.FormatInt(r.PostID, 10),
		"template":      string(r.Template),
		"fallback-logo": strconv.FormatBool(r.FallbackLogo),
	}

	path, err := s.storage.SavePNG(ctx, rendersDir, r.RenderID.String()+".png", r.PNG, meta)
	if err != nil {
		return err
	}

	ev := model.RenderedEvent{
		RenderID:     r.RenderID,
		PostID:       r.PostID,
		Template:     r.Template,
		Path:         path,
		FallbackLogo: r.FallbackLogo,
		CreatedAt:    r.CreatedAt,
	}

	// The graphic is already stored; a lost announcement is logged, not fatal.
	if err := s.results.ProduceRendered(ctx, ev); err != nil {
		zlog.Logger.Err(err).
			Str("render_id", r.RenderID.String()).
			Msg("failed to publish rendered event")
	}

	return nil
}

func objectPath(id uuid.UUID) string {
	return rendersDir + "/" + id.String() + ".png"
}
