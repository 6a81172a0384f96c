package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/newsflow/internal/loader"
	"github.com/aliskhannn/newsflow/internal/model"
)

// imageLoader resolves image references into bitmaps.
type imageLoader interface {
	Load(ctx context.Context, src string) (loader.Bitmap, error)
	LoadDirect(ctx context.Context, src string) (loader.Bitmap, error)
}

// DeliverFunc receives the output of every completed pass. A render may
// deliver from overlapping calls in any order; callers keep the latest.
type DeliverFunc func(model.Rendered)

// Options tune the pipeline.
type Options struct {
	SiteLabel string // used when the request carries none
	LinkQR    bool   // draw a QR code of the post link
}

// Processor composites branded graphics for posts. It is safe for concurrent
// use: every pass draws on its own surface.
type Processor struct {
	loader imageLoader
	opts   Options

	mu          sync.Mutex
	failedLogos map[string]struct{}
}

// New creates a new Processor loading images through l.
func New(l imageLoader, opts Options) *Processor {
	return &Processor{
		loader:      l,
		opts:        opts,
		failedLogos: make(map[string]struct{}),
	}
}

// passResult is the outcome of one pass over the surface.
type passResult struct {
	png          []byte
	fallbackLogo bool
	// needsFallbackLogo is set when export failed because of the caller's logo.
	needsFallbackLogo bool
}

// Render runs the pipeline for req and hands the graphic to deliver. When the
// caller's logo makes the surface unexportable, the logo is marked failed and
// the pass is repeated once with the built-in logo. A failure of that second
// pass is returned as an *ExportError and nothing is delivered.
func (p *Processor) Render(ctx context.Context, req model.RenderRequest, deliver DeliverFunc) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	tpl, ok := model.LookupTemplate(req.Template)
	if !ok {
		zlog.Logger.Warn().
			Str("template", string(req.Template)).
			Msg("unknown template, using standard")
	}

	res, err := p.pass(ctx, req, tpl, false)
	if err == nil {
		deliver(p.rendered(req, tpl, res, 1))
		return nil
	}

	if !res.needsFallbackLogo {
		return err
	}

	p.markLogoFailed(req.Logo)
	zlog.Logger.Warn().
		Err(err).
		Str("render_id", req.ID.String()).
		Msg("logo blocked export, retrying with built-in logo")

	res, err = p.pass(ctx, req, tpl, true)
	if err != nil {
		return fmt.Errorf("render with built-in logo: %w", err)
	}

	deliver(p.rendered(req, tpl, res, 2))

	return nil
}

// pass paints background, overlay and logo, then exports the surface.
func (p *Processor) pass(ctx context.Context, req model.RenderRequest, tpl model.Template, forceFallbackLogo bool) (passResult, error) {
	s := newSurface()

	var bg *loader.Bitmap
	bmp, err := p.loader.Load(ctx, req.Post.BackgroundURL())
	if err != nil {
		zlog.Logger.Warn().
			Err(err).
			Int64("post_id", req.Post.ID).
			Msg("background unavailable, using fallback fill")
	} else {
		bg = &bmp
	}
	paintBackground(s, bg)

	label := req.SiteLabel
	if label == "" {
		label = p.opts.SiteLabel
	}
	drawOverlay(s, tpl, req.Post.Title, label)

	logo, fallback := p.resolveLogo(ctx, req.Logo, forceFallbackLogo)
	drawLogoBadge(s, logo)

	if p.opts.LinkQR && req.Post.Link != "" {
		if err := drawLinkQR(s, req.Post.Link); err != nil {
			zlog.Logger.Warn().Err(err).Msg("skipping link qr")
		}
	}

	res := passResult{fallbackLogo: fallback}

	png, err := export(s)
	if err != nil {
		var exportErr *ExportError
		if errors.As(err, &exportErr) && exportErr.Tainted && !fallback && logo.Tainted {
			res.needsFallbackLogo = true
		}
		return res, err
	}

	res.png = png

	return res, nil
}

// resolveLogo returns the caller's logo, or the built-in one when there is
// none, it is forced off, it failed before, or it cannot be loaded.
func (p *Processor) resolveLogo(ctx context.Context, src string, forceFallback bool) (loader.Bitmap, bool) {
	if src == "" || forceFallback || p.logoFailed(src) {
		return defaultLogoBitmap(), true
	}

	bmp, err := p.loader.LoadDirect(ctx, src)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("logo unavailable, using built-in logo")
		return defaultLogoBitmap(), true
	}

	return bmp, false
}

func (p *Processor) logoFailed(src string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.failedLogos[src]
	return ok
}

func (p *Processor) markLogoFailed(src string) {
	if src == "" {
		return
	}

	p.mu.Lock()
	p.failedLogos[src] = struct{}{}
	p.mu.Unlock()
}

func (p *Processor) rendered(req model.RenderRequest, tpl model.Template, res passResult, attempt int) model.Rendered {
	zlog.Logger.Info().
		Str("render_id", req.ID.String()).
		Int64("post_id", req.Post.ID).
		Str("template", string(tpl.ID)).
		Bool("fallback_logo", res.fallbackLogo).
		Int("attempt", attempt).
		Msg("render pass completed")

	return model.Rendered{
		RenderID:     req.ID,
		PostID:       req.Post.ID,
		Template:     tpl.ID,
		PNG:          res.png,
		Width:        CanvasSize,
		Height:       CanvasSize,
		FallbackLogo: res.fallbackLogo,
		Attempt:      attempt,
		CreatedAt:    time.Now().UTC(),
	}
}
