package wordpress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/newsflow/internal/model"
)

const defaultPollInterval = time.Minute

// postSource lists the newest posts, newest first.
type postSource interface {
	Posts(ctx context.Context) ([]model.Post, error)
}

// enqueuer hands a render request to the queue.
type enqueuer interface {
	Enqueue(ctx context.Context, req model.RenderRequest) (uuid.UUID, error)
}

// Poller watches a site for new posts and enqueues a render for each.
// It is not safe for concurrent use; run a single Run loop per Poller.
type Poller struct {
	source         postSource
	queue          enqueuer
	interval       time.Duration
	strategy       retry.Strategy
	renderExisting bool

	seen   map[int64]struct{}
	seeded bool
}

// NewPoller creates a Poller. With renderExisting unset, posts present on the
// first poll are remembered without being rendered. A non-positive interval
// falls back to one minute.
func NewPoller(src postSource, q enqueuer, interval time.Duration, s retry.Strategy, renderExisting bool) *Poller {
	if interval <= 0 {
		zlog.Logger.Warn().
			Dur("interval", interval).
			Dur("default", defaultPollInterval).
			Msg("invalid poll interval, using default")
		interval = defaultPollInterval
	}

	return &Poller{
		source:         src,
		queue:          q,
		interval:       interval,
		strategy:       s,
		renderExisting: renderExisting,
		seen:           make(map[int64]struct{}),
	}
}

// Run polls immediately and then on every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	zlog.Logger.Info().
		Dur("interval", p.interval).
		Msg("starting wordpress poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if n, err := p.Poll(ctx); err != nil {
			zlog.Logger.Err(err).Msg("wordpress poll failed")
		} else if n > 0 {
			zlog.Logger.Info().Int("enqueued", n).Msg("new posts enqueued")
		}

		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("shutdown signal received, stopping poller")
			return
		case <-ticker.C:
		}
	}
}

// Poll fetches the newest posts and enqueues the ones not seen before,
// oldest first. It returns the number of requests enqueued.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	var posts []model.Post
	err := retry.Do(func() error {
		var fetchErr error
		posts, fetchErr = p.source.Posts(ctx)
		return fetchErr
	}, p.strategy)
	if err != nil {
		return 0, fmt.Errorf("poll posts: %w", err)
	}

	if !p.seeded {
		p.seeded = true
		if !p.renderExisting {
			for _, post := range posts {
				p.seen[post.ID] = struct{}{}
			}
			zlog.Logger.Info().Int("posts", len(posts)).Msg("existing posts recorded")
			return 0, nil
		}
	}

	enqueued := 0
	for i := len(posts) - 1; i >= 0; i-- {
		post := posts[i]
		if _, ok := p.seen[post.ID]; ok {
			continue
		}

		id, err := p.queue.Enqueue(ctx, model.RenderRequest{Post: post})
		if err != nil {
			// Left unseen so the next poll tries again.
			zlog.Logger.Err(err).Int64("post_id", post.ID).Msg("failed to enqueue post")
			continue
		}

		p.seen[post.ID] = struct{}{}
		enqueued++

		zlog.Logger.Info().
			Int64("post_id", post.ID).
			Str("render_id", id.String()).
			Msg("post enqueued for rendering")
	}

	return enqueued, nil
}
