package loader

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"
	_ "golang.org/x/image/webp" // WordPress media is often served as WebP
)

const (
	defaultAttemptTimeout = 8 * time.Second
	maxImageBytes         = 25 << 20 // 25MB
	defaultMaxPixels      = 40_000_000

	// Bitmap sources that are not tiers.
	SourceData   = "data"
	SourceDirect = "direct"
)

// Bitmap is a decoded image together with where it came from.
type Bitmap struct {
	Image image.Image
	// Source is SourceData, SourceDirect or the name of the tier that served it.
	Source string
	// Tainted is set when the origin did not grant cross-origin reads. Drawing a
	// tainted bitmap makes the surface unexportable.
	Tainted bool
}

// Tier is one delivery strategy: a URL template with a {url} placeholder that
// receives the query-escaped target.
type Tier struct {
	Name     string
	Template string
}

// URL builds the request URL for target.
func (t Tier) URL(target string) string {
	return strings.ReplaceAll(t.Template, "{url}", url.QueryEscape(target))
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithAttemptTimeout bounds every single fetch attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithOrigin sets the Origin header sent with each attempt.
func WithOrigin(origin string) Option {
	return func(l *Loader) { l.origin = origin }
}

// WithMaxPixels rejects images whose header declares more than n pixels.
func WithMaxPixels(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxPixels = n
		}
	}
}

// WithTokenFunc replaces the cache-busting token generator.
func WithTokenFunc(fn func() string) Option {
	return func(l *Loader) { l.token = fn }
}

// Loader resolves image URLs into bitmaps through an ordered chain of
// delivery tiers.
type Loader struct {
	client    *http.Client
	tiers     []Tier
	timeout   time.Duration
	origin    string
	token     func() string
	maxPixels int
}

// New creates a Loader trying the given tier templates in order.
func New(tiers []string, opts ...Option) *Loader {
	l := &Loader{
		client:    &http.Client{},
		timeout:   defaultAttemptTimeout,
		maxPixels: defaultMaxPixels,
		token: func() string {
			return strconv.FormatInt(time.Now().UnixNano(), 36)
		},
	}

	for i, tpl := range tiers {
		l.tiers = append(l.tiers, Tier{Name: tierName(i, tpl), Template: tpl})
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Tiers returns the configured delivery tiers in order.
func (l *Loader) Tiers() []Tier {
	out := make([]Tier, len(l.tiers))
	copy(out, l.tiers)
	return out
}

// Load resolves src into a bitmap. Data URIs are decoded in place; any other
// URL is tried through every tier in order until one yields a decodable image.
func (l *Loader) Load(ctx context.Context, src string) (Bitmap, error) {
	if src == "" {
		return Bitmap{}, &ImageLoadError{Reason: "missing url"}
	}

	if IsDataURI(src) {
		return l.decodeEmbedded(src)
	}

	if len(l.tiers) == 0 {
		return Bitmap{}, &ImageLoadError{URL: src, Reason: "no delivery tiers configured"}
	}

	var lastErr error
	for _, tier := range l.tiers {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		img, _, err := l.fetch(ctx, tier.URL(l.cacheBust(src)))
		if err != nil {
			zlog.Logger.Warn().
				Err(err).
				Str("tier", tier.Name).
				Str("url", shorten(src)).
				Msg("image tier failed")
			lastErr = err
			continue
		}

		return Bitmap{Image: img, Source: tier.Name}, nil
	}

	return Bitmap{}, &ImageLoadError{URL: src, Reason: "all delivery tiers failed", Err: lastErr}
}

// LoadDirect fetches src from its origin without any proxy tier. The bitmap is
// tainted unless the response grants cross-origin reads.
func (l *Loader) LoadDirect(ctx context.Context, src string) (Bitmap, error) {
	if src == "" {
		return Bitmap{}, &ImageLoadError{Reason: "missing url"}
	}

	if IsDataURI(src) {
		return l.decodeEmbedded(src)
	}

	img, header, err := l.fetch(ctx, l.cacheBust(src))
	if err != nil {
		return Bitmap{}, &ImageLoadError{URL: src, Reason: "direct fetch failed", Err: err}
	}

	return Bitmap{
		Image:   img,
		Source:  SourceDirect,
		Tainted: !l.grantsCrossOrigin(header),
	}, nil
}

func (l *Loader) decodeEmbedded(src string) (Bitmap, error) {
	img, err := decodeDataURI(src, l.maxPixels)
	if err != nil {
		return Bitmap{}, &ImageLoadError{URL: src, Reason: "invalid embedded image", Err: err}
	}

	return Bitmap{Image: img, Source: SourceData}, nil
}

// fetch performs one bounded attempt and decodes the body.
func (l *Loader) fetch(ctx context.Context, u string) (image.Image, http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	if l.origin != "" {
		req.Header.Set("Origin", l.origin)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}

	img, err := decodeImage(data, l.maxPixels)
	if err != nil {
		return nil, nil, err
	}

	return img, resp.Header, nil
}

// cacheBust appends a fresh token so proxies cannot serve a stale copy.
func (l *Loader) cacheBust(src string) string {
	sep := "?"
	if strings.Contains(src, "?") {
		sep = "&"
	}

	return src + sep + "_cb=" + url.QueryEscape(l.token())
}

func (l *Loader) grantsCrossOrigin(h http.Header) bool {
	allow := h.Get("Access-Control-Allow-Origin")
	if allow == "" {
		return false
	}

	return allow == "*" || l.origin == "" || allow == l.origin
}

func tierName(i int, tpl string) string {
	u, err := url.Parse(strings.ReplaceAll(tpl, "{url}", ""))
	if err != nil || u.Host == "" {
		return "tier-" + strconv.Itoa(i)
	}

	return u.Host
}
