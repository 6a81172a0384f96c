package processor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/newsflow/internal/loader"
	"github.com/aliskhannn/newsflow/internal/model"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

var errUnreachable = errors.New("unreachable")

// fakeLoader serves bitmaps from a map and counts calls.
type fakeLoader struct {
	mu      sync.Mutex
	images  map[string]loader.Bitmap
	loads   map[string]int
	directs map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		images:  make(map[string]loader.Bitmap),
		loads:   make(map[string]int),
		directs: make(map[string]int),
	}
}

func (f *fakeLoader) Load(_ context.Context, src string) (loader.Bitmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loads[src]++
	if bmp, ok := f.images[src]; ok {
		return bmp, nil
	}
	return loader.Bitmap{}, &loader.ImageLoadError{URL: src, Reason: "all delivery tiers failed", Err: errUnreachable}
}

func (f *fakeLoader) LoadDirect(_ context.Context, src string) (loader.Bitmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.directs[src]++
	if bmp, ok := f.images[src]; ok {
		return bmp, nil
	}
	return loader.Bitmap{}, &loader.ImageLoadError{URL: src, Reason: "direct fetch failed", Err: errUnreachable}
}

func (f *fakeLoader) directCalls(src string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.directs[src]
}

// collector records every delivered graphic.
type collector struct {
	mu  sync.Mutex
	out []model.Rendered
}

func (c *collector) deliver(r model.Rendered) {
	c.mu.Lock()
	c.out = append(c.out, r)
	c.mu.Unlock()
}

func (c *collector) all() []model.Rendered {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Rendered(nil), c.out...)
}

func decodePNG(t *testing.T, b []byte) *image.NRGBA {
	t.Helper()

	img, err := imaging.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode rendered png: %v", err)
	}
	if bounds := img.Bounds(); bounds.Dx() != CanvasSize || bounds.Dy() != CanvasSize {
		t.Fatalf("rendered size = %v, want %dx%d", bounds, CanvasSize, CanvasSize)
	}

	return imaging.Clone(img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

const summitTitle = "Global Tech Summit 2025: AI Innovations Redefining the Digital Frontier"

func TestRenderModernScenario(t *testing.T) {
	fl := newFakeLoader()
	fl.images["https://news.example/summit.jpg"] = loader.Bitmap{
		Image: imaging.New(1600, 900, color.NRGBA{R: 30, G: 90, B: 160, A: 255}),
	}

	p := New(fl, Options{SiteLabel: "newsflow.app"})
	var c collector

	req := model.RenderRequest{
		Post:     model.Post{ID: 7, Title: summitTitle, FeaturedImageURL: "https://news.example/summit.jpg"},
		Template: model.TemplateModern,
	}
	if err := p.Render(context.Background(), req, c.deliver); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := c.all()
	if len(out) != 1 {
		t.Fatalf("delivered %d graphics, want 1", len(out))
	}
	r := out[0]
	if !r.FallbackLogo {
		t.Error("expected the built-in logo when no logo is supplied")
	}
	if r.Template != model.TemplateModern || r.PostID != 7 || r.Attempt != 1 {
		t.Errorf("unexpected metadata: %+v", r)
	}

	img := decodePNG(t, r.PNG)
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if got := img.NRGBAAt(5, 5); got != white {
		t.Errorf("border pixel = %v, want white", got)
	}
	tpl, _ := model.LookupTemplate(model.TemplateModern)
	bar := tpl.Style.Bar
	if got := img.NRGBAAt(30, CanvasSize-50); got != bar {
		t.Errorf("bar pixel = %v, want %v", got, bar)
	}
	if got := img.NRGBAAt(boxSideMargin+2, CanvasSize-boxBarHeight-boxBarGap-2); got != white {
		t.Errorf("panel pixel = %v, want white", got)
	}

	// Badge backing in the left padding strip, clear of the rounded corners.
	if got := img.NRGBAAt(logoX+logoPadding/2, logoY+logoPadding+logoHeight/2); got != white {
		t.Errorf("badge backing pixel = %v, want white", got)
	}

	dc := gg.NewContext(1, 1)
	dc.SetFontFace(newFace(boldFont, boxFontSize))
	lines, panelY, _ := boxedLayout(summitTitle, CanvasSize, CanvasSize, dc)
	if len(lines) < 2 {
		t.Fatalf("title wrapped into %d lines, want several", len(lines))
	}

	countInLine := func(i int, want color.NRGBA) int {
		top := int(panelY + boxPadding + float64(i)*boxLineHeight)
		n := 0
		for y := top; y < top+int(boxLineHeight); y++ {
			for x := int(boxSideMargin); x < CanvasSize-int(boxSideMargin); x++ {
				if img.NRGBAAt(x, y) == want {
					n++
				}
			}
		}
		return n
	}

	style := tpl.Style
	last := len(lines) - 1
	if countInLine(0, style.Text) == 0 || countInLine(0, style.Accent) != 0 {
		t.Error("first line should be drawn in the text color only")
	}
	if countInLine(last, style.Accent) == 0 || countInLine(last, style.Text) != 0 {
		t.Error("last line should be drawn in the accent color only")
	}

	// The label is uppercased: a lowercase and an uppercase label paint the
	// same bar.
	upper := New(fl, Options{SiteLabel: "NEWSFLOW.APP"})
	var uc collector
	if err := upper.Render(context.Background(), req, uc.deliver); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	upperImg := decodePNG(t, uc.all()[0].PNG)

	labelPixels := 0
	for y := int(CanvasSize - boxBarHeight); y < int(CanvasSize-boxBorder); y++ {
		for x := int(boxBorder); x < int(CanvasSize-boxBorder); x++ {
			got := img.NRGBAAt(x, y)
			if got != upperImg.NRGBAAt(x, y) {
				t.Fatalf("bar pixel (%d,%d) differs between label cases", x, y)
			}
			if got == white {
				labelPixels++
			}
		}
	}
	if labelPixels == 0 {
		t.Error("expected the site label drawn on the bar")
	}
}

func TestFitLogo(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"narrow keeps aspect", 40, 20, 160, 80},
		{"tall keeps aspect", 20, 40, 40, 80},
		{"exact cap", 520, 160, logoMaxWidth, logoHeight},
		{"wide is clamped", 2000, 100, logoMaxWidth, logoHeight},
		{"extreme aspect is clamped", 20000, 2, logoMaxWidth, logoHeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fitLogo(imaging.New(tt.w, tt.h, color.NRGBA{R: 10, G: 20, B: 30, A: 255})).Bounds()
			if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("fitLogo(%dx%d) = %dx%d, want %dx%d", tt.w, tt.h, got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFitLogoEmptyUsesBuiltIn(t *testing.T) {
	if got := fitLogo(imaging.New(0, 0, color.NRGBA{})); got != defaultLogo() {
		t.Error("empty logo should resolve to the built-in logo")
	}
}

func TestFitLogoCropsCentre(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	src := imaging.New(3000, 100, red)
	src = imaging.Paste(src, imaging.New(1000, 100, blue), image.Pt(1000, 0))

	got := imaging.Clone(fitLogo(src))
	if px := got.NRGBAAt(logoMaxWidth/2, logoHeight/2); px != blue {
		t.Errorf("centre pixel = %v, want %v", px, blue)
	}
}

func TestFitLogoWorkIsBoundedByBadge(t *testing.T) {
	src := imaging.New(20000, 2, color.NRGBA{R: 200, A: 255})

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	fitLogo(src)
	runtime.ReadMemStats(&after)

	if alloc := after.TotalAlloc - before.TotalAlloc; alloc > 16<<20 {
		t.Errorf("fitLogo allocated %d bytes for a 260x80 badge", alloc)
	}
}

func TestClampLines(t *testing.T) {
	m := monoMeasurer(10)
	lines := []string{"one two", "three four", "five six", "seven"}

	if got := clampLines(lines, 5, 120, m); len(got) != 4 {
		t.Errorf("clampLines under the limit changed lines: %q", got)
	}

	got := clampLines(lines, 2, 120, m)
	want := []string{"one two", "three four" + ellipsis}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("clampLines = %q, want %q", got, want)
	}

	// "three four…" is 11 runes, over a 100px line: the last word goes.
	got = clampLines(lines, 2, 100, m)
	if got[1] != "three"+ellipsis {
		t.Errorf("last line = %q, want %q", got[1], "three"+ellipsis)
	}

	if lines[1] != "three four" {
		t.Error("clampLines mutated its input")
	}
}

func TestRenderLongTitleStaysBelowBadge(t *testing.T) {
	long := strings.Repeat("Parliament debates sweeping reform of regional transport ", 40)

	for _, id := range []model.TemplateID{model.TemplateModern, model.TemplateStandard} {
		t.Run(string(id), func(t *testing.T) {
			var c collector
			req := model.RenderRequest{Post: model.Post{ID: 9, Title: long}, Template: id}
			if err := New(newFakeLoader(), Options{}).Render(context.Background(), req, c.deliver); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			img := decodePNG(t, c.all()[0].PNG)

			// Right of the badge and above captionTop only the background shows.
			ref := img.NRGBAAt(CanvasSize-30, boxBorder+5)
			for y := int(boxBorder) + 5; y < int(captionTop); y++ {
				for x := 400; x < CanvasSize-30; x++ {
					if got := img.NRGBAAt(x, y); got != ref {
						t.Fatalf("pixel (%d,%d) = %v above the caption area, want background %v", x, y, got, ref)
					}
				}
			}
		})
	}
}

func TestLineColorsAccentLastLine(t *testing.T) {
	tpl, _ := model.LookupTemplate(model.TemplateModern)

	colors := lineColors(tpl.Style, 3)
	if colors[0] != color.Color(tpl.Style.Text) || colors[1] != color.Color(tpl.Style.Text) {
		t.Errorf("leading lines should use the text color, got %v", colors[:2])
	}
	if colors[2] != color.Color(tpl.Style.Accent) {
		t.Errorf("last line = %v, want accent %v", colors[2], tpl.Style.Accent)
	}
}

func TestSiteLabelText(t *testing.T) {
	if got := siteLabelText("  newsflow.app "); got != "NEWSFLOW.APP" {
		t.Errorf("siteLabelText = %q, want %q", got, "NEWSFLOW.APP")
	}
}

func TestRenderStandardWithUnreachableBackground(t *testing.T) {
	fl := newFakeLoader()
	p := New(fl, Options{})
	var c collector

	req := model.RenderRequest{
		Post:     model.Post{ID: 1, Title: "Storm closes coastal roads", FeaturedImageURL: "https://down.example/a.jpg"},
		Template: model.TemplateStandard,
	}
	if err := p.Render(context.Background(), req, c.deliver); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := c.all()
	if len(out) != 1 {
		t.Fatalf("delivered %d graphics, want 1", len(out))
	}
	img := decodePNG(t, out[0].PNG)

	// Fallback fill under the scrim: opaque, uniform and darker than the fill.
	ref := img.NRGBAAt(CanvasSize-10, 400)
	if ref.A != 255 {
		t.Fatalf("background pixel is not opaque: %v", ref)
	}
	if ref.R >= fallbackFill.R || ref.G >= fallbackFill.G || ref.B >= fallbackFill.B {
		t.Errorf("scrim did not darken the fallback fill: %v", ref)
	}
	for _, pt := range [][2]int{{900, 300}, {CanvasSize - 1, CanvasSize - 1}, {500, 10}} {
		if got := img.NRGBAAt(pt[0], pt[1]); got != ref {
			t.Errorf("pixel %v = %v, want uniform %v", pt, got, ref)
		}
	}

	// White headline text sits left-aligned near the bottom.
	found := false
	for y := int(CanvasSize - scrimBottom - scrimFontSize); y <= int(CanvasSize-scrimBottom) && !found; y++ {
		for x := int(scrimMargin); x < int(scrimMargin)+300; x++ {
			if px := img.NRGBAAt(x, y); px.R > 240 && px.G > 240 && px.B > 240 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("expected white headline pixels near the bottom-left")
	}
}

func TestRenderFallsBackWhenLogoFails(t *testing.T) {
	fl := newFakeLoader()
	p := New(fl, Options{})
	var c collector

	req := model.RenderRequest{
		Post:     model.Post{ID: 2, Title: "Logo test"},
		Template: model.TemplateBreaking,
		Logo:     "https://brand.example/broken.png",
	}
	if err := p.Render(context.Background(), req, c.deliver); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := c.all()
	if len(out) != 1 {
		t.Fatalf("delivered %d graphics, want exactly 1", len(out))
	}
	if !out[0].FallbackLogo {
		t.Error("expected the built-in logo")
	}
	if got := fl.directCalls(req.Logo); got != 1 {
		t.Errorf("logo fetched %d times, want 1", got)
	}
}

func TestRenderRetriesOnceWithBuiltInLogoWhenTainted(t *testing.T) {
	const logoURL = "https://brand.example/no-cors.png"

	fl := newFakeLoader()
	fl.images[logoURL] = loader.Bitmap{
		Image:   imaging.New(200, 100, color.NRGBA{B: 255, A: 255}),
		Source:  loader.SourceDirect,
		Tainted: true,
	}

	p := New(fl, Options{})
	var c collector

	req := model.RenderRequest{
		Post:     model.Post{ID: 3, Title: "Tainted logo"},
		Template: model.TemplateModern,
		Logo:     logoURL,
	}
	if err := p.Render(context.Background(), req, c.deliver); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := c.all()
	if len(out) != 1 {
		t.Fatalf("delivered %d graphics, want 1", len(out))
	}
	if !out[0].FallbackLogo || out[0].Attempt != 2 {
		t.Errorf("got FallbackLogo=%v Attempt=%d, want true/2", out[0].FallbackLogo, out[0].Attempt)
	}

	// The logo is remembered as failed and not fetched again.
	if err := p.Render(context.Background(), req, c.deliver); err != nil {
		t.Fatalf("second Render failed: %v", err)
	}
	if got := fl.directCalls(logoURL); got != 1 {
		t.Errorf("logo fetched %d times, want 1", got)
	}
	if out := c.all(); len(out) != 2 || out[1].Attempt != 1 {
		t.Errorf("second render should complete on the first pass, got %+v", out)
	}
}

func TestRenderSurfacesSecondExportFailure(t *testing.T) {
	const bgURL = "https://photos.example/tainted.jpg"

	fl := newFakeLoader()
	fl.images[bgURL] = loader.Bitmap{Image: imaging.New(50, 50, color.White), Tainted: true}

	p := New(fl, Options{})
	var c collector

	req := model.RenderRequest{
		Post:     model.Post{ID: 4, Title: "Tainted background", FeaturedImageURL: bgURL},
		Template: model.TemplateStandard,
	}
	err := p.Render(context.Background(), req, c.deliver)

	var exportErr *ExportError
	if !errors.As(err, &exportErr) || !exportErr.Tainted {
		t.Fatalf("expected tainted ExportError, got %v", err)
	}
	if got := len(c.all()); got != 0 {
		t.Errorf("delivered %d graphics, want 0", got)
	}
}

func TestRenderDataURIsSkipNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	l := loader.New([]string{srv.URL + "/?url={url}"})
	p := New(l, Options{})
	var c collector

	bg := loader.DataURI("image/png", encodePNG(t, imaging.New(64, 48, color.NRGBA{G: 200, A: 255})))
	logo := loader.DataURI("image/png", encodePNG(t, imaging.New(40, 20, color.NRGBA{R: 200, A: 255})))

	req := model.RenderRequest{
		Post:     model.Post{ID: 5, Title: "Embedded assets", FeaturedImageURL: bg},
		Template: model.TemplateMinimalist,
		Logo:     logo,
	}
	if err := p.Render(context.Background(), req, c.deliver); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if got := hits.Load(); got != 0 {
		t.Errorf("proxy hits = %d, want 0", got)
	}
	out := c.all()
	if len(out) != 1 || out[0].FallbackLogo {
		t.Fatalf("expected one graphic with the supplied logo, got %+v", out)
	}
}

func TestRenderPrefersAIImage(t *testing.T) {
	fl := newFakeLoader()
	fl.images["https://ai.example/gen.png"] = loader.Bitmap{Image: imaging.New(10, 10, color.White)}

	p := New(fl, Options{})
	var c collector

	req := model.RenderRequest{
		Post: model.Post{
			Title:            "AI art",
			FeaturedImageURL: "https://news.example/featured.jpg",
			AIImageURL:       "https://ai.example/gen.png",
		},
	}
	if err := p.Render(context.Background(), req, c.deliver); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.loads["https://ai.example/gen.png"] != 1 || fl.loads["https://news.example/featured.jpg"] != 0 {
		t.Errorf("unexpected background loads: %v", fl.loads)
	}
}

func TestRenderWithLinkQR(t *testing.T) {
	p := New(newFakeLoader(), Options{LinkQR: true})
	var c collector

	req := model.RenderRequest{
		Post:     model.Post{ID: 6, Title: "Scan me", Link: "https://news.example/?p=6"},
		Template: model.TemplateStandard,
	}
	if err := p.Render(context.Background(), req, c.deliver); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	img := decodePNG(t, c.all()[0].PNG)
	x := CanvasSize - logoX - qrSize - 2*qrPadding + (qrSize+2*qrPadding)/2
	if got := img.NRGBAAt(x, logoY+4); got.R < 250 || got.G < 250 || got.B < 250 {
		t.Errorf("qr backing pixel = %v, want white", got)
	}
}

func TestRenderConcurrentPasses(t *testing.T) {
	p := New(newFakeLoader(), Options{SiteLabel: "newsflow.app"})
	var c collector

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			req := model.RenderRequest{
				Post:     model.Post{ID: id, Title: summitTitle},
				Template: model.TemplateModern,
			}
			if err := p.Render(context.Background(), req, c.deliver); err != nil {
				t.Errorf("Render failed: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	if got := len(c.all()); got != 4 {
		t.Errorf("delivered %d graphics, want 4", got)
	}
}
