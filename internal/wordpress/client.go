package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/aliskhannn/newsflow/internal/model"
)

const postsPath = "/wp-json/wp/v2/posts"

// Client reads posts from the WordPress REST API.
type Client struct {
	baseURL    string
	perPage    int
	httpClient *http.Client
}

// NewClient creates a Client for the site at baseURL. A nil httpClient
// gets a default one with a 15s timeout.
func NewClient(baseURL string, perPage int, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if perPage <= 0 {
		perPage = 10
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		perPage:    perPage,
		httpClient: httpClient,
	}
}

type wpPost struct {
	ID    int64  `json:"id"`
	Link  string `json:"link"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Embedded struct {
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

// Posts returns the newest posts, newest first.
func (c *Client) Posts(ctx context.Context) ([]model.Post, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("_embed", "1")
	q.Set("orderby", "date")
	q.Set("order", "desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+postsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build posts request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch posts: unexpected status %d", resp.StatusCode)
	}

	var raw []wpPost
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	posts := make([]model.Post, 0, len(raw))
	for _, p := range raw {
		post := model.Post{
			ID:    p.ID,
			Title: plainText(p.Title.Rendered),
			Link:  p.Link,
		}
		if len(p.Embedded.FeaturedMedia) > 0 {
			post.FeaturedImageURL = p.Embedded.FeaturedMedia[0].SourceURL
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// plainText strips markup from a rendered title and decodes its entities.
func plainText(rendered string) string {
	z := html.NewTokenizer(strings.NewReader(rendered))

	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
