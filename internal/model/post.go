package model

// Post is a WordPress post as seen by the renderer. It is owned by the caller
// and never mutated during a render.
type Post struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"` // plain text, HTML already stripped
	Link             string `json:"link"`
	FeaturedImageURL string `json:"featured_image_url"`
	AIImageURL       string `json:"ai_image_url,omitempty"` // optional generated image
	Caption          string `json:"caption,omitempty"`      // optional generated caption
}

// BackgroundURL returns the image the graphic is built on: the generated image
// when there is one, otherwise the featured image.
func (p Post) BackgroundURL() string {
	if p.AIImageURL != "" {
		return p.AIImageURL
	}

	return p.FeaturedImageURL
}
