// Package domain contains core domain types for the WordPress assistant.
package domain

import (
	"time"
)

// Kind is the WordPress content type of an item.
type Kind string

const (
	// KindPost is a blog post from the posts collection.
	KindPost Kind = "post"
	// KindPage is a static page from the pages collection.
	KindPage Kind = "page"
)

// ContentItem is a single post or page fetched from a WordPress site.
// Title and excerpt are kept exactly as rendered by WordPress and may contain markup.
type ContentItem struct {
	ID              int64     `json:"id"`
	RenderedTitle   string    `json:"title"`
	RenderedExcerpt string    `json:"excerpt"`
	Link            string    `json:"link"`
	Kind            Kind      `json:"kind"`
	PublishedAt     time.Time `json:"published_at"`
}

// SiteConnection is the content set loaded from one WordPress site.
type SiteConnection struct {
	URL       string        `json:"url"`
	Items     []ContentItem `json:"items"`
	Connected bool          `json:"connected"`
}

// ItemsByID returns the items whose IDs appear in ids, in the connection's order.
// IDs that are not loaded are dropped.
func (c SiteConnection) ItemsByID(ids []int64) []ContentItem {
	if len(ids) == 0 || len(c.Items) == 0 {
		return nil
	}
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []ContentItem
	for _, item := range c.Items {
		if _, ok := wanted[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out
}
