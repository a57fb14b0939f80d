package mysql

import (
	"context"
	"fmt"
	"sync"
)

// CategoryRepository resolves campaign names to content categories from the
// categories table. The full table is small and changes rarely, so it is
// loaded once and memoized until Invalidate.
type CategoryRepository struct {
	client *Client

	mu     sync.Mutex
	cache  map[string]string
	loaded bool
}

func NewCategoryRepository(client *Client) *CategoryRepository {
	return &CategoryRepository{client: client}
}

// CategoryForCampaign returns the category recorded for a campaign, or the
// empty string when the campaign is unknown.
func (r *CategoryRepository) CategoryForCampaign(ctx context.Context, campaign string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		rows, err := r.client.Fetch(ctx, "SELECT campaign, category FROM categories")
		if err != nil {
			return "", fmt.Errorf("load campaign categories: %w", err)
		}
		cache := make(map[string]string, len(rows))
		for _, row := range rows {
			name, _ := row["campaign"].(string)
			category, _ := row["category"].(string)
			if name != "" {
				cache[name] = category
			}
		}
		r.cache = cache
		r.loaded = true
	}

	return r.cache[campaign], nil
}

// Invalidate drops the memoized table so the next lookup reloads it.
func (r *CategoryRepository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.cache = nil
}
