package mysql

import (
	"context"
	"fmt"

	"publish-service/app/domain"
)

// QidRepository maps source article titles to Wikidata item ids via the
// qids table.
type QidRepository struct {
	client *Client
}

func NewQidRepository(client *Client) *QidRepository {
	return &QidRepository{client: client}
}

const qidsSchema = `
CREATE TABLE IF NOT EXISTS qids (
    title VARCHAR(255) NOT NULL,
    qid VARCHAR(25) NOT NULL,
    PRIMARY KEY (title)
)`

// EnsureSchema creates the qids table when missing.
func (r *QidRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.Execute(ctx, qidsSchema); err != nil {
		return fmt.Errorf("ensure qids schema: %w", err)
	}
	return nil
}

// GetQidByTitle returns the Wikidata item id for a source title, or
// domain.ErrNotFound when the title is unmapped.
func (r *QidRepository) GetQidByTitle(ctx context.Context, title string) (string, error) {
	rows, err := r.client.Fetch(ctx, "SELECT qid FROM qids WHERE title = ?", title)
	if err != nil {
		return "", fmt.Errorf("fetch qid for %s: %w", title, err)
	}
	if len(rows) == 0 {
		return "", domain.ErrNotFound
	}
	qid, _ := rows[0]["qid"].(string)
	if qid == "" {
		return "", domain.ErrNotFound
	}
	return qid, nil
}

// Add maps a title to an item id, replacing any previous mapping.
func (r *QidRepository) Add(ctx context.Context, title, qid string) error {
	query := "INSERT INTO qids (title, qid) VALUES (?, ?) ON DUPLICATE KEY UPDATE qid = VALUES(qid)"
	if _, err := r.client.Execute(ctx, query, title, qid); err != nil {
		return fmt.Errorf("add qid mapping %s -> %s: %w", title, qid, err)
	}
	return nil
}
