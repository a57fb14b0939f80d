package words

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Index maps source titles to their word counts, loaded once from a JSON
// file of the form {"Title": 123, ...}. Lookups on unknown titles return 0.
type Index struct {
	mu     sync.RWMutex
	counts map[string]int
}

// Load reads the word count index from path. A missing file yields an empty
// index rather than an error: word counts are advisory.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{counts: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("read words file: %w", err)
	}

	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("parse words file: %w", err)
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return &Index{counts: counts}, nil
}

// Count returns the word count for title, or 0 when unknown.
func (i *Index) Count(title string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.counts[title]
}

// Len reports how many titles the index holds.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.counts)
}
