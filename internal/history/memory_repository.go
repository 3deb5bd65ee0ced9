package history

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/weatherodds/weatherodds/internal/climate"
)

// DefaultCapacity bounds an InMemoryRepository created with capacity <= 0.
const DefaultCapacity = 1000

// InMemoryRepository keeps the most recent analyses in process memory.
// The oldest entry is evicted once capacity is reached.
type InMemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string][]byte
	order    []string
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository(capacity int) *InMemoryRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryRepository{
		capacity: capacity,
		entries:  make(map[string][]byte),
	}
}

// Save stores an encoded copy of res so later mutation by the caller is not visible.
func (r *InMemoryRepository) Save(_ context.Context, res *climate.AnalysisResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[res.ID]; ok {
		return nil
	}
	if len(r.order) >= r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.entries, oldest)
	}
	r.entries[res.ID] = data
	r.order = append(r.order, res.ID)
	return nil
}

// Get retrieves an analysis by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*climate.AnalysisResult, error) {
	r.mu.RLock()
	data, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var res climate.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// List returns the newest analyses first.
func (r *InMemoryRepository) List(ctx context.Context, limit int) ([]Summary, error) {
	limit = ClampLimit(limit)

	r.mu.RLock()
	ids := make([]string, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(ids) < limit; i-- {
		ids = append(ids, r.order[i])
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		res, err := r.Get(ctx, id)
		if err != nil {
			// Evicted between the snapshot and the read.
			continue
		}
		out = append(out, summarize(res))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out, nil
}

// Len returns the number of stored analyses.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
