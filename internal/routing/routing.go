// Package routing keeps the table of worker group sources per order
// category and picks the destination a category's orders are routed to.
package routing

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var validCategories = map[string]struct{}{
	"unsafe":    {},
	"fund":      {},
	"safe_fast": {},
	"safe_slow": {},
}

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidSource   = errors.New("invalid source id")
	ErrDuplicateSource = errors.New("source already registered")
	ErrNoSources       = errors.New("no sources registered for category")
)

// Registry maps categories to registered source identifiers. Reads vastly
// outnumber writes, hence the RWMutex.
type Registry struct {
	mu      sync.RWMutex
	sources map[string][]string
	members map[string]map[string]struct{}
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sources: make(map[string][]string),
		members: make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

// AddSource registers a source for a category, preserving registration
// order. Duplicate registration is rejected so the table stays clean.
func (r *Registry) AddSource(category, sourceID string) error {
	if err := validate(category, sourceID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[category][sourceID]; ok {
		return fmt.Errorf("%s/%s: %w", category, sourceID, ErrDuplicateSource)
	}
	if r.members[category] == nil {
		r.members[category] = make(map[string]struct{})
	}
	r.members[category][sourceID] = struct{}{}
	r.sources[category] = append(r.sources[category], sourceID)

	r.logger.Info("routing source added",
		zap.String("category", category),
		zap.String("source_id", sourceID),
		zap.Int("total", len(r.sources[category])))
	return nil
}

// RemoveSource unregisters a source from a category.
func (r *Registry) RemoveSource(category, sourceID string) error {
	if err := validate(category, sourceID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[category][sourceID]; !ok {
		return fmt.Errorf("%s/%s: %w", category, sourceID, ErrNoSources)
	}
	delete(r.members[category], sourceID)

	kept := r.sources[category][:0]
	for _, id := range r.sources[category] {
		if id != sourceID {
			kept = append(kept, id)
		}
	}
	r.sources[category] = kept

	r.logger.Info("routing source removed",
		zap.String("category", category),
		zap.String("source_id", sourceID))
	return nil
}

// Sources returns the registered sources for a category in registration
// order.
func (r *Registry) Sources(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.sources[category]))
	copy(out, r.sources[category])
	return out
}

// PickSource returns the destination for a category: the earliest registered
// source. Registration order is the routing preference.
func (r *Registry) PickSource(category string) (string, error) {
	if _, ok := validCategories[category]; !ok {
		return "", fmt.Errorf("%q: %w", category, ErrUnknownCategory)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.sources[category]
	if len(ids) == 0 {
		return "", fmt.Errorf("%q: %w", category, ErrNoSources)
	}
	return ids[0], nil
}

// Clear drops all sources for the category, or the whole table when
// category is empty.
func (r *Registry) Clear(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if category == "" {
		r.sources = make(map[string][]string)
		r.members = make(map[string]map[string]struct{})
		r.logger.Info("routing table cleared")
		return
	}
	delete(r.sources, category)
	delete(r.members, category)
	r.logger.Info("routing sources cleared", zap.String("category", category))
}

// Stats reports how many sources each category has registered.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]int, len(validCategories))
	for cat := range validCategories {
		stats[cat] = len(r.sources[cat])
	}
	return stats
}

func validate(category, sourceID string) error {
	if _, ok := validCategories[category]; !ok {
		return fmt.Errorf("%q: %w", category, ErrUnknownCategory)
	}
	if sourceID == "" {
		return ErrInvalidSource
	}
	return nil
}
