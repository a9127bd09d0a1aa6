package scratch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/pkg/logger"
	"go.uber.org/zap"
)

// MaxRecentSearches caps the per-user recent search list.
const MaxRecentSearches = 5

// KV is a durable per-key byte store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store keeps UI state that survives sessions: the filter snapshot and recent searches.
// Missing or undecodable entries read as "no prior state".
type Store struct {
	kv     KV
	logger logger.ZapLogger
}

func NewStore(kv KV, log logger.ZapLogger) *Store {
	return &Store{kv: kv, logger: log}
}

func filtersKey(userID string) string { return fmt.Sprintf("filters:%s", userID) }
func recentKey(userID string) string  { return fmt.Sprintf("recent:%s", userID) }

func (s *Store) LoadFilters(ctx context.Context, userID string) (model.Filters, bool) {
	var f model.Filters
	if !s.read(ctx, filtersKey(userID), &f) {
		return model.Filters{}, false
	}
	return f, true
}

func (s *Store) SaveFilters(ctx context.Context, userID string, f model.Filters) error {
	return s.write(ctx, filtersKey(userID), f)
}

func (s *Store) RecentSearches(ctx context.Context, userID string) []string {
	var terms []string
	if !s.read(ctx, recentKey(userID), &terms) {
		return []string{}
	}
	if len(terms) > MaxRecentSearches {
		terms = terms[:MaxRecentSearches]
	}
	return terms
}

// AddRecentSearch puts term at the front, dropping case-insensitive duplicates.
// Blank terms are ignored.
func (s *Store) AddRecentSearch(ctx context.Context, userID, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	current := s.RecentSearches(ctx, userID)
	if term == "" {
		return current, nil
	}

	next := []string{term}
	for _, t := range current {
		if !strings.EqualFold(t, term) {
			next = append(next, t)
		}
	}
	if len(next) > MaxRecentSearches {
		next = next[:MaxRecentSearches]
	}
	if err := s.write(ctx, recentKey(userID), next); err != nil {
		return current, err
	}
	return next, nil
}

func (s *Store) ClearRecentSearches(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, recentKey(userID))
}

func (s *Store) read(ctx context.Context, key string, v interface{}) bool {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read scratch entry", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger.Warn("Discarding unreadable scratch entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) write(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("scratch set %s: %w", key, err)
	}
	return nil
}
