package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/flatval/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// noExpiry is the index score of sessions without a TTL (2100-01-01, in ms).
const noExpiry = 4102444800000

// Store implements ports.HistoryStore using Redis.
//
// Each session is a list of JSON entries under prefix+sessionID. A sorted set
// under prefix+"index" records every live session scored by its expiry, so
// empty sessions exist too and expired ones are pruned lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Every append extends it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides the clock used to score the session index.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "flatval:history:",
		ttl:    0, // No expiration by default
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) expiry() float64 {
	if s.ttl == 0 {
		return noExpiry
	}
	return float64(s.now().Add(s.ttl).UnixMilli())
}

// Create registers the session in the index.
func (s *Store) Create(ctx context.Context, sessionID string) error {
	err := s.client.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.expiry(), Member: sessionID}).Err()
	if err != nil {
		return fmt.Errorf("failed to create session in redis: %w", err)
	}
	return nil
}

// Append pushes the entry and refreshes the session's expiry.
func (s *Store) Append(ctx context.Context, sessionID string, entry domain.Entry) error {
	if !entry.Status.Terminal() {
		return domain.ErrEntryPending
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(sessionID), data)
	if s.ttl > 0 {
		pipe.PExpire(ctx, s.key(sessionID), s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.expiry(), Member: sessionID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// List returns the session's entries, oldest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]domain.Entry, error) {
	score, err := s.client.ZScore(ctx, s.indexKey(), sessionID).Result()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if score <= float64(s.now().UnixMilli()) {
		return nil, domain.ErrSessionNotFound
	}

	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history from redis: %w", err)
	}

	entries := make([]domain.Entry, 0, len(raw))
	for i, item := range raw {
		var e domain.Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear removes the session's entries and its index record.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	_, err := pipe.Exec(ctx)
	return err
}

// Sessions returns live sessions, pruning expired ones from the index first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
