// Package redisstore keeps balances in per-user hashes and histories in
// per-user lists of JSON entries. History ids come from a single INCR counter.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/baharkarakas/point-ledger/internal/models"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/redis/go-redis/v9"
)

type Option func(*options)

type options struct {
	prefix string
	now    func() time.Time
}

func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = strings.Trim(prefix, ":") }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type Repositories struct {
	Balances  *BalancesStore
	Histories *HistoriesStore
}

func NewRepositories(rdb *redis.Client, opts ...Option) Repositories {
	o := options{prefix: "point", now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return Repositories{
		Balances:  &BalancesStore{rdb: rdb, opts: o},
		Histories: &HistoriesStore{rdb: rdb, opts: o},
	}
}

var (
	_ repo.Balances  = (*BalancesStore)(nil)
	_ repo.Histories = (*HistoriesStore)(nil)
)

type BalancesStore struct {
	rdb  *redis.Client
	opts options
}

func (s *BalancesStore) key(userID int64) string {
	return fmt.Sprintf("%s:balance:%d", s.opts.prefix, userID)
}

func (s *BalancesStore) Get(ctx context.Context, userID int64) (models.Balance, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return models.Balance{}, fmt.Errorf("%w: hgetall balance: %w", repo.ErrUnavailable, err)
	}
	if len(vals) == 0 {
		return models.EmptyBalance(userID), nil
	}

	amount, err := strconv.ParseInt(vals["amount"], 10, 64)
	if err != nil {
		return models.Balance{}, fmt.Errorf("parse amount: %w", err)
	}
	nanos, err := strconv.ParseInt(vals["updated_at"], 10, 64)
	if err != nil {
		return models.Balance{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return models.Balance{UserID: userID, Amount: amount, LastUpdatedAt: time.Unix(0, nanos)}, nil
}

func (s *BalancesStore) Put(ctx context.Context, userID int64, amount int64) (models.Balance, error) {
	now := s.opts.now()
	err := s.rdb.HSet(ctx, s.key(userID),
		"amount", amount,
		"updated_at", now.UnixNano(),
	).Err()
	if err != nil {
		return models.Balance{}, fmt.Errorf("%w: hset balance: %w", repo.ErrUnavailable, err)
	}
	return models.Balance{UserID: userID, Amount: amount, LastUpdatedAt: time.Unix(0, now.UnixNano())}, nil
}

type HistoriesStore struct {
	rdb  *redis.Client
	opts options
}

func (s *HistoriesStore) seqKey() string { return s.opts.prefix + ":history:seq" }

func (s *HistoriesStore) listKey(userID int64) string {
	return fmt.Sprintf("%s:history:%d", s.opts.prefix, userID)
}

func (s *HistoriesStore) Append(ctx context.Context, userID, amount int64, kind models.TransactionType, at time.Time) (models.HistoryEntry, error) {
	id, err := s.rdb.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("%w: incr history seq: %w", repo.ErrUnavailable, err)
	}

	h := models.HistoryEntry{ID: id, UserID: userID, Amount: amount, Type: kind, CreatedAt: at}
	raw, err := json.Marshal(h)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("encode history: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.listKey(userID), raw).Err(); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("%w: rpush history: %w", repo.ErrUnavailable, err)
	}
	return h, nil
}

func (s *HistoriesStore) ListByUser(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	raws, err := s.rdb.LRange(ctx, s.listKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: lrange history: %w", repo.ErrUnavailable, err)
	}

	out := make([]models.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var h models.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		if !h.Type.Valid() {
			return nil, fmt.Errorf("history %d: unknown type %q", h.ID, h.Type)
		}
		out = append(out, h)
	}
	return out, nil
}
