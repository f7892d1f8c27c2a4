// Package pebblestore keeps balances and histories in an embedded pebble DB.
//
// Keys:
//
//	balance/{user:020}              -> [amount:8][updatedAt:8]
//	history/{user:020}/{id:020}     -> [kind:1][amount:8][createdAt:8]
//	meta/history_seq                -> [seq:8]
//
// All integers are big-endian. Every write is committed with pebble.Sync.
package pebblestore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/cockroachdb/pebble"
)

var seqKey = []byte("meta/history_seq")

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the pebble handle shared by both repositories.
type Store struct {
	db  *pebble.DB
	now func() time.Time

	seqMu sync.Mutex
	seq   int64

	Balances  *BalancesStore
	Histories *HistoriesStore
}

func Open(dir string, opts ...Option) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	seq, err := s.loadSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.seq = seq

	s.Balances = &BalancesStore{s: s}
	s.Histories = &HistoriesStore{s: s}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadSeq() (int64, error) {
	val, closer, err := s.db.Get(seqKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read history seq: %w", repo.ErrUnavailable, err)
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, errors.New("invalid history seq length")
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

// -------------------- Keys --------------------

func balanceKey(userID int64) []byte {
	return []byte(fmt.Sprintf("balance/%020d", userID))
}

func historyPrefix(userID int64) string {
	return fmt.Sprintf("history/%020d/", userID)
}

func historyKey(userID, id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", historyPrefix(userID), id))
}

func parseHistoryID(key []byte, prefix string) (int64, error) {
	var id int64
	if len(key) <= len(prefix) {
		return 0, fmt.Errorf("invalid history key %q", key)
	}
	_, err := fmt.Sscanf(string(key[len(prefix):]), "%d", &id)
	return id, err
}

// -------------------- Encoding --------------------

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

// [amount:8][updatedAt:8]
func encodeBalance(amount int64, at time.Time) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(amount))
	binary.BigEndian.PutUint64(buf[8:16], uint64(at.UnixNano()))
	return buf
}

func decodeBalance(b []byte) (amount int64, at time.Time, err error) {
	if len(b) != 16 {
		return 0, time.Time{}, errors.New("invalid balance record length")
	}
	amount = int64(binary.BigEndian.Uint64(b[0:8]))
	at = time.Unix(0, int64(binary.BigEndian.Uint64(b[8:16])))
	return amount, at, nil
}
