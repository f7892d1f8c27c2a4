package pebblestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/point-ledger/internal/models"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/cockroachdb/pebble"
)

var _ repo.Histories = (*HistoriesStore)(nil)

var kindCodes = map[models.TransactionType]byte{
	models.TxnCharge: 1,
	models.TxnUse:    2,
}

func kindFromCode(c byte) (models.TransactionType, error) {
	for k, v := range kindCodes {
		if v == c {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown history kind %d", c)
}

// [kind:1][amount:8][createdAt:8]
func encodeHistory(kind models.TransactionType, amount int64, at time.Time) ([]byte, error) {
	code, ok := kindCodes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown history kind %q", kind)
	}
	buf := make([]byte, 17)
	buf[0] = code
	binary.BigEndian.PutUint64(buf[1:9], uint64(amount))
	binary.BigEndian.PutUint64(buf[9:17], uint64(at.UnixNano()))
	return buf, nil
}

func decodeHistory(b []byte) (kind models.TransactionType, amount int64, at time.Time, err error) {
	if len(b) != 17 {
		return "", 0, time.Time{}, errors.New("invalid history record length")
	}
	kind, err = kindFromCode(b[0])
	if err != nil {
		return "", 0, time.Time{}, err
	}
	amount = int64(binary.BigEndian.Uint64(b[1:9]))
	at = time.Unix(0, int64(binary.BigEndian.Uint64(b[9:17])))
	return kind, amount, at, nil
}

type HistoriesStore struct {
	s *Store
}

// Append writes the entry and the advanced sequence in one synced batch.
func (h *HistoriesStore) Append(_ context.Context, userID, amount int64, kind models.TransactionType, at time.Time) (models.HistoryEntry, error) {
	at = time.Unix(0, at.UnixNano())
	val, err := encodeHistory(kind, amount, at)
	if err != nil {
		return models.HistoryEntry{}, err
	}

	h.s.seqMu.Lock()
	defer h.s.seqMu.Unlock()

	id := h.s.seq + 1
	batch := h.s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(historyKey(userID, id), val, nil); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("%w: stage history: %w", repo.ErrUnavailable, err)
	}
	if err := batch.Set(seqKey, encodeInt64(id), nil); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("%w: stage history seq: %w", repo.ErrUnavailable, err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("%w: commit history: %w", repo.ErrUnavailable, err)
	}
	h.s.seq = id

	return models.HistoryEntry{ID: id, UserID: userID, Amount: amount, Type: kind, CreatedAt: at}, nil
}

func (h *HistoriesStore) ListByUser(_ context.Context, userID int64) ([]models.HistoryEntry, error) {
	prefix := historyPrefix(userID)
	iter, err := h.s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "~"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: history iterator: %w", repo.ErrUnavailable, err)
	}
	defer iter.Close()

	out := []models.HistoryEntry{}
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := parseHistoryID(iter.Key(), prefix)
		if err != nil {
			return nil, err
		}
		kind, amount, at, err := decodeHistory(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, models.HistoryEntry{ID: id, UserID: userID, Amount: amount, Type: kind, CreatedAt: at})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: iterate history: %w", repo.ErrUnavailable, err)
	}
	return out, nil
}
