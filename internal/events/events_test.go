package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/baharkarakas/point-ledger/internal/lock"
	"github.com/baharkarakas/point-ledger/internal/models"
	"github.com/baharkarakas/point-ledger/internal/repository/memory"
	"github.com/baharkarakas/point-ledger/internal/services"
	"github.com/baharkarakas/point-ledger/internal/worker"
	"github.com/segmentio/kafka-go"
)

func sampleChange(userID, historyID int64) services.Change {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	return services.Change{
		Entry:   models.HistoryEntry{ID: historyID, UserID: userID, Amount: 300, Type: models.TxnCharge, CreatedAt: at},
		Balance: models.Balance{UserID: userID, Amount: 1_300, LastUpdatedAt: at},
	}
}

func TestPointChanged_Encode(t *testing.T) {
	t.Parallel()

	ev := FromChange(sampleChange(7, 12))
	raw, err := ev.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"v":          float64(Version),
		"user_id":    float64(7),
		"history_id": float64(12),
		"type":       "CHARGE",
		"amount":     float64(300),
		"balance":    float64(1_300),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: want %v, got %v", k, v, got[k])
		}
	}
	if got["event_id"] == "" || got["occurred_at"] != "2024-05-01T09:30:00Z" {
		t.Errorf("unexpected envelope %v", got)
	}
	if string(ev.Key()) != "7" {
		t.Errorf("key: %q", ev.Key())
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	ev := FromChange(sampleChange(3, 1))

	if err := p.Publish(testContext(t), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "3" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}

	w.err = errors.New("broker down")
	if err := p.Publish(testContext(t), ev); !errors.Is(err, w.err) {
		t.Fatalf("want wrapped broker error, got %v", err)
	}
}

func TestSaramaPublisher(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev PointChanged
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.UserID != 9 {
			return errors.New("wrong user")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newSaramaPublisher(producer, "point-events")
	if err := p.Publish(testContext(t), FromChange(sampleChange(9, 1))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Publish(testContext(t), FromChange(sampleChange(9, 2))); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("want ErrOutOfBrokers, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	got  []PointChanged
	fail bool
}

func (r *recordingPublisher) Publish(_ context.Context, ev PointChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("publish failed")
	}
	r.got = append(r.got, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	pool := worker.NewPool(4, 64)
	d := NewDispatcher(pub, pool, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 60; i++ {
		d.Notify(sampleChange(int64(i%3), int64(i+1)))
	}
	pool.Stop()

	if len(pub.got) != 60 {
		t.Fatalf("want 60 events, got %d", len(pub.got))
	}
	last := map[int64]int64{}
	for _, ev := range pub.got {
		if ev.HistoryID <= last[ev.UserID] {
			t.Fatalf("user %d: history %d published after %d", ev.UserID, ev.HistoryID, last[ev.UserID])
		}
		last[ev.UserID] = ev.HistoryID
	}
}

func TestDispatcher_FailuresDoNotPanic(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{fail: true}
	pool := worker.NewPool(1, 1)
	d := NewDispatcher(pub, pool, slog.New(slog.NewTextHandler(io.Discard, nil)))

	d.Notify(sampleChange(1, 1))
	pool.Stop()
	d.Notify(sampleChange(1, 2))

	if len(pub.got) != 0 {
		t.Fatalf("nothing should be recorded, got %d", len(pub.got))
	}
}

// stuckPublisher never returns until release is closed, like a broker that
// accepts the connection and then hangs.
type stuckPublisher struct {
	release chan struct{}
	calls   atomic.Int64
}

func (p *stuckPublisher) Publish(ctx context.Context, _ PointChanged) error {
	p.calls.Add(1)
	<-p.release
	return nil
}

func (p *stuckPublisher) Close() error { return nil }

func TestDispatcher_BacklogDoesNotBlockOtherUsers(t *testing.T) {
	t.Parallel()

	pub := &stuckPublisher{release: make(chan struct{})}
	pool := worker.NewPool(1, 1)
	t.Cleanup(func() {
		close(pub.release)
		pool.Stop()
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewRepositories()
	svc := services.NewPointService(lock.NewRegistry(), repos.Balances, repos.Histories,
		services.WithLogger(log),
		services.WithNotifier(NewDispatcher(pub, pool, log)),
	)

	// user 1 occupies the only worker and fills its buffer
	for i := 0; i < 3; i++ {
		if _, err := svc.Charge(testContext(t), 1, 1); err != nil {
			t.Fatalf("charge user 1: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Charge(testContext(t), 2, 10)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("charge user 2: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("user 2 charge blocked behind user 1's undelivered events")
	}

	b, err := svc.GetBalance(testContext(t), 2)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if b.Amount != 10 {
		t.Fatalf("want 10, got %d", b.Amount)
	}
}
