package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel-toxicity/internal/storage"

	"go.uber.org/zap"
)

type fakeStore struct {
	logs []storage.AuditLog
	err  error
}

func (f *fakeStore) AddAuditLog(_ context.Context, log storage.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

func TestLogPersistsAndNotifies(t *testing.T) {
	store := &fakeStore{}
	logger := NewLogger(store, zap.NewNop())
	fixed := time.Unix(100, 0)
	logger.now = func() time.Time { return fixed }

	var notified []storage.AuditLog
	logger.SetNotifier(func(_ context.Context, entry storage.AuditLog) {
		notified = append(notified, entry)
	})

	logger.Log(context.Background(), LevelWarn, "g1", "u1", "toxicity_flag", "labels=Aggro")

	if len(store.logs) != 1 {
		t.Fatalf("expected 1 stored entry, got %d", len(store.logs))
	}
	got := store.logs[0]
	if got.Level != LevelWarn || got.Event != "toxicity_flag" || !got.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected entry %+v", got)
	}
	if len(notified) != 1 || notified[0].Details != "labels=Aggro" {
		t.Fatalf("expected notifier call, got %+v", notified)
	}
}

func TestLogNotifiesWhenStoreFails(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	logger := NewLogger(store, zap.NewNop())

	called := false
	logger.SetNotifier(func(context.Context, storage.AuditLog) { called = true })
	logger.Log(context.Background(), LevelCrit, "g1", "u1", "toxicity_escalation", "")

	if !called {
		t.Fatalf("notifier must run even when persistence fails")
	}
}

func TestLogWithoutStore(t *testing.T) {
	logger := NewLogger(nil, zap.NewNop())
	logger.Log(context.Background(), LevelInfo, "g1", "", "settings_update", "mode=audit")
}
