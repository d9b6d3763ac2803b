package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel-toxicity/internal/storage"
)

type fakeStore struct {
	flags []storage.FlaggedMessage
	logs  []storage.AuditLog
	err   error
}

func (f fakeStore) ListFlaggedMessages(context.Context, string, time.Time, int) ([]storage.FlaggedMessage, error) {
	return f.flags, f.err
}

func (f fakeStore) ListAuditLogs(context.Context, string, time.Time) ([]storage.AuditLog, error) {
	return f.logs, nil
}

func TestReport(t *testing.T) {
	store := fakeStore{
		flags: []storage.FlaggedMessage{
			{UserID: "u1", Labels: []string{"Aggro"}, Level: "WARN"},
			{UserID: "u1", Labels: []string{"Aggro", "Violence"}, Level: "CRIT"},
			{UserID: "u2", Labels: []string{"Hateful"}, Level: "WARN"},
		},
		logs: []storage.AuditLog{{Level: "WARN"}, {Level: "WARN"}, {Level: "INFO"}},
	}
	report, err := New(store).Report(context.Background(), "g1", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("expected 3 flags, got %d", report.Total)
	}
	if report.ByLabel["Aggro"] != 2 || report.ByLabel["Violence"] != 1 {
		t.Fatalf("unexpected label counts %v", report.ByLabel)
	}
	if report.ByLevel["CRIT"] != 1 || report.AuditByLevel["WARN"] != 2 {
		t.Fatalf("unexpected level counts %v %v", report.ByLevel, report.AuditByLevel)
	}
	if len(report.TopUsers) != 2 || report.TopUsers[0].UserID != "u1" || report.TopUsers[0].Flags != 2 {
		t.Fatalf("unexpected top users %v", report.TopUsers)
	}
	labels := report.Labels()
	if labels[0] != "Aggro" || labels[1] != "Hateful" || labels[2] != "Violence" {
		t.Fatalf("unexpected label order %v", labels)
	}
}

func TestReportPropagatesErrors(t *testing.T) {
	store := fakeStore{err: errors.New("db down")}
	if _, err := New(store).Report(context.Background(), "g1", time.Unix(0, 0)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Unix(10*24*3600, 0)
	day, err := PeriodStart("", now)
	if err != nil || !day.Equal(now.Add(-24*time.Hour)) {
		t.Fatalf("unexpected day start %s %v", day, err)
	}
	week, err := PeriodStart("WEEK", now)
	if err != nil || !week.Equal(now.Add(-7*24*time.Hour)) {
		t.Fatalf("unexpected week start %s %v", week, err)
	}
	if _, err := PeriodStart("year", now); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}
