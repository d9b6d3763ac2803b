package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sentinel-toxicity/internal/storage"
)

type Store interface {
	ListFlaggedMessages(ctx context.Context, guildID string, since time.Time, limit int) ([]storage.FlaggedMessage, error)
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

type UserCount struct {
	UserID string `json:"user_id"`
	Flags  int    `json:"flags"`
}

type Report struct {
	Since        time.Time      `json:"since"`
	Total        int            `json:"total"`
	ByLabel      map[string]int `json:"by_label"`
	ByLevel      map[string]int `json:"by_level"`
	AuditByLevel map[string]int `json:"audit_by_level"`
	TopUsers     []UserCount    `json:"top_users"`
}

const topUsers = 5

const (
	PeriodDay  = "day"
	PeriodWeek = "week"
)

// PeriodStart maps a report period name to its start time. An empty period
// means a day.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch strings.ToLower(period) {
	case "", PeriodDay:
		return now.Add(-24 * time.Hour), nil
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unknown report period %q", period)
	}
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	flags, err := s.store.ListFlaggedMessages(ctx, guildID, since, 0)
	if err != nil {
		return Report{}, err
	}
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Since:        since,
		ByLabel:      make(map[string]int),
		ByLevel:      make(map[string]int),
		AuditByLevel: make(map[string]int),
	}
	perUser := make(map[string]int)
	for _, flag := range flags {
		report.Total++
		report.ByLevel[flag.Level]++
		perUser[flag.UserID]++
		for _, label := range flag.Labels {
			report.ByLabel[label]++
		}
	}
	for _, log := range logs {
		report.AuditByLevel[log.Level]++
	}

	report.TopUsers = make([]UserCount, 0, len(perUser))
	for userID, count := range perUser {
		report.TopUsers = append(report.TopUsers, UserCount{UserID: userID, Flags: count})
	}
	sort.Slice(report.TopUsers, func(i, j int) bool {
		if report.TopUsers[i].Flags == report.TopUsers[j].Flags {
			return report.TopUsers[i].UserID < report.TopUsers[j].UserID
		}
		return report.TopUsers[i].Flags > report.TopUsers[j].Flags
	})
	if len(report.TopUsers) > topUsers {
		report.TopUsers = report.TopUsers[:topUsers]
	}
	return report, nil
}

// Labels returns the report's labels sorted by count, most frequent first.
func (r Report) Labels() []string {
	labels := make([]string, 0, len(r.ByLabel))
	for label := range r.ByLabel {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if r.ByLabel[labels[i]] == r.ByLabel[labels[j]] {
			return labels[i] < labels[j]
		}
		return r.ByLabel[labels[i]] > r.ByLabel[labels[j]]
	})
	return labels
}
