package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

type UserInfraction struct {
	GuildID    string
	UserID     string
	Label      string
	CountTotal int
	LastAt     time.Time
	LastAction string
	ResetAt    *time.Time
}

func (s *Store) GetInfraction(ctx context.Context, guildID, userID, label string) (UserInfraction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT guild_id, user_id, label, count_total, last_at, last_action, reset_at
		FROM user_infractions
		WHERE guild_id = $1 AND user_id = $2 AND label = $3
	`, guildID, userID, label)

	var inf UserInfraction
	err := row.Scan(&inf.GuildID, &inf.UserID, &inf.Label, &inf.CountTotal, &inf.LastAt, &inf.LastAction, &inf.ResetAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserInfraction{}, nil
		}
		return UserInfraction{}, err
	}
	return inf, nil
}

// IncrementInfraction bumps the counter for one label and returns the new
// count. A counter whose reset_at has passed starts again from zero.
func (s *Store) IncrementInfraction(ctx context.Context, guildID, userID, label, lastAction string, forgiveAfter time.Duration) (int, error) {
	now := s.now()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var count int
	var resetAt *time.Time
	scanErr := tx.QueryRow(ctx, `
		SELECT count_total, reset_at
		FROM user_infractions
		WHERE guild_id = $1 AND user_id = $2 AND label = $3
		FOR UPDATE
	`, guildID, userID, label).Scan(&count, &resetAt)
	if scanErr != nil && !errors.Is(scanErr, pgx.ErrNoRows) {
		err = scanErr
		return 0, err
	}
	if scanErr == nil && resetAt != nil && !now.Before(*resetAt) {
		count = 0
	}

	count++
	var nextReset *time.Time
	if forgiveAfter > 0 {
		value := now.Add(forgiveAfter)
		nextReset = &value
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_infractions (guild_id, user_id, label, count_total, last_at, last_action, reset_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guild_id, user_id, label) DO UPDATE SET
			count_total = excluded.count_total,
			last_at = excluded.last_at,
			last_action = excluded.last_action,
			reset_at = excluded.reset_at
	`, guildID, userID, label, count, now, lastAction, nextReset)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}
