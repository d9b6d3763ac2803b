package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FlaggedMessage struct {
	ID        uuid.UUID `json:"id"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Processed string    `json:"processed"`
	Matches   []string  `json:"matches"`
	Labels    []string  `json:"labels"`
	Score     int       `json:"score"`
	Level     string    `json:"level"`
	Links     []string  `json:"links"`
	CreatedAt time.Time `json:"created_at"`
}

// AddFlaggedMessage stores a flag, assigning an id and timestamp when unset.
func (s *Store) AddFlaggedMessage(ctx context.Context, flag FlaggedMessage) (FlaggedMessage, error) {
	if flag.ID == uuid.Nil {
		flag.ID = uuid.New()
	}
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = s.now()
	}
	flag.Matches = nonNil(flag.Matches)
	flag.Labels = nonNil(flag.Labels)
	flag.Links = nonNil(flag.Links)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO flagged_messages (
			id, guild_id, channel_id, message_id, user_id, content, processed,
			matches, labels, score, level, links, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		flag.ID,
		flag.GuildID,
		flag.ChannelID,
		flag.MessageID,
		flag.UserID,
		flag.Content,
		flag.Processed,
		flag.Matches,
		flag.Labels,
		flag.Score,
		flag.Level,
		flag.Links,
		flag.CreatedAt,
	)
	if err != nil {
		return FlaggedMessage{}, err
	}
	return flag, nil
}

// ListFlaggedMessages returns the newest flags of a guild created at or after
// since. A non-positive limit means no limit.
func (s *Store) ListFlaggedMessages(ctx context.Context, guildID string, since time.Time, limit int) ([]FlaggedMessage, error) {
	query := `
		SELECT id, guild_id, channel_id, message_id, user_id, content, processed,
			matches, labels, score, level, links, created_at
		FROM flagged_messages
		WHERE guild_id = $1 AND created_at >= $2
		ORDER BY created_at DESC`
	args := []any{guildID, since}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []FlaggedMessage
	for rows.Next() {
		var flag FlaggedMessage
		if err := rows.Scan(
			&flag.ID,
			&flag.GuildID,
			&flag.ChannelID,
			&flag.MessageID,
			&flag.UserID,
			&flag.Content,
			&flag.Processed,
			&flag.Matches,
			&flag.Labels,
			&flag.Score,
			&flag.Level,
			&flag.Links,
			&flag.CreatedAt,
		); err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
