package trust

import (
	"math"
	"sync"
	"time"

	"sentinel-toxicity/internal/config"
)

type key struct {
	guildID string
	userID  string
}

type entry struct {
	score      float64
	lastUpdate time.Time
}

// Engine keeps a bounded trust score per member. Clean messages earn
// CleanMessage, flagged ones cost FlagPenalty per verdict point.
type Engine struct {
	mu      sync.Mutex
	cfg     config.TrustConfig
	clock   Clock
	entries map[key]*entry
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewEngine(cfg config.TrustConfig) *Engine {
	return &Engine{
		cfg:     cfg,
		clock:   realClock{},
		entries: make(map[key]*entry),
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

// RewardClean records a message that passed moderation.
func (e *Engine) RewardClean(guildID, userID string) float64 {
	return e.Increase(guildID, userID, e.cfg.CleanMessage)
}

// Penalize lowers trust in proportion to a verdict score.
func (e *Engine) Penalize(guildID, userID string, score int) float64 {
	return e.Decrease(guildID, userID, e.cfg.FlagPenalty*float64(score))
}

func (e *Engine) Increase(guildID, userID string, delta float64) float64 {
	return e.update(guildID, userID, func(score float64) float64 {
		return math.Min(e.cfg.MaxScore, score+delta)
	})
}

func (e *Engine) Decrease(guildID, userID string, delta float64) float64 {
	return e.update(guildID, userID, func(score float64) float64 {
		return math.Max(0, score-delta)
	})
}

func (e *Engine) GetScore(guildID, userID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := key{guildID: guildID, userID: userID}
	item := e.entries[k]
	if item == nil {
		return 0
	}
	if e.isExpired(item.lastUpdate, e.clock.Now()) {
		delete(e.entries, k)
		return 0
	}
	return item.score
}

func (e *Engine) update(guildID, userID string, apply func(float64) float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := key{guildID: guildID, userID: userID}
	now := e.clock.Now()

	item := e.entries[k]
	if item == nil || e.isExpired(item.lastUpdate, now) {
		item = &entry{}
		e.entries[k] = item
	}
	item.score = apply(item.score)
	item.lastUpdate = now
	return item.score
}

func (e *Engine) isExpired(lastUpdate, now time.Time) bool {
	if e.cfg.TTLMinutes <= 0 {
		return false
	}
	return now.Sub(lastUpdate) > (time.Duration(e.cfg.TTLMinutes) * time.Minute)
}
