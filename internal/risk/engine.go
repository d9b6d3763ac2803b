package risk

import (
	"math"
	"sort"
	"sync"
	"time"

	"sentinel-toxicity/internal/config"
)

type Key struct {
	GuildID string
	UserID  string
}

type entry struct {
	score      float64
	lastUpdate time.Time
}

// Engine tracks a decaying per-member risk score. Flagged messages push it up;
// it drains linearly at DecayPerMinute and is forgotten after TTLMinutes idle.
type Engine struct {
	mu      sync.Mutex
	cfg     config.RiskConfig
	clock   Clock
	entries map[Key]*entry
}

type ScoreEntry struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewEngine(cfg config.RiskConfig) *Engine {
	return &Engine{
		cfg:     cfg,
		clock:   realClock{},
		entries: make(map[Key]*entry),
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

func (e *Engine) AddRisk(guildID, userID string, delta float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := Key{GuildID: guildID, UserID: userID}
	now := e.clock.Now()

	item := e.refresh(key, now)
	if item == nil {
		item = &entry{lastUpdate: now}
		e.entries[key] = item
	}
	item.score = math.Max(0, item.score+delta)
	return item.score
}

func (e *Engine) GetScore(guildID, userID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	item := e.refresh(Key{GuildID: guildID, UserID: userID}, e.clock.Now())
	if item == nil {
		return 0
	}
	return item.score
}

// EffectiveScore discounts risk by the member's trust.
func (e *Engine) EffectiveScore(riskScore, trustScore float64) float64 {
	return math.Max(0, riskScore-(trustScore*e.cfg.TrustWeight))
}

func (e *Engine) Reset(guildID, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.entries, Key{GuildID: guildID, UserID: userID})
}

func (e *Engine) Top(guildID string, limit int) []ScoreEntry {
	if limit <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	entries := make([]ScoreEntry, 0, limit)
	for key := range e.entries {
		if key.GuildID != guildID {
			continue
		}
		item := e.refresh(key, now)
		if item == nil || item.score == 0 {
			continue
		}
		entries = append(entries, ScoreEntry{UserID: key.UserID, Score: item.score})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score == entries[j].Score {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// refresh applies decay and expiry; callers hold mu.
func (e *Engine) refresh(key Key, now time.Time) *entry {
	item := e.entries[key]
	if item == nil {
		return nil
	}
	if e.isExpired(item.lastUpdate, now) {
		delete(e.entries, key)
		return nil
	}
	item.score = e.decay(item.score, item.lastUpdate, now)
	item.lastUpdate = now
	return item
}

func (e *Engine) decay(score float64, lastUpdate, now time.Time) float64 {
	minutes := now.Sub(lastUpdate).Minutes()
	if minutes <= 0 {
		return score
	}
	return math.Max(0, score-(minutes*e.cfg.DecayPerMinute))
}

func (e *Engine) isExpired(lastUpdate, now time.Time) bool {
	if e.cfg.TTLMinutes <= 0 {
		return false
	}
	return now.Sub(lastUpdate) > (time.Duration(e.cfg.TTLMinutes) * time.Minute)
}
