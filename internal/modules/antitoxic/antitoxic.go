package antitoxic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentinel-toxicity/internal/config"
	"sentinel-toxicity/internal/metrics"
	"sentinel-toxicity/internal/modules/audit"
	"sentinel-toxicity/internal/risk"
	"sentinel-toxicity/internal/storage"
	"sentinel-toxicity/internal/toxicity"
	"sentinel-toxicity/internal/trust"
	"sentinel-toxicity/internal/utils"

	"go.uber.org/zap"
)

const (
	ActionFlag     = "flag"
	ActionEscalate = "escalate"
	ActionDelete   = "delete"
)

type Classifier interface {
	Classify(ctx context.Context, text string) (toxicity.Verdict, error)
}

type Store interface {
	AddFlaggedMessage(ctx context.Context, flag storage.FlaggedMessage) (storage.FlaggedMessage, error)
	IncrementInfraction(ctx context.Context, guildID, userID, label, lastAction string, forgiveAfter time.Duration) (int, error)
}

type Deleter interface {
	DeleteMessage(channelID, messageID string) error
}

type Message struct {
	GuildID   string
	ChannelID string
	ID        string
	AuthorID  string
	Content   string
}

type Outcome struct {
	Verdict     toxicity.Verdict
	Flag        storage.FlaggedMessage
	Level       string
	Action      string
	Risk        float64
	Bursts      int
	Infractions map[string]int
	Deleted     bool
}

func (o Outcome) Flagged() bool {
	return o.Verdict.Flagged()
}

type Module struct {
	cfg        config.ToxicityConfig
	classifier Classifier
	store      Store
	deleter    Deleter
	risk       *risk.Engine
	trust      *trust.Engine
	audit      *audit.Logger
	bursts     *utils.KeyedWindows
	logger     *zap.Logger
	now        func() time.Time
}

func New(cfg config.ToxicityConfig, classifier Classifier, store Store, deleter Deleter, riskEngine *risk.Engine, trustEngine *trust.Engine, auditLogger *audit.Logger, logger *zap.Logger) *Module {
	return &Module{
		cfg:        cfg,
		classifier: classifier,
		store:      store,
		deleter:    deleter,
		risk:       riskEngine,
		trust:      trustEngine,
		audit:      auditLogger,
		bursts:     utils.NewKeyedWindows(cfg.BurstWindow()),
		logger:     logger,
		now:        time.Now,
	}
}

// HandleMessage classifies one message and applies the consequences of a
// flagged verdict. A too-short message is treated as clean. A model outage
// is returned as an error wrapping toxicity.ErrUnavailable and nothing is
// recorded. Bookkeeping failures after a flag are joined into the returned
// error while the outcome still describes the flag.
func (m *Module) HandleMessage(ctx context.Context, msg Message, auditOnly bool) (Outcome, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return Outcome{}, nil
	}

	verdict, err := m.classifier.Classify(ctx, msg.Content)
	if errors.Is(err, toxicity.ErrTooShort) {
		m.trust.RewardClean(msg.GuildID, msg.AuthorID)
		return Outcome{}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("classify message %s: %w", msg.ID, err)
	}
	if !verdict.Flagged() {
		m.trust.RewardClean(msg.GuildID, msg.AuthorID)
		return Outcome{Verdict: verdict}, nil
	}

	now := m.now()
	outcome := Outcome{Verdict: verdict, Level: audit.LevelWarn, Action: ActionFlag}

	trustScore := m.trust.Penalize(msg.GuildID, msg.AuthorID, verdict.Score)
	riskScore := m.risk.AddRisk(msg.GuildID, msg.AuthorID, float64(verdict.Score)*m.cfg.RiskPerPoint)
	outcome.Risk = m.risk.EffectiveScore(riskScore, trustScore)
	outcome.Bursts = m.bursts.Add(msg.GuildID+":"+msg.AuthorID, now)

	if m.escalates(outcome) {
		outcome.Level = audit.LevelCrit
		outcome.Action = ActionEscalate
	}

	var errs []error
	if outcome.Level == audit.LevelCrit && !auditOnly && m.cfg.DeleteOnEscalation && m.deleter != nil {
		if err := m.deleter.DeleteMessage(msg.ChannelID, msg.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete message %s: %w", msg.ID, err))
		} else {
			outcome.Deleted = true
			outcome.Action = ActionDelete
		}
	}

	flag, err := m.store.AddFlaggedMessage(ctx, storage.FlaggedMessage{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		UserID:    msg.AuthorID,
		Content:   msg.Content,
		Processed: verdict.Text,
		Matches:   verdict.Matches,
		Labels:    verdict.Labels,
		Score:     verdict.Score,
		Level:     outcome.Level,
		Links:     utils.ExtractLinks(msg.Content),
		CreatedAt: now,
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("store flag: %w", err))
	}
	outcome.Flag = flag

	outcome.Infractions = make(map[string]int, len(verdict.Labels))
	for _, label := range verdict.Labels {
		count, err := m.store.IncrementInfraction(ctx, msg.GuildID, msg.AuthorID, label, outcome.Action, m.cfg.ForgiveAfter())
		if err != nil {
			errs = append(errs, fmt.Errorf("increment infraction %s: %w", label, err))
			continue
		}
		outcome.Infractions[label] = count
	}

	m.audit.Log(ctx, outcome.Level, msg.GuildID, msg.AuthorID, "toxicity_"+outcome.Action, details(outcome))
	metrics.RecordFlag(outcome.Level)
	m.logger.Debug("message flagged",
		zap.String("guild_id", msg.GuildID),
		zap.String("message_id", msg.ID),
		zap.Strings("labels", verdict.Labels),
		zap.Int("score", verdict.Score),
		zap.Float64("risk", outcome.Risk),
		zap.String("level", outcome.Level),
	)
	return outcome, errors.Join(errs...)
}

func (m *Module) escalates(outcome Outcome) bool {
	if m.cfg.EscalateRisk > 0 && outcome.Risk >= m.cfg.EscalateRisk {
		return true
	}
	return m.cfg.BurstFlags > 0 && outcome.Bursts >= m.cfg.BurstFlags
}

func details(outcome Outcome) string {
	return fmt.Sprintf("labels=%s score=%d risk=%.1f bursts=%d",
		strings.Join(outcome.Verdict.Labels, ","),
		outcome.Verdict.Score,
		outcome.Risk,
		outcome.Bursts,
	)
}
