package antitoxic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sentinel-toxicity/internal/config"
	"sentinel-toxicity/internal/modules/audit"
	"sentinel-toxicity/internal/risk"
	"sentinel-toxicity/internal/storage"
	"sentinel-toxicity/internal/toxicity"
	"sentinel-toxicity/internal/trust"

	"go.uber.org/zap"
)

type fakeClassifier struct {
	verdict toxicity.Verdict
	err     error
	calls   int
}

func (f *fakeClassifier) Classify(context.Context, string) (toxicity.Verdict, error) {
	f.calls++
	return f.verdict, f.err
}

type fakeStore struct {
	mu          sync.Mutex
	flags       []storage.FlaggedMessage
	infractions map[string]int
	actions     map[string]string
	err         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{infractions: make(map[string]int), actions: make(map[string]string)}
}

func (f *fakeStore) AddFlaggedMessage(_ context.Context, flag storage.FlaggedMessage) (storage.FlaggedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.FlaggedMessage{}, f.err
	}
	f.flags = append(f.flags, flag)
	return flag, nil
}

func (f *fakeStore) IncrementInfraction(_ context.Context, guildID, userID, label, lastAction string, _ time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	key := guildID + ":" + userID + ":" + label
	f.infractions[key]++
	f.actions[key] = lastAction
	return f.infractions[key], nil
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteMessage(channelID, messageID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, channelID+"/"+messageID)
	return nil
}

type fixture struct {
	module     *Module
	classifier *fakeClassifier
	store      *fakeStore
	deleter    *fakeDeleter
	trust      *trust.Engine
}

func newFixture(cfg config.ToxicityConfig) fixture {
	classifier := &fakeClassifier{}
	store := newFakeStore()
	deleter := &fakeDeleter{}
	riskEngine := risk.NewEngine(config.RiskConfig{DecayPerMinute: 0, TTLMinutes: 60, TrustWeight: 0.5})
	trustEngine := trust.NewEngine(config.TrustConfig{MaxScore: 100, TTLMinutes: 60, CleanMessage: 1, FlagPenalty: 5})
	module := New(cfg, classifier, store, deleter, riskEngine, trustEngine, audit.NewLogger(nil, zap.NewNop()), zap.NewNop())
	module.now = func() time.Time { return time.Unix(1000, 0) }
	return fixture{module: module, classifier: classifier, store: store, deleter: deleter, trust: trustEngine}
}

func baseConfig() config.ToxicityConfig {
	return config.ToxicityConfig{
		RiskPerPoint:       20,
		EscalateRisk:       60,
		BurstFlags:         0,
		BurstWindowSeconds: 60,
		DeleteOnEscalation: true,
	}
}

func message(content string) Message {
	return Message{GuildID: "g1", ChannelID: "c1", ID: "m1", AuthorID: "u1", Content: content}
}

func flagged(score int, labels ...string) toxicity.Verdict {
	return toxicity.Verdict{Text: "processed", Matches: []string{"prost"}, Score: score, Labels: labels}
}

func TestCleanMessageRaisesTrust(t *testing.T) {
	f := newFixture(baseConfig())
	f.classifier.verdict = toxicity.Verdict{Text: "salut", Matches: []string{}, Labels: []string{toxicity.LabelOK}}

	outcome, err := f.module.HandleMessage(context.Background(), message("salut"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Flagged() {
		t.Fatalf("did not expect flag")
	}
	if len(f.store.flags) != 0 {
		t.Fatalf("clean message must not be stored")
	}
	if score := f.trust.GetScore("g1", "u1"); score != 1 {
		t.Fatalf("expected trust 1, got %f", score)
	}
}

func TestTooShortIsClean(t *testing.T) {
	f := newFixture(baseConfig())
	f.classifier.err = fmt.Errorf("normalize: %w", toxicity.ErrTooShort)

	outcome, err := f.module.HandleMessage(context.Background(), message("!!"), false)
	if err != nil {
		t.Fatalf("too short must not be an error, got %v", err)
	}
	if outcome.Flagged() || len(f.store.flags) != 0 {
		t.Fatalf("too short must not flag")
	}
}

func TestEmptyContentSkipsClassifier(t *testing.T) {
	f := newFixture(baseConfig())
	if _, err := f.module.HandleMessage(context.Background(), message("   "), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.classifier.calls != 0 {
		t.Fatalf("expected no classifier call, got %d", f.classifier.calls)
	}
}

func TestUnavailableIsReturned(t *testing.T) {
	f := newFixture(baseConfig())
	f.classifier.err = fmt.Errorf("probe: %w", toxicity.ErrUnavailable)

	_, err := f.module.HandleMessage(context.Background(), message("esti un prost"), false)
	if !errors.Is(err, toxicity.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(f.store.flags) != 0 || len(f.deleter.deleted) != 0 {
		t.Fatalf("outage must not record anything")
	}
}

func TestFlagWarns(t *testing.T) {
	f := newFixture(baseConfig())
	f.classifier.verdict = flagged(1, "Aggro")

	outcome, err := f.module.HandleMessage(context.Background(), message("esti un prost http://x.com/?utm_source=a"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Level != audit.LevelWarn || outcome.Action != ActionFlag || outcome.Deleted {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Risk != 20 {
		t.Fatalf("expected risk 20, got %f", outcome.Risk)
	}
	if len(f.store.flags) != 1 {
		t.Fatalf("expected stored flag")
	}
	stored := f.store.flags[0]
	if stored.Processed != "processed" || stored.Score != 1 || stored.Level != audit.LevelWarn {
		t.Fatalf("unexpected stored flag %+v", stored)
	}
	if len(stored.Links) != 1 || stored.Links[0] != "http://x.com/" {
		t.Fatalf("unexpected links %v", stored.Links)
	}
	if outcome.Infractions["Aggro"] != 1 {
		t.Fatalf("expected infraction count 1, got %v", outcome.Infractions)
	}
}

func TestEscalationDeletes(t *testing.T) {
	f := newFixture(baseConfig())
	f.classifier.verdict = flagged(3, "Aggro", "Violence", "Hateful")

	outcome, err := f.module.HandleMessage(context.Background(), message("bad"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Level != audit.LevelCrit || !outcome.Deleted || outcome.Action != ActionDelete {
		t.Fatalf("expected deletion, got %+v", outcome)
	}
	if len(f.deleter.deleted) != 1 || f.deleter.deleted[0] != "c1/m1" {
		t.Fatalf("unexpected deletions %v", f.deleter.deleted)
	}
	if f.store.actions["g1:u1:Violence"] != ActionDelete {
		t.Fatalf("expected infraction action delete, got %v", f.store.actions)
	}
	if len(outcome.Infractions) != 3 {
		t.Fatalf("expected one infraction per label, got %v", outcome.Infractions)
	}
}

func TestAuditModeNeverDeletes(t *testing.T) {
	f := newFixture(baseConfig())
	f.classifier.verdict = flagged(3, "Aggro", "Violence", "Hateful")

	outcome, err := f.module.HandleMessage(context.Background(), message("bad"), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Level != audit.LevelCrit || outcome.Deleted || outcome.Action != ActionEscalate {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(f.deleter.deleted) != 0 {
		t.Fatalf("audit mode must not delete")
	}
}

func TestBurstEscalates(t *testing.T) {
	cfg := baseConfig()
	cfg.EscalateRisk = 0
	cfg.BurstFlags = 2
	cfg.DeleteOnEscalation = false
	f := newFixture(cfg)
	f.classifier.verdict = flagged(1, "Aggro")

	first, _ := f.module.HandleMessage(context.Background(), message("bad"), false)
	second, _ := f.module.HandleMessage(context.Background(), message("bad"), false)
	if first.Level != audit.LevelWarn {
		t.Fatalf("expected first flag to warn, got %s", first.Level)
	}
	if second.Level != audit.LevelCrit || second.Bursts != 2 || second.Deleted {
		t.Fatalf("expected burst escalation without delete, got %+v", second)
	}
}

func TestBookkeepingErrorsAreJoined(t *testing.T) {
	f := newFixture(baseConfig())
	f.classifier.verdict = flagged(1, "Aggro")
	f.store.err = errors.New("db down")

	outcome, err := f.module.HandleMessage(context.Background(), message("bad"), false)
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, toxicity.ErrUnavailable) {
		t.Fatalf("store failure must not look like an outage")
	}
	if !outcome.Flagged() || outcome.Level != audit.LevelWarn {
		t.Fatalf("outcome must still describe the flag, got %+v", outcome)
	}
}
