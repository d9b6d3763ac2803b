package toxicity

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"sentinel-toxicity/internal/metrics"

	"go.uber.org/zap"
)

// Verdict is the final classification of one message. The pipeline keeps no
// reference to it after returning.
type Verdict struct {
	Text    string   `json:"text"`
	Matches []string `json:"matches"`
	Score   int      `json:"score"`
	Labels  []string `json:"labels"`
}

// Flagged reports whether the verdict carries any toxic label.
func (v Verdict) Flagged() bool {
	return v.Score > 0
}

type PipelineOption func(*Pipeline)

func WithCache(cache VerdictCache) PipelineOption {
	return func(p *Pipeline) { p.cache = cache }
}

func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline combines the regex triggers and the remote model into one verdict.
type Pipeline struct {
	normalizer *Normalizer
	triggers   *TriggerSet
	model      ModelClient
	cache      VerdictCache
	logger     *zap.Logger
}

func NewPipeline(normalizer *Normalizer, triggers *TriggerSet, model ModelClient, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		normalizer: normalizer,
		triggers:   triggers,
		model:      model,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Classify returns ErrTooShort or ErrUnavailable when no verdict can be made.
// Regex evidence is discarded when the model is unreachable.
func (p *Pipeline) Classify(ctx context.Context, text string) (Verdict, error) {
	working, err := p.normalizer.Normalize(text)
	if err != nil {
		metrics.RecordClassification(metrics.OutcomeTooShort)
		return Verdict{}, err
	}

	positive := make(map[string]struct{})
	var matches []string
	seenMatch := make(map[string]struct{})
	for _, category := range p.triggers.categories {
		found, ok := category.Match(working)
		if !ok {
			continue
		}
		positive[category.Name] = struct{}{}
		for _, m := range found {
			if _, dup := seenMatch[m]; dup {
				continue
			}
			seenMatch[m] = struct{}{}
			matches = append(matches, m)
		}
		working = category.Separate(working)
	}

	working = strings.TrimSpace(whitespaceRun.ReplaceAllString(working, " "))
	working = CollapseRepeats(working, 2)

	model, err := p.modelVerdict(ctx, working)
	if err != nil {
		metrics.RecordClassification(metrics.OutcomeUnavailable)
		if !errors.Is(err, ErrUnavailable) {
			err = unavailable("classify", err)
		}
		return Verdict{}, err
	}

	verdict := p.merge(working, matches, positive, model)
	metrics.RecordClassification(metrics.OutcomeVerdict)
	for _, label := range verdict.Labels {
		metrics.RecordLabel(p.metricLabel(label))
	}
	return verdict, nil
}

// metricLabel keeps the label series bounded to the configured categories.
func (p *Pipeline) metricLabel(label string) string {
	if label == LabelOK || p.triggers.Has(label) {
		return label
	}
	return metrics.LabelOther
}

// Probe checks the moderation model independently of any message.
func (p *Pipeline) Probe(ctx context.Context) error {
	return p.model.Probe(ctx)
}

func (p *Pipeline) Categories() []string {
	return p.triggers.Names()
}

func (p *Pipeline) modelVerdict(ctx context.Context, text string) (ModelVerdict, error) {
	if err := ctx.Err(); err != nil {
		return ModelVerdict{}, unavailable("classify", err)
	}
	if err := p.model.Probe(ctx); err != nil {
		return ModelVerdict{}, err
	}

	key := CacheKey(text)
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			p.logger.Debug("verdict cache read failed", zap.Error(err))
		case ok:
			metrics.RecordCache(true)
			return cached, nil
		default:
			metrics.RecordCache(false)
		}
	}

	start := time.Now()
	model, err := p.model.Classify(ctx, text)
	metrics.ObserveModelLatency(time.Since(start))
	if err != nil {
		return ModelVerdict{}, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, model); err != nil {
			p.logger.Debug("verdict cache write failed", zap.Error(err))
		}
	}
	return model, nil
}

func (p *Pipeline) merge(text string, matches []string, positive map[string]struct{}, model ModelVerdict) Verdict {
	labels := make([]string, 0, len(positive)+len(model.Labels))
	included := make(map[string]struct{}, len(positive)+len(model.Labels))
	modelPositive := make(map[string]struct{}, len(model.Labels))
	if !model.IsOK() {
		for _, label := range model.Labels {
			modelPositive[label] = struct{}{}
		}
	}

	for _, category := range p.triggers.categories {
		_, byRegex := positive[category.Name]
		_, byModel := modelPositive[category.Name]
		if byRegex || byModel {
			labels = append(labels, category.Name)
			included[category.Name] = struct{}{}
		}
	}
	if !model.IsOK() {
		for _, label := range model.Labels {
			if _, ok := included[label]; ok {
				continue
			}
			included[label] = struct{}{}
			labels = append(labels, label)
		}
	}

	score := len(labels)
	if len(matches) > score {
		score = len(matches)
	}
	if score == 0 {
		labels = []string{LabelOK}
	}
	if matches == nil {
		matches = []string{}
	}
	return Verdict{Text: text, Matches: matches, Score: score, Labels: labels}
}

// CollapseRepeats shortens every run of an identical rune to at most limit runes.
func CollapseRepeats(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	run := 0
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run <= limit {
			b.WriteRune(r)
		}
	}
	return b.String()
}
