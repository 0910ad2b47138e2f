package classifier

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
)

const systemPrompt = `You categorize customer complaints for a support desk.
Reply with a single JSON object and nothing else, using exactly these fields:
"category" (short label such as Delivery, Billing, Product Quality, Technical Issue or General),
"priority" (one of Low, Medium, High, Critical),
"department" (the team that should handle it),
"summary" (one sentence describing the complaint).`

// Source records where a classification came from.
type Source string

const (
	SourceModel    Source = observability.ClassificationModel
	SourceCache    Source = observability.ClassificationCache
	SourceFallback Source = observability.ClassificationFallback
)

// Result is a classification together with its origin.
type Result struct {
	domain.Classification
	Source Source
}

// Options configures a Classifier. Generator and Cache are optional.
type Options struct {
	Generator Generator
	Cache     Cache
	Timeout   time.Duration
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// Classifier assigns category, priority and department to complaint text.
type Classifier struct {
	generator Generator
	cache     Cache
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// New constructs a Classifier.
func New(opts Options) *Classifier {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		generator: opts.Generator,
		cache:     opts.Cache,
		timeout:   opts.Timeout,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Classify never fails. A non-empty categoryHint other than "Other" replaces
// the computed category; priority and department are still computed.
func (c *Classifier) Classify(ctx context.Context, text, categoryHint string) Result {
	result := c.classify(ctx, text)
	c.metrics.RecordClassification(string(result.Source))

	if hint := strings.TrimSpace(categoryHint); hint != "" && !strings.EqualFold(hint, "Other") {
		result.Category = hint
	}
	return result
}

func (c *Classifier) classify(ctx context.Context, text string) Result {
	if c.generator == nil {
		return Result{Classification: Fallback(text), Source: SourceFallback}
	}

	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, text)
		if err != nil {
			c.logger.Warn("classification cache read failed", zap.Error(err))
		} else if ok {
			return Result{Classification: cached, Source: SourceCache}
		}
	}

	callCtx, cancel := c.callContext(ctx)
	raw, err := c.generator.Complete(callCtx, systemPrompt, text)
	cancel()
	if err != nil {
		c.logger.Warn("classifier fallback", zap.String("cause", "model call failed"), zap.Error(err))
		return Result{Classification: Fallback(text), Source: SourceFallback}
	}

	parsed, err := ParseResponse(raw)
	if err != nil {
		c.logger.Warn("classifier fallback", zap.String("cause", "unparseable model output"), zap.Error(err))
		return Result{Classification: Fallback(text), Source: SourceFallback}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, text, parsed); err != nil {
			c.logger.Warn("classification cache write failed", zap.Error(err))
		}
	}
	return Result{Classification: parsed, Source: SourceModel}
}

func (c *Classifier) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
