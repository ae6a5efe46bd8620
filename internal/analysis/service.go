// Package analysis scores a learner's recognised phonemes against the IPA
// transcription of the sentence they read. It normalises and tokenises both
// sides, segments the phoneme stream across the reference words, scores
// every word, and records the attempt when a session is given.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/phonexa/internal/attempt"
	"github.com/MrWong99/phonexa/internal/observe"
	"github.com/MrWong99/phonexa/internal/resilience"
	"github.com/MrWong99/phonexa/pkg/align"
	"github.com/MrWong99/phonexa/pkg/ipa"
	"github.com/MrWong99/phonexa/pkg/types"
)

// storeTimeout bounds a single attempt store call.
const storeTimeout = 3 * time.Second

// Options are the hot-reloadable analysis limits. A zero limit disables the
// corresponding check.
type Options struct {
	MaxReferenceWords    int
	MaxHypothesisSymbols int
	StripSymbols         []string
	BatchConcurrency     int
	Timeout              time.Duration
}

// settings is an immutable snapshot of Options plus derived state.
type settings struct {
	opts Options
	norm ipa.Normalizer
}

// Service runs analyses. It is safe for concurrent use; [Service.SetOptions]
// may be called at any time.
type Service struct {
	settings  atomic.Pointer[settings]
	tokenizer *ipa.Tokenizer
	store     attempt.Store
	breaker   *resilience.Breaker
	metrics   *observe.Metrics
}

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithStore records attempts that carry a session ID in s.
func WithStore(s attempt.Store) ServiceOption {
	return func(svc *Service) { svc.store = s }
}

// WithBreaker guards store calls with b. Without it a breaker with default
// settings is used.
func WithBreaker(b *resilience.Breaker) ServiceOption {
	return func(svc *Service) { svc.breaker = b }
}

// WithMetrics records instrument values to m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) ServiceOption {
	return func(svc *Service) { svc.metrics = m }
}

// WithTokenizer replaces the default IPA tokenizer.
func WithTokenizer(t *ipa.Tokenizer) ServiceOption {
	return func(svc *Service) { svc.tokenizer = t }
}

// New creates a Service.
func New(opts Options, svcOpts ...ServiceOption) *Service {
	s := &Service{tokenizer: ipa.DefaultTokenizer()}
	for _, o := range svcOpts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.breaker == nil {
		s.breaker = resilience.NewBreaker(resilience.BreakerConfig{Name: "attempt-store"})
	}
	s.SetOptions(opts)
	return s
}

// SetOptions replaces the analysis limits. In-flight analyses keep the
// options they started with.
func (s *Service) SetOptions(o Options) {
	o.StripSymbols = slices.Clone(o.StripSymbols)
	s.settings.Store(&settings{opts: o, norm: ipa.NewNormalizer(o.StripSymbols...)})
}

// Options returns the current analysis limits.
func (s *Service) Options() Options {
	o := s.settings.Load().opts
	o.StripSymbols = slices.Clone(o.StripSymbols)
	return o
}

// HasStore reports whether attempts are recorded.
func (s *Service) HasStore() bool { return s.store != nil }

// Analyze scores one utterance.
//
// An alignment that cannot be computed (more reference words than recognised
// symbols) is not an error: the result carries a single failure entry and an
// overall similarity of 0. Errors are returned for invalid input
// ([ErrEmptySentence], [ErrInvalidRequest]), oversize input
// ([ErrInputTooLarge]) and cancellation or timeout.
func (s *Service) Analyze(ctx context.Context, req Request) (types.Analysis, error) {
	cur := s.settings.Load()

	ctx, span := observe.StartSpan(ctx, "analysis.Analyze")
	defer span.End()

	res, err := s.analyze(ctx, cur, req)
	if err != nil {
		observe.SpanError(span, err)
		status := observe.StatusRejected
		if !isInputError(err) {
			status = observe.StatusFailed
		}
		s.metrics.RecordAnalysis(ctx, status)
		return types.Analysis{}, err
	}

	span.SetAttributes(
		attribute.Int("analysis.words", len(res.SentencePhonemeArray)),
		attribute.Int("analysis.symbols", len(res.UserPhonemeArray)),
		attribute.Bool("analysis.failed", res.Failed()),
		attribute.Float64("analysis.overall_similarity", res.OverallSimilarity),
	)
	if res.Failed() {
		s.metrics.RecordAnalysis(ctx, observe.StatusFailed)
	} else {
		s.metrics.RecordAnalysis(ctx, observe.StatusOK)
		for _, w := range res.Alignment {
			s.metrics.Similarity.Record(ctx, w.SimilarityScore)
		}
	}

	if req.SessionID != "" {
		s.record(ctx, req, res)
	}
	return res, nil
}

func (s *Service) analyze(ctx context.Context, cur *settings, req Request) (types.Analysis, error) {
	if err := req.validate(); err != nil {
		return types.Analysis{}, fmt.Errorf("analysis: %w", err)
	}
	opts := cur.opts

	words := SentenceWords(req.Sentence)
	ipaText := cur.norm.String(req.SentenceIPA)
	ipaWords := strings.Fields(ipaText)
	refs := s.tokenizer.Tokenize(ipaText)

	raw := req.PhonemeTokens
	if len(raw) == 0 {
		raw = ipa.ParsePhonemes(req.Phonemes)
	}
	hyp := cur.norm.Tokens(raw)

	if opts.MaxReferenceWords > 0 && len(refs) > opts.MaxReferenceWords {
		return types.Analysis{}, fmt.Errorf("analysis: %w: %d reference words exceed the limit of %d",
			ErrInputTooLarge, len(refs), opts.MaxReferenceWords)
	}
	if opts.MaxHypothesisSymbols > 0 && len(hyp) > opts.MaxHypothesisSymbols {
		return types.Analysis{}, fmt.Errorf("analysis: %w: %d phoneme symbols exceed the limit of %d",
			ErrInputTooLarge, len(hyp), opts.MaxHypothesisSymbols)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := align.AlignContext(ctx, refs, hyp)
	elapsed := time.Since(start)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("analysis: align: %w", err)
	}
	s.metrics.AlignmentDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Bool("failed", result.Failed)))
	s.metrics.Symbols.Record(ctx, int64(len(hyp)))

	observe.Logger(ctx).Debug("alignment computed",
		"words", len(refs),
		"symbols", len(hyp),
		"failed", result.Failed,
		"cost", result.Cost,
		"duration", elapsed,
	)

	return types.Analysis{
		SentenceArray:        words,
		SentencePhonemeArray: ipaWords,
		UserPhonemeArray:     hyp,
		Alignment:            wordAlignments(result, words),
		OverallSimilarity:    overall(result),
	}, nil
}

// wordAlignments converts aligner records to wire entries. Record i carries
// sentence word i, or "" when the sentence has fewer words than its IPA.
func wordAlignments(res align.Result, words []string) []types.WordAlignment {
	if res.Failed {
		return []types.WordAlignment{{Error: align.FailureMessage}}
	}
	out := make([]types.WordAlignment, len(res.Records))
	for i, r := range res.Records {
		var text string
		if r.Word < len(words) {
			text = words[r.Word]
		}
		out[i] = types.WordAlignment{
			ReferenceWordText: text,
			ReferencePhonemes: strings.Join(r.Reference, ""),
			UserPhonemes:      strings.Join(r.Hypothesis, ""),
			SimilarityScore:   r.Similarity,
		}
	}
	return out
}

func overall(res align.Result) float64 {
	if res.Failed || len(res.Records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range res.Records {
		sum += r.Similarity
	}
	return sum / float64(len(res.Records))
}

func isInputError(err error) bool {
	return errors.Is(err, ErrEmptySentence) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInputTooLarge)
}

// Tokenize normalises IPA text with the current strip symbols and splits it
// into per-word symbol sequences.
func (s *Service) Tokenize(text string) [][]string {
	return s.tokenizer.Tokenize(s.settings.Load().norm.String(text))
}
