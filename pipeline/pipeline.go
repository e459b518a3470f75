package pipeline

import (
	"context"
	"github.com/hoytnotlit/ltr-project/corruption"
	"github.com/hoytnotlit/ltr-project/features"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/hoytnotlit/ltr-project/metrics"
	"github.com/hoytnotlit/ltr-project/sparv"
	"github.com/hoytnotlit/ltr-project/types"
	"github.com/hoytnotlit/ltr-project/utils"
	"time"
)

// Pipeline annotates one sentence and runs the corruption rules over it.
// A returned error means the annotation could not be obtained and the same
// sentence should be tried again; everything after that step degrades
// instead of failing.
type Pipeline func(ctx context.Context, request Request) (Result, error)

func New(annotator sparv.Annotator, engine *corruption.Engine) Pipeline {
	pipelineLogger := logger.NewLogger("Corruption pipeline")

	return func(ctx context.Context, request Request) (Result, error) {
		reqLogger := pipelineLogger.With().Int("index", request.Index).Logger()
		result := Result{
			Index:  request.Index,
			Tokens: types.Tokenize(request.Text),
		}

		started := time.Now()
		raw, err := annotator.Annotate(ctx, request.Text)
		metrics.AnnotationLatency.Observe(time.Since(started).Seconds())
		if err != nil {
			metrics.AnnotationFailures.Inc()
			return result, err
		}

		feats, err := features.Extract(raw, request.Text)
		if err != nil {
			metrics.AnnotationDegraded.WithLabelValues(metrics.ReasonMalformed).Inc()
			reqLogger.Warn().Err(err).Msg("Annotation could not be parsed, evaluating without features")
			result.Degraded = true
			feats = nil
		}
		result.Features = feats
		result.Aligned = types.Aligned(result.Tokens, feats)
		if !result.Aligned && !result.Degraded {
			metrics.AnnotationDegraded.WithLabelValues(metrics.ReasonMisaligned).Inc()
			reqLogger.Debug().
				Int("tokens", len(result.Tokens)).
				Int("features", len(feats)).
				Msg("Annotation is not aligned with the sentence tokens")
		}

		match, ok, err := applyRules(engine, result.Tokens, feats)
		if err != nil {
			metrics.AnnotationDegraded.WithLabelValues(metrics.ReasonRulePanic).Inc()
			reqLogger.Error().Err(err).Msg("Corruption rules panicked, skipping sentence")
			return result, nil
		}
		if ok {
			result.Corruption = &types.Corruption{
				Index: request.Index,
				Rule:  match.Rule,
				Text:  match.Text(),
			}
		}
		return result, nil
	}
}

func applyRules(engine *corruption.Engine, tokens []string, feats []types.TokenFeature) (match corruption.Match, ok bool, err error) {
	defer utils.RecoverWithError(&err)
	match, ok = engine.Apply(tokens, feats)
	return match, ok, nil
}
