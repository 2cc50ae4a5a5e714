package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrAIDisabled = errors.New("AI features are not enabled")

// Service is the entry point for image analysis. It gates the feature flag,
// rejects missing input before any network call and bounds each analysis
// with an overall timeout.
type Service struct {
	analyzer Analyzer
	enabled  bool
	timeout  time.Duration
}

// NewService creates a Service. A nil analyzer disables the feature.
func NewService(analyzer Analyzer, enabled bool, timeout time.Duration) *Service {
	return &Service{
		analyzer: analyzer,
		enabled:  enabled && analyzer != nil,
		timeout:  timeout,
	}
}

// Enabled reports whether analysis requests will reach the model.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

// Analyze runs the clothing analysis for img.
func (s *Service) Analyze(ctx context.Context, img Image) (*AnalysisResult, error) {
	if !s.Enabled() {
		return nil, ErrAIDisabled
	}
	if len(img.Data) == 0 {
		return nil, ErrNoImage
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.analyzer.AnalyzeImage(ctx, img)
	if err != nil {
		log.Error().Err(err).Str("failure", ClassifyFailure(err).String()).Dur("took", time.Since(start)).Msg("clothing analysis failed")
		return nil, err
	}
	return result, nil
}
