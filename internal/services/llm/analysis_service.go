package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/ternarybob/stocklens/internal/models"
)

const (
	DefaultAnalysisTemperature float32 = 0.5
	DefaultBacktestTemperature float32 = 0.3
)

// AnalysisOptions selects the model and sampling temperatures
type AnalysisOptions struct {
	Model               string
	AnalysisTemperature float32
	BacktestTemperature float32
}

// AnalysisService implements interfaces.AnalysisProvider on top of a ContentGenerator
type AnalysisService struct {
	generator ContentGenerator
	formatter ContentFormatter
	opts      AnalysisOptions
	logger    arbor.ILogger
}

var _ interfaces.AnalysisProvider = (*AnalysisService)(nil)

// NewAnalysisService creates an analysis provider. Zero temperatures use the defaults.
func NewAnalysisService(generator ContentGenerator, formatter ContentFormatter, opts AnalysisOptions, logger arbor.ILogger) *AnalysisService {
	if opts.AnalysisTemperature <= 0 {
		opts.AnalysisTemperature = DefaultAnalysisTemperature
	}
	if opts.BacktestTemperature <= 0 {
		opts.BacktestTemperature = DefaultBacktestTemperature
	}
	return &AnalysisService{
		generator: generator,
		formatter: formatter,
		opts:      opts,
		logger:    logger,
	}
}

// GetAnalysis requests the six-section analysis of inputs in language
func (s *AnalysisService) GetAnalysis(ctx context.Context, inputs models.SessionInputs, language models.Language) ([]models.AnalysisSection, error) {
	start := time.Now()

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages:     []interfaces.Message{{Role: "user", Content: BuildAnalysisPrompt(inputs, language)}},
		Model:        s.opts.Model,
		Temperature:  s.opts.AnalysisTemperature,
		OutputSchema: analysisSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis from AI: %w", err)
	}

	sections, err := parseAnalysis(resp.Text, s.formatter)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("response_length", len(resp.Text)).
			Msg("Unparsable analysis response")
		return nil, err
	}

	if len(sections) != len(SectionIcons) {
		s.logger.Warn().
			Int("sections", len(sections)).
			Int("expected", len(SectionIcons)).
			Msg("Analysis response has an unexpected section count")
	}

	s.logger.Debug().
		Str("ticker", inputs.Ticker).
		Str("language", string(language)).
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Int("sections", len(sections)).
		Dur("duration", time.Since(start)).
		Msg("Analysis response parsed")

	return sections, nil
}

// GetBacktest requests a one-year simulation of strategy on ticker
func (s *AnalysisService) GetBacktest(ctx context.Context, ticker string, strategy models.TradingStrategy, language models.Language) (*models.BacktestResult, error) {
	start := time.Now()

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages:     []interfaces.Message{{Role: "user", Content: BuildBacktestPrompt(ticker, strategy, language)}},
		Model:        s.opts.Model,
		Temperature:  s.opts.BacktestTemperature,
		OutputSchema: backtestSchema(language),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest analysis from AI: %w", err)
	}

	result, err := parseBacktest(resp.Text, language, s.formatter)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("response_length", len(resp.Text)).
			Msg("Unparsable backtest response")
		return nil, err
	}

	s.logger.Debug().
		Str("ticker", ticker).
		Str("language", string(language)).
		Str("model", resp.Model).
		Int("chart_points", len(result.ChartData)).
		Dur("duration", time.Since(start)).
		Msg("Backtest response parsed")

	return result, nil
}
