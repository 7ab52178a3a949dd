package llm

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/stocklens/internal/models"
)

// ContentFormatter turns the markdown found in model output into HTML
type ContentFormatter interface {
	MarkdownToHTML(markdown string) (string, error)
	FormatInline(content string) string
}

type rawSection struct {
	Title    string                  `json:"title"`
	Icon     string                  `json:"icon"`
	Content  string                  `json:"content"`
	Strategy *models.TradingStrategy `json:"strategy"`
}

type rawAnalysis struct {
	Analysis []rawSection `json:"analysis"`
}

type rawChartPoint struct {
	Date  string      `json:"date"`
	Value json.Number `json:"value"`
}

type rawBacktest struct {
	Summary   map[string]interface{} `json:"summary"`
	Narrative string                 `json:"narrative"`
	Verdict   string                 `json:"verdict"`
	ChartData []rawChartPoint        `json:"chartData"`
}

// extractJSON returns the outermost JSON object in text, ignoring code fences
// and prose around it.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return text[start : end+1], nil
}

// parseAnalysis decodes an analysis response. Icons are normalized, strategies
// are kept only on the strategy-bearing section and content is formatted.
func parseAnalysis(text string, formatter ContentFormatter) ([]models.AnalysisSection, error) {
	payload, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	if len(raw.Analysis) == 0 {
		return nil, fmt.Errorf("analysis response contains no sections")
	}

	sections := make([]models.AnalysisSection, 0, len(raw.Analysis))
	for _, rs := range raw.Analysis {
		section := models.AnalysisSection{
			Title:   strings.TrimSpace(rs.Title),
			Icon:    models.NormalizeIcon(rs.Icon),
			Content: formatter.FormatInline(rs.Content),
		}
		if section.Icon.IsStrategyBearing() && rs.Strategy != nil {
			st := *rs.Strategy
			section.Strategy = &st
		}
		sections = append(sections, section)
	}

	return sections, nil
}

// parseBacktest decodes a backtest response. The summary is ordered by the
// metric keys of lang with any extra metrics after them, and chart points are
// sorted by date with undated points dropped.
func parseBacktest(text string, lang models.Language, formatter ContentFormatter) (*models.BacktestResult, error) {
	payload, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawBacktest
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse backtest response: %w", err)
	}
	if len(raw.Summary) == 0 {
		return nil, fmt.Errorf("backtest response has no summary")
	}

	result := &models.BacktestResult{Summary: models.NewBacktestSummary()}
	for _, key := range orderedSummaryKeys(raw.Summary, BacktestSummaryKeys(lang)) {
		result.Summary.Set(key, formatter.FormatInline(summaryValue(raw.Summary[key])))
	}

	if result.Narrative, err = formatter.MarkdownToHTML(raw.Narrative); err != nil {
		return nil, fmt.Errorf("failed to format narrative: %w", err)
	}
	if result.Verdict, err = formatter.MarkdownToHTML(raw.Verdict); err != nil {
		return nil, fmt.Errorf("failed to format verdict: %w", err)
	}

	result.ChartData = make([]models.ChartPoint, 0, len(raw.ChartData))
	for _, p := range raw.ChartData {
		date := strings.TrimSpace(p.Date)
		if _, err := time.Parse("2006-01-02", date); err != nil {
			continue
		}
		value, err := p.Value.Float64()
		if err != nil {
			continue
		}
		result.ChartData = append(result.ChartData, models.ChartPoint{Date: date, Value: value})
	}
	slices.SortStableFunc(result.ChartData, func(a, b models.ChartPoint) int {
		return strings.Compare(a.Date, b.Date)
	})

	return result, nil
}

// orderedSummaryKeys lists the known keys present in summary, in order, then
// the remaining keys alphabetically.
func orderedSummaryKeys(summary map[string]interface{}, known []string) []string {
	keys := make([]string, 0, len(summary))
	seen := make(map[string]bool, len(known))
	for _, k := range known {
		if _, ok := summary[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}

	var extra []string
	for k := range summary {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)

	return append(keys, extra...)
}

func summaryValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
