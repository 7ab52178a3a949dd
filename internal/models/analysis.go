package models

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Language identifies the language an analysis was generated in.
type Language string

const (
	LanguageChinese Language = "zh"
	LanguageEnglish Language = "en"
)

// Languages lists every supported analysis language in presentation order.
var Languages = []Language{LanguageChinese, LanguageEnglish}

// Other returns the language a toggle switches to.
func (l Language) Other() Language {
	if l == LanguageEnglish {
		return LanguageChinese
	}
	return LanguageEnglish
}

// DisplayName returns the English name of the language.
func (l Language) DisplayName() string {
	switch l {
	case LanguageEnglish:
		return "English"
	case LanguageChinese:
		return "Chinese"
	default:
		return string(l)
	}
}

// IsValid reports whether l is a supported language tag.
func (l Language) IsValid() bool {
	return l == LanguageChinese || l == LanguageEnglish
}

// ParseLanguage parses a language tag such as "zh" or "EN".
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	return l, nil
}

// Icon is the presentation tag attached to an analysis section.
type Icon string

const (
	IconPriceTag   Icon = "price-tag"
	IconChartBar   Icon = "chart-bar"
	IconBeaker     Icon = "beaker"
	IconNewspaper  Icon = "newspaper"
	IconTrendingUp Icon = "arrows-trending-up"
	IconChartPie   Icon = "chart-pie"
	IconHistory    Icon = "history"
	IconDefault    Icon = "default"
)

var knownIcons = map[Icon]bool{
	IconPriceTag:   true,
	IconChartBar:   true,
	IconBeaker:     true,
	IconNewspaper:  true,
	IconTrendingUp: true,
	IconChartPie:   true,
	IconHistory:    true,
	IconDefault:    true,
}

// NormalizeIcon maps a provider supplied icon keyword onto the fixed vocabulary.
// Unknown keywords become IconDefault.
func NormalizeIcon(s string) Icon {
	icon := Icon(strings.ToLower(strings.TrimSpace(s)))
	if knownIcons[icon] {
		return icon
	}
	return IconDefault
}

// IsStrategyBearing reports whether sections with this icon carry a TradingStrategy.
func (i Icon) IsStrategyBearing() bool {
	return i == IconTrendingUp
}

// TradingStrategy holds the tradable parameters of the strategy section.
// Values are provider formatted strings such as "$170.00 - $175.00".
type TradingStrategy struct {
	EntryRange          string `json:"entryRange"`
	AveragingDownRange1 string `json:"averagingDownRange1"`
	AveragingDownRange2 string `json:"averagingDownRange2"`
	ScalingInRange1     string `json:"scalingInRange1"`
	ScalingInRange2     string `json:"scalingInRange2"`
	StopLoss            string `json:"stopLoss"`
	ProfitTarget1       string `json:"profitTarget1"`
	ProfitTarget2       string `json:"profitTarget2"`
}

// AnalysisSection is one card of an analysis. Content is HTML.
type AnalysisSection struct {
	Title    string           `json:"title"`
	Icon     Icon             `json:"icon"`
	Content  string           `json:"content"`
	Strategy *TradingStrategy `json:"strategy"`
}

// ChartPoint is one day of the simulated portfolio value.
type ChartPoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// BacktestSummary maps metric names to formatted values, in presentation order.
type BacktestSummary = orderedmap.OrderedMap[string, string]

// NewBacktestSummary returns an empty summary.
func NewBacktestSummary() *BacktestSummary {
	return orderedmap.New[string, string]()
}

// BacktestResult is the outcome of simulating a TradingStrategy over historical data.
type BacktestResult struct {
	Summary   *BacktestSummary `json:"summary"`
	Narrative string           `json:"narrative"`
	Verdict   string           `json:"verdict"`
	ChartData []ChartPoint     `json:"chartData"`
}

// SummaryEntries returns the summary as ordered key/value pairs.
func (r *BacktestResult) SummaryEntries() [][2]string {
	if r == nil || r.Summary == nil {
		return nil
	}
	entries := make([][2]string, 0, r.Summary.Len())
	for pair := r.Summary.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, [2]string{pair.Key, pair.Value})
	}
	return entries
}
