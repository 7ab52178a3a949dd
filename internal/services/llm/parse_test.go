package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/models"
	"github.com/ternarybob/stocklens/internal/services/transform"
)

func testFormatter() ContentFormatter {
	return transform.NewService(arbor.NewNoOpLogger())
}

const analysisResponse = "```json\n" + `{"analysis": [
	{"title": "Current Price Analysis", "icon": "price-tag", "content": "Near **support**", "strategy": {"entryRange": "$1"}},
	{"title": "Fundamental Analysis", "icon": "Beaker", "content": "<p>Solid</p>", "strategy": null},
	{"title": "Technical Indicator Analysis", "icon": "rocket", "content": "<p>RSI</p>"},
	{"title": "Trading Strategy Reference", "icon": "arrows-trending-up", "content": "<table></table>",
	 "strategy": {"entryRange": "$170.00 - $175.00", "stopLoss": "$155.00", "profitTarget1": "$195.00"}}
]}` + "\n```"

func TestExtractJSON(t *testing.T) {
	out, err := extractJSON("Here you go: {\"a\": {\"b\": 1}} thanks")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, out)

	_, err = extractJSON("no json here")
	assert.Error(t, err)

	_, err = extractJSON("} {")
	assert.Error(t, err)
}

func TestParseAnalysis(t *testing.T) {
	sections, err := parseAnalysis(analysisResponse, testFormatter())
	require.NoError(t, err)
	require.Len(t, sections, 4)

	assert.Equal(t, models.IconPriceTag, sections[0].Icon)
	assert.Equal(t, "Near <strong>support</strong>", sections[0].Content)
	assert.Nil(t, sections[0].Strategy, "strategy only survives on the strategy section")

	assert.Equal(t, models.IconBeaker, sections[1].Icon)
	assert.Equal(t, models.IconDefault, sections[2].Icon)

	require.NotNil(t, sections[3].Strategy)
	assert.Equal(t, "$170.00 - $175.00", sections[3].Strategy.EntryRange)
	assert.Equal(t, "$155.00", sections[3].Strategy.StopLoss)
	assert.Equal(t, "Trading Strategy Reference", sections[3].Title)
}

func TestParseAnalysis_Errors(t *testing.T) {
	_, err := parseAnalysis(`{"analysis": []}`, testFormatter())
	assert.Error(t, err)

	_, err = parseAnalysis(`{"analysis": "nope"}`, testFormatter())
	assert.Error(t, err)

	_, err = parseAnalysis("the model refused", testFormatter())
	assert.Error(t, err)
}

func TestParseBacktest(t *testing.T) {
	response := `{
		"summary": {"Net P/L (%)": "**12.5**", "Total Trades": 4, "Simulation Period": "2024-01-02 to 2024-12-31", "Sharpe": "1.1", "Alpha": "0.2"},
		"narrative": "Strong in the **bull run**.",
		"verdict": "Viable.",
		"chartData": [
			{"date": "2024-03-01", "value": 10500},
			{"date": "2024-01-02", "value": "10000"},
			{"date": "not a date", "value": 1},
			{"date": "2024-02-01", "value": 9800.25}
		]
	}`

	result, err := parseBacktest(response, models.LanguageEnglish, testFormatter())
	require.NoError(t, err)

	assert.Equal(t, [][2]string{
		{"Simulation Period", "2024-01-02 to 2024-12-31"},
		{"Total Trades", "4"},
		{"Net P/L (%)", "<strong>12.5</strong>"},
		{"Alpha", "0.2"},
		{"Sharpe", "1.1"},
	}, result.SummaryEntries())

	assert.Equal(t, "<p>Strong in the <strong>bull run</strong>.</p>", result.Narrative)
	assert.Equal(t, "<p>Viable.</p>", result.Verdict)

	assert.Equal(t, []models.ChartPoint{
		{Date: "2024-01-02", Value: 10000},
		{Date: "2024-02-01", Value: 9800.25},
		{Date: "2024-03-01", Value: 10500},
	}, result.ChartData)
}

func TestParseBacktest_ChineseKeyOrder(t *testing.T) {
	response := `{"summary": {"胜率 (%)": "75", "模拟周期": "一年"}, "narrative": "", "verdict": "", "chartData": []}`

	result, err := parseBacktest(response, models.LanguageChinese, testFormatter())
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"模拟周期", "一年"}, {"胜率 (%)", "75"}}, result.SummaryEntries())
	assert.Empty(t, result.ChartData)
	assert.Empty(t, result.Narrative)
}

func TestParseBacktest_MissingSummary(t *testing.T) {
	_, err := parseBacktest(`{"narrative": "x", "chartData": []}`, models.LanguageEnglish, testFormatter())
	assert.Error(t, err)
}
