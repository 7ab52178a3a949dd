package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/stocklens/internal/models"
)

func promptInputs() models.SessionInputs {
	amount := 12500.0
	return models.SessionInputs{
		Ticker:               "NVDA",
		CurrentPrice:         178.88,
		InvestmentAmount:     &amount,
		InvestmentHorizon:    models.HorizonMedium,
		VolatilityPreference: models.VolatilityHigh,
		RiskTolerance:        models.RiskAggressive,
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0.00", formatMoney(0))
	assert.Equal(t, "$178.88", formatMoney(178.88))
	assert.Equal(t, "$12,500.00", formatMoney(12500))
	assert.Equal(t, "$1,234,567.50", formatMoney(1234567.5))
	assert.Equal(t, "-$1,000.00", formatMoney(-1000))
}

func TestBuildAnalysisPrompt_English(t *testing.T) {
	prompt := BuildAnalysisPrompt(promptInputs(), models.LanguageEnglish)

	assert.Contains(t, prompt, "analyzing NVDA at a real-time price of $178.88")
	assert.Contains(t, prompt, "planned total investment of $12,500.00")
	assert.Contains(t, prompt, "does not currently hold a position")
	assert.Contains(t, prompt, "risk tolerance is 'Aggressive'")
	assert.Contains(t, prompt, "volatility preference is 'Seeks High Volatility Opportunities'")

	last := -1
	for _, icon := range SectionIcons {
		idx := strings.Index(prompt, "icon: '"+string(icon)+"'")
		assert.Greater(t, idx, last, "icon %s out of order", icon)
		last = idx
	}
}

func TestBuildAnalysisPrompt_ChineseWithPosition(t *testing.T) {
	inputs := promptInputs()
	position := 150.0
	inputs.PositionPrice = &position

	prompt := BuildAnalysisPrompt(inputs, models.LanguageChinese)

	assert.Contains(t, prompt, "用户当前持仓成本为 $150.00")
	assert.Contains(t, prompt, "风险偏好为'激进'")
	assert.Contains(t, prompt, "投资周期为'中期'")
	assert.Contains(t, prompt, "title 必须是中文标题")
	assert.Contains(t, prompt, "icon: 'arrows-trending-up'")
}

func TestBuildBacktestPrompt(t *testing.T) {
	strategy := models.TradingStrategy{
		EntryRange:          "$170.00 - $175.00",
		AveragingDownRange1: "$165.00",
		StopLoss:            "$155.00",
		ProfitTarget1:       "$195.00",
		ProfitTarget2:       "$205.00",
	}

	en := BuildBacktestPrompt("NVDA", strategy, models.LanguageEnglish)
	assert.Contains(t, en, "historical data for NVDA")
	assert.Contains(t, en, "- Entry Range: $170.00 - $175.00")
	assert.Contains(t, en, "- Averaging Down Range 1: $165.00")
	assert.NotContains(t, en, "Averaging Down Range 2")
	assert.Contains(t, en, "'Simulation Period', 'Total Trades', 'Winning Trades', 'Losing Trades', 'Win Rate (%)', 'Net P/L (%)'")

	zh := BuildBacktestPrompt("NVDA", strategy, models.LanguageChinese)
	assert.Contains(t, zh, "- 建仓区间: $170.00 - $175.00")
	assert.NotContains(t, zh, "加仓区间 1")
	assert.Contains(t, zh, "'模拟周期', '总交易次数'")
}

func TestBacktestSummaryKeys_ReturnsCopy(t *testing.T) {
	keys := BacktestSummaryKeys(models.LanguageEnglish)
	keys[0] = "changed"
	assert.Equal(t, "Simulation Period", BacktestSummaryKeys(models.LanguageEnglish)[0])
	assert.Equal(t, "Simulation Period", BacktestSummaryKeys("fr")[0])
}
