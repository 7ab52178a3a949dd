package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/stocklens/internal/models"
)

// promptSection is one of the six fixed sections requested from the model
type promptSection struct {
	title        string
	icon         models.Icon
	instructions []string
}

// SectionIcons is the icon order of a complete analysis
var SectionIcons = []models.Icon{
	models.IconPriceTag,
	models.IconBeaker,
	models.IconChartBar,
	models.IconNewspaper,
	models.IconChartPie,
	models.IconTrendingUp,
}

const strategyExample = `"strategy": {"entryRange": "$170.00 - $175.00", "averagingDownRange1": "$165.00", "averagingDownRange2": "$160.00", "scalingInRange1": "$185.00", "scalingInRange2": "$190.00", "stopLoss": "$155.00", "profitTarget1": "$195.00", "profitTarget2": "$205.00"}`

const (
	disclaimerEN = `<p class='mt-4 text-xs text-gray-400'>Disclaimer: This analysis is AI-generated from simulated and public data for informational and educational purposes only. It is not investment advice. The stock market is risky; invest with caution.</p>`
	disclaimerZH = `<p class='mt-4 text-xs text-gray-400'>免责声明：本分析由AI生成，基于模拟和公开数据，仅供参考和学习，不构成任何投资建议。股市有风险，投资需谨慎。</p>`
)

var (
	riskLabels = map[models.Language]map[models.RiskTolerance]string{
		models.LanguageEnglish: {models.RiskConservative: "Conservative", models.RiskBalanced: "Moderate", models.RiskAggressive: "Aggressive"},
		models.LanguageChinese: {models.RiskConservative: "保守", models.RiskBalanced: "稳健", models.RiskAggressive: "激进"},
	}
	horizonLabels = map[models.Language]map[models.InvestmentHorizon]string{
		models.LanguageEnglish: {models.HorizonShort: "Short-term", models.HorizonMedium: "Medium-term", models.HorizonLong: "Long-term"},
		models.LanguageChinese: {models.HorizonShort: "短期", models.HorizonMedium: "中期", models.HorizonLong: "长期"},
	}
	volatilityLabels = map[models.Language]map[models.VolatilityPreference]string{
		models.LanguageEnglish: {models.VolatilityLow: "Prefers Low Volatility", models.VolatilityMedium: "Accepts Medium Volatility", models.VolatilityHigh: "Seeks High Volatility Opportunities"},
		models.LanguageChinese: {models.VolatilityLow: "偏好低波动", models.VolatilityMedium: "接受中等波动", models.VolatilityHigh: "寻求高波动机会"},
	}
)

// formatMoney renders an amount with thousands separators and two decimals, e.g. $12,500.00
func formatMoney(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func analysisSections(inputs models.SessionInputs, lang models.Language) []promptSection {
	price := formatMoney(inputs.CurrentPrice)
	amount := formatMoney(inputs.InvestmentAmountOrZero())

	if lang == models.LanguageChinese {
		return []promptSection{
			{"当前价格分析", models.IconPriceTag, []string{
				fmt.Sprintf("结合技术图表，分析当前 %s 价格点位的重要性。", price),
				"它是否接近关键支撑位或阻力位？对短期趋势（上涨/下跌/盘整）有何指示意义？",
			}},
			{"基本面分析", models.IconBeaker, []string{
				"结合最新财报和新闻，简要分析公司的核心业务、行业地位和增长潜力。",
			}},
			{"技术指标分析", models.IconChartBar, []string{
				"分析近期走势并确定关键支撑位和阻力位。",
				"必须给出关键技术指标（如 MACD、RSI、KDJ）的当前具体数值，并据此分析短期涨跌的可能性。",
				"使用 HTML <strong> 标签突出指标名称和数值，例如 <strong>RSI (14):</strong> 65.2。",
			}},
			{"市场与政策情绪", models.IconNewspaper, []string{
				fmt.Sprintf("分析整体市场情绪、宏观因素（利率、通胀）、行业政策或突发新闻对 %s 股价的潜在影响。", inputs.Ticker),
				"在内容中提供 1-2 个关键信息来源的超链接（HTML <a> 标签），例如美联储官网或路透社、彭博社的报道。",
			}},
			{"后市趋势概率预测", models.IconChartPie, []string{
				"综合以上信息，给出短期上涨与下跌的概率预测。",
				"使用带 CSS 类的 HTML 表格呈现“趋势”和“概率”两列，并在表格下方说明核心逻辑。",
			}},
			{"交易策略参考", models.IconTrendingUp, []string{
				fmt.Sprintf("基于以上分析、%s 的计划投资总额和用户偏好，给出具体可操作的交易策略。", amount),
				"首先用带 CSS 类的 HTML 表格展示“策略项目”、“价格/区间”、“备注”三列，覆盖建仓区间、补仓区间1、补仓区间2、加仓区间1、加仓区间2、止损点、止盈目标1、止盈目标2。",
				"在表格下方详细说明执行细节和理由，在保证较高可达成率的前提下追求收益最大化。",
				"除 HTML 内容外，必须在 'strategy' JSON 对象中填入所有策略参数的精确字符串值，例如：" + strategyExample + "。",
				"最后必须包含以下免责声明：" + disclaimerZH,
			}},
		}
	}

	return []promptSection{
		{"Current Price Analysis", models.IconPriceTag, []string{
			fmt.Sprintf("Use technical charts to analyze the significance of the current price of %s.", price),
			"Is it near a key support or resistance level? What does it indicate for the short-term trend (up, down or consolidation)?",
		}},
		{"Fundamental Analysis", models.IconBeaker, []string{
			"Based on the latest earnings reports and news, briefly analyze the core business, industry position and growth potential.",
		}},
		{"Technical Indicator Analysis", models.IconChartBar, []string{
			"Analyze recent price action and identify key support and resistance levels.",
			"You must give the current values of key indicators (e.g. MACD, RSI, KDJ) and analyze the short-term likelihood of a rise or fall from them.",
			"Highlight indicator names and values with HTML <strong> tags, e.g. <strong>RSI (14):</strong> 65.2.",
		}},
		{"Market & Policy Sentiment", models.IconNewspaper, []string{
			fmt.Sprintf("Analyze how market sentiment, macroeconomic factors (interest rates, inflation), industry policy or breaking news may affect %s.", inputs.Ticker),
			"Include 1-2 hyperlinks (HTML <a> tags) to key sources such as the Federal Reserve, Reuters, Bloomberg or The Wall Street Journal.",
		}},
		{"Future Trend Probability Prediction", models.IconChartPie, []string{
			"Synthesizing the above, give a clear probability forecast for a short-term rise versus fall.",
			"Present it as an HTML table with CSS classes and the columns \"Trend\" and \"Probability\", then explain the core logic below the table.",
		}},
		{"Trading Strategy Reference", models.IconTrendingUp, []string{
			fmt.Sprintf("Based on the analysis above, the planned total investment of %s and the user's preferences, give a specific, actionable trading strategy.", amount),
			"First show an HTML table with CSS classes and the columns \"Strategy Item\", \"Price/Range\" and \"Notes\", covering Entry Range, Averaging Down Range 1 and 2, Scaling In Range 1 and 2, Stop-Loss and Profit Targets 1 and 2.",
			"Below the table explain the execution details and rationale, maximizing returns while keeping a high probability of success.",
			"In addition to the HTML content you MUST populate the 'strategy' JSON object with the exact string values of every parameter, for example: " + strategyExample + ".",
			"Finally include this disclaimer: " + disclaimerEN,
		}},
	}
}

// BuildAnalysisPrompt builds the six-section analysis request for inputs in lang
func BuildAnalysisPrompt(inputs models.SessionInputs, lang models.Language) string {
	price := formatMoney(inputs.CurrentPrice)
	amount := formatMoney(inputs.InvestmentAmountOrZero())

	var b strings.Builder

	if lang == models.LanguageChinese {
		b.WriteString("请扮演顶级的AI股票技术分析师和策略师，精通纳斯达克市场。\n\n")
		b.WriteString("最高优先级指令：\n")
		fmt.Fprintf(&b, "- 以用户提供的实时价格 %s 作为分析基准，严禁使用模拟、延迟或陈旧的数据。\n", price)
		b.WriteString("- 生成任何数字（尤其是技术指标）前，先在内部交叉核实数据源。\n")
		b.WriteString("- 基于事实，严禁使用任何假设性措辞。\n\n")

		fmt.Fprintf(&b, "用户正在分析股票 %s，最新实时价格为 %s，计划总投资额为 %s。", inputs.Ticker, price, amount)
		if inputs.PositionPrice != nil {
			fmt.Fprintf(&b, "用户当前持仓成本为 %s。\n", formatMoney(*inputs.PositionPrice))
		} else {
			b.WriteString("用户当前未持仓。\n")
		}
		fmt.Fprintf(&b, "用户的风险偏好为'%s'，投资周期为'%s'，市场波动偏好为'%s'。\n\n",
			riskLabels[lang][inputs.RiskTolerance],
			horizonLabels[lang][inputs.InvestmentHorizon],
			volatilityLabels[lang][inputs.VolatilityPreference])

		b.WriteString("如果股票不在纳斯达克交易，请明确指出并说明其主要交易所。\n")
		b.WriteString("报告必须包含以下六个部分，并严格按照指定的JSON格式返回。除“交易策略参考”外，其余部分的 strategy 字段必须为 null。\n\n")
	} else {
		b.WriteString("You are a top-tier AI stock technical analyst and strategist specializing in the NASDAQ market.\n\n")
		b.WriteString("Highest priority directives:\n")
		fmt.Fprintf(&b, "- Use the user-provided real-time price of %s as the benchmark. Simulated, delayed or outdated data is forbidden.\n", price)
		b.WriteString("- Cross-verify your data sources internally before producing any number, especially indicators.\n")
		b.WriteString("- Stay fact based. Hypothetical wording is forbidden.\n\n")

		fmt.Fprintf(&b, "The user is analyzing %s at a real-time price of %s with a planned total investment of %s.", inputs.Ticker, price, amount)
		if inputs.PositionPrice != nil {
			fmt.Fprintf(&b, " The user holds a position with an average cost of %s.\n", formatMoney(*inputs.PositionPrice))
		} else {
			b.WriteString(" The user does not currently hold a position.\n")
		}
		fmt.Fprintf(&b, "The user's risk tolerance is '%s', investment horizon is '%s' and volatility preference is '%s'.\n\n",
			riskLabels[lang][inputs.RiskTolerance],
			horizonLabels[lang][inputs.InvestmentHorizon],
			volatilityLabels[lang][inputs.VolatilityPreference])

		b.WriteString("If the stock does not trade on NASDAQ, say so and name its primary exchange.\n")
		b.WriteString("The report must contain the following six sections in strict JSON. For every section except \"Trading Strategy Reference\" the strategy field must be null.\n\n")
	}

	for i, section := range analysisSections(inputs, lang) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, section.title)
		for _, line := range section.instructions {
			fmt.Fprintf(&b, "   - %s\n", line)
		}
		fmt.Fprintf(&b, "   - icon: '%s'\n\n", section.icon)
	}

	if lang == models.LanguageChinese {
		b.WriteString("输出必须是严格的JSON，每个部分的 title 必须是中文标题，icon 关键字必须与上面指定的一致。")
	} else {
		b.WriteString("Output strict JSON. Every title must be in English and every icon keyword must match the ones above.")
	}

	return b.String()
}

// backtestSummaryKeys are the metric names of a backtest summary, in presentation order
var backtestSummaryKeys = map[models.Language][]string{
	models.LanguageEnglish: {"Simulation Period", "Total Trades", "Winning Trades", "Losing Trades", "Win Rate (%)", "Net P/L (%)"},
	models.LanguageChinese: {"模拟周期", "总交易次数", "盈利交易", "亏损交易", "胜率 (%)", "净盈亏 (%)"},
}

// BacktestSummaryKeys returns the summary metric names for lang
func BacktestSummaryKeys(lang models.Language) []string {
	keys, ok := backtestSummaryKeys[lang]
	if !ok {
		keys = backtestSummaryKeys[models.LanguageEnglish]
	}
	return append([]string(nil), keys...)
}

// BuildBacktestPrompt builds the one-year simulation request for strategy on ticker
func BuildBacktestPrompt(ticker string, strategy models.TradingStrategy, lang models.Language) string {
	keys := BacktestSummaryKeys(lang)
	var b strings.Builder

	if lang == models.LanguageChinese {
		fmt.Fprintf(&b, "您是一位量化分析师。请使用 %s 过去一年的历史数据，对以下交易策略进行模拟回测：\n", ticker)
		writeParams(&b, []strategyParam{
			{"建仓区间", strategy.EntryRange, false},
			{"补仓区间 1", strategy.AveragingDownRange1, true},
			{"补仓区间 2", strategy.AveragingDownRange2, true},
			{"加仓区间 1", strategy.ScalingInRange1, true},
			{"加仓区间 2", strategy.ScalingInRange2, true},
			{"止损点", strategy.StopLoss, false},
			{"止盈目标 1", strategy.ProfitTarget1, false},
			{"止盈目标 2", strategy.ProfitTarget2, false},
		})
		b.WriteString("\n模拟时假设在“建仓区间”内单次建仓，在“止盈目标 1”卖出50%仓位，在“止盈目标 2”卖出剩余50%。补仓和加仓区间只在叙述分析中讨论，不纳入量化模拟。\n\n")
		b.WriteString("输出必须是严格的JSON对象，包含 'summary'、'narrative'、'verdict' 和 'chartData' 四个字段：\n")
		fmt.Fprintf(&b, "1. summary：键为指标名称、值为结果字符串的对象，必须包含：'%s'。\n", strings.Join(keys, "', '"))
		b.WriteString("2. narrative：Markdown 格式，分析策略在关键市场阶段（如牛市、回调）的表现。\n")
		b.WriteString("3. verdict：Markdown 格式，对策略历史可行性的最终评价。\n")
		b.WriteString("4. chartData：对象数组，每项包含 'date'（YYYY-MM-DD）和 'value'（数字），表示假设的 $10,000 组合的每日价值，至少30个数据点，包含周期的开始和结束。")
		return b.String()
	}

	fmt.Fprintf(&b, "You are a quantitative analyst. Using the past year of historical data for %s, simulate the following trading strategy:\n", ticker)
	writeParams(&b, []strategyParam{
		{"Entry Range", strategy.EntryRange, false},
		{"Averaging Down Range 1", strategy.AveragingDownRange1, true},
		{"Averaging Down Range 2", strategy.AveragingDownRange2, true},
		{"Scaling In Range 1", strategy.ScalingInRange1, true},
		{"Scaling In Range 2", strategy.ScalingInRange2, true},
		{"Stop-Loss", strategy.StopLoss, false},
		{"Profit Target 1", strategy.ProfitTarget1, false},
		{"Profit Target 2", strategy.ProfitTarget2, false},
	})
	b.WriteString("\nAssume a single entry within the Entry Range, 50% of the position sold at Profit Target 1 and the remaining 50% at Profit Target 2. Discuss the averaging down and scaling in ranges in the narrative only; they are not part of the quantitative simulation.\n\n")
	b.WriteString("Output a strict JSON object with the fields 'summary', 'narrative', 'verdict' and 'chartData':\n")
	fmt.Fprintf(&b, "1. summary: an object mapping metric names to string results. It must include: '%s'.\n", strings.Join(keys, "', '"))
	b.WriteString("2. narrative: markdown analyzing the strategy's performance in key market phases (e.g. bull runs, corrections).\n")
	b.WriteString("3. verdict: markdown with the final verdict on the strategy's historical viability.\n")
	b.WriteString("4. chartData: an array of objects with 'date' (YYYY-MM-DD) and 'value' (number) giving the daily value of a hypothetical $10,000 portfolio. Provide at least 30 points including the start and end of the period.")
	return b.String()
}

// strategyParam is one line of the strategy block; optional lines are omitted when empty
type strategyParam struct {
	label    string
	value    string
	optional bool
}

func writeParams(b *strings.Builder, params []strategyParam) {
	for _, p := range params {
		if p.optional && p.value == "" {
			continue
		}
		fmt.Fprintf(b, "- %s: %s\n", p.label, p.value)
	}
}
