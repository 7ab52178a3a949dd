package transform

import (
	"fmt"
	"strings"

	"github.com/ternarybob/stocklens/internal/models"
)

type headings struct {
	sources   string
	strategy  string
	backtest  string
	metric    string
	value     string
	narrative string
	verdict   string
	portfolio string
}

var headingsByLanguage = map[models.Language]headings{
	models.LanguageEnglish: {
		sources:   "Sources",
		strategy:  "Strategy parameters",
		backtest:  "Backtest",
		metric:    "Metric",
		value:     "Value",
		narrative: "Narrative",
		verdict:   "Verdict",
		portfolio: "Portfolio value",
	},
	models.LanguageChinese: {
		sources:   "信息来源",
		strategy:  "策略参数",
		backtest:  "回测",
		metric:    "指标",
		value:     "数值",
		narrative: "分析",
		verdict:   "结论",
		portfolio: "组合价值",
	},
}

func headingsFor(lang models.Language) headings {
	if h, ok := headingsByLanguage[lang]; ok {
		return h
	}
	return headingsByLanguage[models.LanguageEnglish]
}

// SectionsToMarkdown renders an analysis as markdown with one level-2 heading
// per section, followed by the cited sources of all sections.
func (s *Service) SectionsToMarkdown(title string, sections []models.AnalysisSection, lang models.Language) (string, error) {
	h := headingsFor(lang)

	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}

	var sources []Link
	seen := make(map[string]bool)

	for _, section := range sections {
		fmt.Fprintf(&b, "## %s\n\n", section.Title)

		body, err := s.HTMLToMarkdown(section.Content)
		if err != nil {
			return "", fmt.Errorf("failed to convert section %q: %w", section.Title, err)
		}
		if body = strings.TrimSpace(body); body != "" {
			b.WriteString(body)
			b.WriteString("\n\n")
		}

		if section.Strategy != nil {
			fmt.Fprintf(&b, "### %s\n\n", h.strategy)
			writeStrategy(&b, section.Strategy)
			b.WriteString("\n")
		}

		links, err := s.ExtractLinks(section.Content)
		if err != nil {
			s.logger.Warn().Err(err).Str("section", section.Title).Msg("Failed to extract section links")
			continue
		}
		for _, link := range links {
			if !seen[link.URL] {
				seen[link.URL] = true
				sources = append(sources, link)
			}
		}
	}

	if len(sources) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", h.sources)
		for _, link := range sources {
			fmt.Fprintf(&b, "- [%s](%s)\n", link.Text, link.URL)
		}
	}

	return strings.TrimSpace(b.String()) + "\n", nil
}

func writeStrategy(b *strings.Builder, st *models.TradingStrategy) {
	rows := [][2]string{
		{"entryRange", st.EntryRange},
		{"averagingDownRange1", st.AveragingDownRange1},
		{"averagingDownRange2", st.AveragingDownRange2},
		{"scalingInRange1", st.ScalingInRange1},
		{"scalingInRange2", st.ScalingInRange2},
		{"stopLoss", st.StopLoss},
		{"profitTarget1", st.ProfitTarget1},
		{"profitTarget2", st.ProfitTarget2},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(b, "- %s: %s\n", row[0], row[1])
	}
}

// BacktestToMarkdown renders a backtest as a metric table, the narrative, the
// verdict and the first and last portfolio values.
func (s *Service) BacktestToMarkdown(result *models.BacktestResult, lang models.Language) (string, error) {
	if result == nil {
		return "", nil
	}
	h := headingsFor(lang)

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", h.backtest)

	if entries := result.SummaryEntries(); len(entries) > 0 {
		fmt.Fprintf(&b, "| %s | %s |\n| --- | --- |\n", h.metric, h.value)
		for _, e := range entries {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(e[0]), escapeCell(stripHTMLTags(e[1])))
		}
		b.WriteString("\n")
	}

	for _, part := range []struct {
		heading string
		html    string
	}{
		{h.narrative, result.Narrative},
		{h.verdict, result.Verdict},
	} {
		if strings.TrimSpace(part.html) == "" {
			continue
		}
		body, err := s.HTMLToMarkdown(part.html)
		if err != nil {
			return "", fmt.Errorf("failed to convert %s: %w", part.heading, err)
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", part.heading, strings.TrimSpace(body))
	}

	if n := len(result.ChartData); n > 0 {
		first, last := result.ChartData[0], result.ChartData[n-1]
		fmt.Fprintf(&b, "### %s\n\n- %s: %.2f\n- %s: %.2f\n", h.portfolio, first.Date, first.Value, last.Date, last.Value)
	}

	return strings.TrimSpace(b.String()) + "\n", nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
