package llm

import "github.com/ternarybob/stocklens/internal/models"

var strategyFields = []string{
	"entryRange",
	"averagingDownRange1",
	"averagingDownRange2",
	"scalingInRange1",
	"scalingInRange2",
	"stopLoss",
	"profitTarget1",
	"profitTarget2",
}

func stringProperties(names []string) map[string]interface{} {
	props := make(map[string]interface{}, len(names))
	for _, name := range names {
		props[name] = map[string]interface{}{"type": "string"}
	}
	return props
}

// analysisSchema is the structured output schema of an analysis response
func analysisSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"analysis": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"title": map[string]interface{}{"type": "string"},
						"icon": map[string]interface{}{
							"type":        "string",
							"description": "Icon keyword: price-tag, beaker, chart-bar, newspaper, chart-pie, arrows-trending-up",
						},
						"content": map[string]interface{}{
							"type":        "string",
							"description": "HTML-formatted content for the section.",
						},
						"strategy": map[string]interface{}{
							"type":             "object",
							"nullable":         true,
							"properties":       stringProperties(strategyFields),
							"propertyOrdering": strategyFields,
						},
					},
					"required":         []string{"title", "icon", "content"},
					"propertyOrdering": []string{"title", "icon", "content", "strategy"},
				},
			},
		},
		"required": []string{"analysis"},
	}
}

// backtestSchema is the structured output schema of a backtest response in lang
func backtestSchema(lang models.Language) map[string]interface{} {
	keys := BacktestSummaryKeys(lang)
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"summary": map[string]interface{}{
				"type":             "object",
				"properties":       stringProperties(keys),
				"required":         keys,
				"propertyOrdering": keys,
			},
			"narrative": map[string]interface{}{"type": "string"},
			"verdict":   map[string]interface{}{"type": "string"},
			"chartData": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"date":  map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
						"value": map[string]interface{}{"type": "number"},
					},
					"required": []string{"date", "value"},
				},
			},
		},
		"required":         []string{"summary", "narrative", "verdict", "chartData"},
		"propertyOrdering": []string{"summary", "narrative", "verdict", "chartData"},
	}
}
