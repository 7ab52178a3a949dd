package session

import (
	"github.com/ternarybob/stocklens/internal/models"
)

// ExtractStrategy returns the strategy of the first section tagged
// arrows-trending-up, or nil when there is none or it carries no strategy.
// The returned value is a copy.
func ExtractStrategy(sections []models.AnalysisSection) *models.TradingStrategy {
	for _, section := range sections {
		if !section.Icon.IsStrategyBearing() {
			continue
		}
		if section.Strategy == nil {
			return nil
		}
		strategy := *section.Strategy
		return &strategy
	}
	return nil
}
