package session

import (
	"fmt"

	"github.com/ternarybob/stocklens/internal/models"
)

// User facing error texts, keyed by the active language.

func validationMessage(lang models.Language) string {
	if lang == models.LanguageChinese {
		return "请输入有效的股票代码和正数的实时价格。"
	}
	return "Please enter a valid ticker and a positive current price."
}

func toggleFailedMessage(lang, target models.Language, err error) string {
	if lang == models.LanguageChinese {
		name := "中文"
		if target == models.LanguageEnglish {
			name = "英文"
		}
		return fmt.Sprintf("获取%s分析失败：%s", name, providerMessage(err))
	}
	return fmt.Sprintf("Failed to fetch %s analysis: %s", target.DisplayName(), providerMessage(err))
}

func noStrategyMessage(lang models.Language) string {
	if lang == models.LanguageChinese {
		return "没有可用于回测的策略数据。"
	}
	return "No strategy data available to run backtest."
}

func backtestFailedMessage(lang models.Language, err error) string {
	if lang == models.LanguageChinese {
		return "回测失败：" + providerMessage(err)
	}
	return "Backtest failed: " + providerMessage(err)
}

// providerMessage is the provider's own message, which the session surfaces unchanged
func providerMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
