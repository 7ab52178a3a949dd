package models

// SnapshotSchemaVersion is the version marker written into every persisted snapshot.
const SnapshotSchemaVersion = 2

// SessionSnapshot is the persisted form of a session.
type SessionSnapshot struct {
	SchemaVersion int `json:"schemaVersion"`
	SessionInputs
	AnalysisLanguage Language                       `json:"analysisLanguage"`
	CachedAnalyses   map[Language][]AnalysisSection `json:"cachedAnalyses"`
}

// OperationStatus is the lifecycle state of one operation kind.
type OperationStatus string

const (
	OperationIdle     OperationStatus = "idle"
	OperationInFlight OperationStatus = "in_flight"
	OperationError    OperationStatus = "error"
)

// OperationState is the observable loading flag and error slot of an operation.
type OperationState struct {
	Status OperationStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// InFlight reports whether a request is outstanding.
func (s OperationState) InFlight() bool {
	return s.Status == OperationInFlight
}

// SessionView is a read-only copy of everything a UI renders.
// Revision increases with every view taken; a higher revision is a newer state.
type SessionView struct {
	Revision          uint64            `json:"revision"`
	Inputs            SessionInputs     `json:"inputs"`
	Language          Language          `json:"language"`
	Sections          []AnalysisSection `json:"sections"`
	CachedLanguages   []Language        `json:"cachedLanguages"`
	Strategy          *TradingStrategy  `json:"strategy"`
	Analysis          OperationState    `json:"analysis"`
	LanguageToggle    OperationState    `json:"languageToggle"`
	Backtest          OperationState    `json:"backtest"`
	BacktestResult    *BacktestResult   `json:"backtestResult"`
	LastAnalyzedPrice *float64          `json:"lastAnalyzedPrice"`
	PriceStale        bool              `json:"priceStale"`
	FromCache         bool              `json:"fromCache"`
	MonitorArmed      bool              `json:"monitorArmed"`
}

// PriceStaleNotice is the payload of a price drift notification.
type PriceStaleNotice struct {
	Ticker            string  `json:"ticker"`
	Price             float64 `json:"price"`
	LastAnalyzedPrice float64 `json:"lastAnalyzedPrice"`
	Drift             float64 `json:"drift"`
}
