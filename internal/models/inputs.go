package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// InvestmentHorizon is the user's intended holding period.
type InvestmentHorizon string

const (
	HorizonShort  InvestmentHorizon = "short"
	HorizonMedium InvestmentHorizon = "medium"
	HorizonLong   InvestmentHorizon = "long"
)

// VolatilityPreference is how much price movement the user is willing to accept.
type VolatilityPreference string

const (
	VolatilityLow    VolatilityPreference = "low"
	VolatilityMedium VolatilityPreference = "medium"
	VolatilityHigh   VolatilityPreference = "high"
)

// RiskTolerance is the user's risk appetite.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskBalanced     RiskTolerance = "balanced"
	RiskAggressive   RiskTolerance = "aggressive"
)

// IsValid reports whether h is one of the known horizons.
func (h InvestmentHorizon) IsValid() bool {
	return h == HorizonShort || h == HorizonMedium || h == HorizonLong
}

// IsValid reports whether v is one of the known volatility preferences.
func (v VolatilityPreference) IsValid() bool {
	return v == VolatilityLow || v == VolatilityMedium || v == VolatilityHigh
}

// IsValid reports whether r is one of the known risk tolerances.
func (r RiskTolerance) IsValid() bool {
	return r == RiskConservative || r == RiskBalanced || r == RiskAggressive
}

// SessionInputs are the user supplied parameters of an analysis request.
// The validate tags express the preconditions of an analysis request.
type SessionInputs struct {
	Ticker               string               `json:"ticker" validate:"required"`
	CurrentPrice         float64              `json:"currentPrice" validate:"gt=0"`
	InvestmentAmount     *float64             `json:"investmentAmount" validate:"omitempty,gte=0"`
	PositionPrice        *float64             `json:"positionPrice" validate:"omitempty,gte=0"`
	InvestmentHorizon    InvestmentHorizon    `json:"investmentHorizon" validate:"oneof=short medium long"`
	VolatilityPreference VolatilityPreference `json:"volatilityPreference" validate:"oneof=low medium high"`
	RiskTolerance        RiskTolerance        `json:"riskTolerance" validate:"oneof=conservative balanced aggressive"`
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Clone returns a copy of the inputs that shares no pointers with the original.
func (in SessionInputs) Clone() SessionInputs {
	out := in
	if in.InvestmentAmount != nil {
		v := *in.InvestmentAmount
		out.InvestmentAmount = &v
	}
	if in.PositionPrice != nil {
		v := *in.PositionPrice
		out.PositionPrice = &v
	}
	return out
}

// InvestmentAmountOrZero returns the planned investment, or zero when unset.
func (in SessionInputs) InvestmentAmountOrZero() float64 {
	if in.InvestmentAmount == nil {
		return 0
	}
	return *in.InvestmentAmount
}

var inputValidator = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New()
	// Report json field names so errors match the API surface
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the preconditions of an analysis request.
// Returns a *ValidationError naming the first offending field.
func (in SessionInputs) Validate() error {
	err := inputValidator.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Field(), Message: "failed '" + fe.Tag() + "' check"}
	}
	return &ValidationError{Message: err.Error()}
}

// InputUpdate carries raw user input for any subset of the session inputs.
// Nil fields are left untouched. Numeric fields are parsed by the session.
type InputUpdate struct {
	Ticker               *string `json:"ticker,omitempty"`
	CurrentPrice         *string `json:"currentPrice,omitempty"`
	InvestmentAmount     *string `json:"investmentAmount,omitempty"`
	PositionPrice        *string `json:"positionPrice,omitempty"`
	InvestmentHorizon    *string `json:"investmentHorizon,omitempty"`
	VolatilityPreference *string `json:"volatilityPreference,omitempty"`
	RiskTolerance        *string `json:"riskTolerance,omitempty"`
}
