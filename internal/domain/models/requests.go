package models

// Requests for the anomaly HTTP endpoints. Defined in domain for consistency and reuse.

type ListAnomaliesRequest struct {
	Detector      string  `query:"detector" json:"detector" validate:"omitempty,oneof=multivariate forecast univariate:gdp univariate:corporate_credit univariate:household_credit univariate:total_debt"`
	ConsensusOnly bool    `query:"consensus_only" json:"consensus_only"`
	FlaggedOnly   bool    `query:"flagged_only" json:"flagged_only"`
	MinScore      float64 `query:"min_score" json:"min_score" validate:"gte=0,lte=1"`
}

type PeriodRequest struct {
	Period string `param:"period" json:"period" validate:"required"`
}

type IndicatorRequest struct {
	Name string `query:"name" json:"name" default:"gdp" validate:"oneof=gdp corporate_credit household_credit total_debt"`
}
