package models

import (
	"github.com/solarroi/solarroi/internal/history"
)

// CalculateRequest is the body of POST /v1/roi:calculate.
type CalculateRequest struct {
	Location     string   `json:"location"`
	MonthlyBill  float64  `json:"monthlyBill"`
	SystemSizeKW *float64 `json:"systemSizeKW,omitempty"`
}

// PredictionsResponse lists recent prediction records, newest first.
type PredictionsResponse struct {
	Count   int               `json:"count"`
	Records []*history.Record `json:"records"`
}

// LatestPredictionResponse wraps the newest record. Latest is null when no
// calculation has been stored yet.
type LatestPredictionResponse struct {
	Exists bool            `json:"exists"`
	Latest *history.Record `json:"latest"`
}

// GlossaryTerm is one plain-language definition.
type GlossaryTerm struct {
	Term    string `json:"term"`
	Meaning string `json:"meaning"`
}

// GlossaryResponse is the body of GET /v1/glossary.
type GlossaryResponse struct {
	Terms []GlossaryTerm `json:"terms"`
}
