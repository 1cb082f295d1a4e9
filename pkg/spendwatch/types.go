// Package spendwatch is the Go client SDK for the spendwatch API.
package spendwatch

import (
	"fmt"
	"time"
)

// Record is one transaction row to upload. Amount may be a number or a
// numeric string; the server accepts both.
type Record struct {
	VendorID   string  `json:"vendor_id"`
	VendorName string  `json:"vendor_name"`
	Department string  `json:"department"`
	Amount     float64 `json:"amount"`
	Location   string  `json:"location,omitempty"`
	Date       string  `json:"transaction_date"` // YYYY-MM-DD
}

// Rejection explains why one uploaded record was refused.
type Rejection struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// UploadResult summarizes a batch upload.
type UploadResult struct {
	BatchID    string      `json:"batch_id"`
	Accepted   int         `json:"accepted"`
	Rejected   int         `json:"rejected"`
	Rejections []Rejection `json:"rejections"`
}

// AnalysisResult summarizes one analysis run.
type AnalysisResult struct {
	Message  string `json:"message"`
	Analyzed int64  `json:"analyzed"`
	Flagged  int64  `json:"flagged"`
	Skipped  int64  `json:"skipped"`
	Failed   int64  `json:"failed"`
}

// Anomaly is a scored transaction joined with its verdict.
type Anomaly struct {
	TransactionID int64     `json:"transaction_id"`
	VendorID      string    `json:"vendor_id"`
	VendorName    string    `json:"vendor_name"`
	Department    string    `json:"department"`
	Amount        float64   `json:"amount"`
	Location      string    `json:"location"`
	Date          time.Time `json:"transaction_date"`
	Score         float64   `json:"anomaly_score"`
	RiskLevel     string    `json:"risk_level"`
	Reasons       []string  `json:"reason"`
	DetectedAt    time.Time `json:"detected_at"`
}

// AnomalyPage is one page of the anomaly listing.
type AnomalyPage struct {
	Anomalies  []Anomaly `json:"anomalies"`
	NextCursor string    `json:"next_cursor"`
	HasMore    bool      `json:"has_more"`
}

// ListOptions filter and page the anomaly listing.
type ListOptions struct {
	Risk     string // LOW, MEDIUM, HIGH
	Location string
	Limit    int
	Cursor   string
}

// Overview is the dashboard summary.
type Overview struct {
	TotalTransactions    int64   `json:"totalTransactions"`
	FlaggedTransactions  int64   `json:"flaggedTransactions"`
	HighRiskTransactions int64   `json:"highRiskTransactions"`
	AmountAtRisk         float64 `json:"amountAtRisk"`
}

// RiskCount is one entry of the risk distribution.
type RiskCount struct {
	RiskLevel string `json:"risk_level"`
	Count     int64  `json:"count"`
}

// VendorSummary ranks a vendor by flagged activity.
type VendorSummary struct {
	VendorID      string  `json:"vendor_id"`
	VendorName    string  `json:"vendor_name"`
	FlaggedCount  int64   `json:"flagged_count"`
	FlaggedAmount float64 `json:"flagged_amount"`
}

// HeatCell is one bucket of a heatmap view.
type HeatCell struct {
	Key    string  `json:"key"`
	Count  int64   `json:"anomaly_count"`
	Amount float64 `json:"risky_amount"`
}

// Error is an API error response.
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
