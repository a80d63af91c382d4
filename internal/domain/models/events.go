package models

import "time"

// StockAlertLogEntry records one dispatched low-stock alert.
type StockAlertLogEntry struct {
	SiteID     string    `json:"site_id" bson:"site_id"`
	StockLevel float64   `json:"stock_level" bson:"stock_level"`
	AlertedAt  time.Time `json:"alerted_at" bson:"alerted_at"`
}

// IssueLogEntry records one issue raised by an operator.
type IssueLogEntry struct {
	SiteID      string    `json:"site_id" bson:"site_id"`
	Description string    `json:"description" bson:"description"`
	IssuedAt    time.Time `json:"issued_at" bson:"issued_at"`
}

// Issue is an operator submission before validation.
type Issue struct {
	SiteID      string
	Description string
	Attachment  *Attachment
}
