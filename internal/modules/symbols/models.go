// Package symbols manages the tradable symbol universe: the catalog itself,
// the screener import pipeline and per-symbol analytics.
package symbols

import "time"

// Symbol is one tradable instrument in the catalog
type Symbol struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Exchange  string    `json:"exchange"`
	Currency  string    `json:"currency"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImportProgress is a point-in-time view of the import run
type ImportProgress struct {
	Running     bool       `json:"running"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	PagesLoaded int        `json:"pages_loaded"`
	Imported    int        `json:"imported"`
	Total       int        `json:"total"`
	LastError   string     `json:"last_error,omitempty"`
}
