// Package events provides the in-process event bus used to decouple modules:
// trading and auth emit, the SSE price stream and notification listeners
// consume. Delivery is asynchronous and best-effort, no persistence.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	PriceUpdated    EventType = "PRICE_UPDATED"
	TradeExecuted   EventType = "TRADE_EXECUTED"
	UserRegistered  EventType = "USER_REGISTERED"
	SymbolsImported EventType = "SYMBOLS_IMPORTED"
	BackupCompleted EventType = "BACKUP_COMPLETED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
