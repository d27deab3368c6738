package events

// EventData is implemented by typed event payloads. Emitting through
// Manager.EmitTyped converts the payload to the map form bus subscribers
// consume, so typed and map-based emitters can coexist.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PriceUpdatedData contains data for PriceUpdated events
type PriceUpdatedData struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Timestamp     int64   `json:"timestamp"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	UserID     int64   `json:"user_id"`
	Ticker     string  `json:"ticker"`
	Side       string  `json:"side"`
	Shares     string  `json:"shares"`
	Price      string  `json:"price"`
	Amount     string  `json:"amount"`
	RealizedPL *string `json:"realized_pl,omitempty"`
	OrderID    string  `json:"order_id"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// UserRegisteredData contains data for UserRegistered events
type UserRegisteredData struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// EventType returns the event type for UserRegisteredData
func (d *UserRegisteredData) EventType() EventType {
	return UserRegistered
}

// SymbolsImportedData contains data for SymbolsImported events
type SymbolsImportedData struct {
	Imported int `json:"imported"`
	Pages    int `json:"pages"`
}

// EventType returns the event type for SymbolsImportedData
func (d *SymbolsImportedData) EventType() EventType {
	return SymbolsImported
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Archive  string `json:"archive"`
	Bytes    int64  `json:"bytes"`
	Uploaded bool   `json:"uploaded"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
