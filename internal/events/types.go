// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	PortfolioChanged    EventType = "PORTFOLIO_CHANGED"
	TradeExecuted       EventType = "TRADE_EXECUTED"
	PortfolioRolledBack EventType = "PORTFOLIO_ROLLED_BACK"
	SnapshotRecorded    EventType = "SNAPSHOT_RECORDED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}
