package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the recommended trading action carried by a Signal.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal is a recommendation produced by a strategy or by the exit scanner.
// It is consumed exactly once by the trading engine.
type Signal struct {
	ID            string
	Source        string // strategy kind or "exit_scanner"
	Asset         Asset
	Action        Action
	Confidence    float64 // always within [0,1]
	Reason        string
	ExpectedPrice *float64
	CreatedAt     time.Time
}

// NewSignal builds a Signal with a fresh ID and the confidence clamped to
// [0,1].
func NewSignal(source string, asset Asset, action Action, confidence float64, reason string, expected *float64) Signal {
	return Signal{
		ID:            uuid.New().String(),
		Source:        source,
		Asset:         asset,
		Action:        action,
		Confidence:    ClampConfidence(confidence),
		Reason:        reason,
		ExpectedPrice: expected,
		CreatedAt:     time.Now().UTC(),
	}
}

// ClampConfidence bounds c to [0,1]. NaN maps to 0.
func ClampConfidence(c float64) float64 {
	switch {
	case c != c:
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// String renders the signal for log lines.
func (s Signal) String() string {
	return fmt.Sprintf("%s %s (%s) conf=%.2f: %s", s.Action, s.Asset.Symbol, s.Asset.Address, s.Confidence, s.Reason)
}
