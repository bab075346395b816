package domain

import (
	"fmt"
	"strings"
	"time"
)

// AlertLevel is the severity of an Alert.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertError
	AlertCritical
)

var alertLevelNames = [...]string{"Info", "Warning", "Error", "Critical"}

func (l AlertLevel) String() string {
	if l < 0 || int(l) >= len(alertLevelNames) {
		return fmt.Sprintf("AlertLevel(%d)", int(l))
	}
	return alertLevelNames[l]
}

// MarshalText encodes the level by name.
func (l AlertLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts the level name, case-insensitively.
func (l *AlertLevel) UnmarshalText(b []byte) error {
	s := string(b)
	for i, name := range alertLevelNames {
		if strings.EqualFold(name, s) {
			*l = AlertLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown alert level %q", s)
}

// Alert is a raised monitoring condition. Acknowledged is the only field
// that changes after creation.
type Alert struct {
	ID           string     `json:"id"`
	Level        AlertLevel `json:"level"`
	Message      string     `json:"message"`
	Timestamp    time.Time  `json:"timestamp"`
	Acknowledged bool       `json:"acknowledged"`
}
