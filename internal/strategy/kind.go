package strategy

import (
	"fmt"
	"strings"
)

// Kind identifies one entry of the fixed strategy catalog.
type Kind int

const (
	KindMomentum Kind = iota + 1
	KindMeanReversion
	KindBreakout
	KindVolumeSpike
	KindHolderGrowth
)

var kindNames = map[Kind]string{
	KindMomentum:      "momentum",
	KindMeanReversion: "mean_reversion",
	KindBreakout:      "breakout",
	KindVolumeSpike:   "volume_spike",
	KindHolderGrowth:  "holder_growth",
}

// Kinds returns every catalog entry in declaration order.
func Kinds() []Kind {
	return []Kind{KindMomentum, KindMeanReversion, KindBreakout, KindVolumeSpike, KindHolderGrowth}
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k names a catalog entry.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind accepts snake_case ("mean_reversion") or CamelCase
// ("MeanReversion") names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for k, name := range kindNames {
		if strings.ReplaceAll(name, "_", "") == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("strategy: unknown kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("strategy: unknown kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
