package strategy

// Params holds numeric tunables for one strategy entry.
type Params map[string]float64

// Get returns the named parameter or def when it is absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Config is one entry of the ordered strategy list.
type Config struct {
	Kind    Kind   `toml:"kind" json:"kind"`
	Enabled bool   `toml:"enabled" json:"enabled"`
	Params  Params `toml:"params" json:"params,omitempty"`
}

// DefaultConfigs returns the strategy set used when none is configured.
func DefaultConfigs() []Config {
	return []Config{
		{Kind: KindMomentum, Enabled: true, Params: Params{}},
		{Kind: KindVolumeSpike, Enabled: true, Params: Params{}},
		{Kind: KindHolderGrowth, Enabled: true, Params: Params{}},
	}
}
