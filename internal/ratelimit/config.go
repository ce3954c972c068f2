package ratelimit

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool         `mapstructure:"enabled"`
	Global  LimitConfig  `mapstructure:"global"`
	Scopes  []ScopeLimit `mapstructure:"scopes"`
}

// LimitConfig defines rate limit parameters.
type LimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// ScopeLimit defines a per-scope rate limit, keyed by the same scope
// name passed as llm.CallOptions.Scope.
type ScopeLimit struct {
	Name              string  `mapstructure:"name"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// DefaultConfig returns the default rate limiting configuration. Scope
// names match the llm.CallOptions.Scope values the engine's
// collaborators pass: "extract" (retain pipeline), "consolidate"
// (consolidation engine's batch synthesis calls), and "reflect"
// (contextual synthesis). Unnamed scopes fall through to the global
// bucket only. Consolidation gets the tightest per-scope burst since
// its batch calls carry the largest prompts (unioned facts plus
// hydrated observation evidence).
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Global: LimitConfig{
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		Scopes: []ScopeLimit{
			{
				Name:              "extract",
				RequestsPerSecond: 10,
				BurstSize:         20,
			},
			{
				Name:              "consolidate",
				RequestsPerSecond: 5,
				BurstSize:         10,
			},
			{
				Name:              "reflect",
				RequestsPerSecond: 10,
				BurstSize:         20,
			},
		},
	}
}

// GetScopeLimit returns the limit configuration for a specific scope.
// Returns nil if no specific limit is configured for the scope.
func (c *Config) GetScopeLimit(scope string) *ScopeLimit {
	for _, s := range c.Scopes {
		if s.Name == scope {
			return &s
		}
	}
	return nil
}
