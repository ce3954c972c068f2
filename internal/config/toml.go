package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ProfileOverrides holds per-profile bank-level settings that a caller
// can keep in a local TOML file (e.g. ~/.hindsight/profiles.toml) and
// merge with Resolve. This lets a CLI user switch embedding/LLM
// providers per profile without touching the YAML server config.
type ProfileOverrides struct {
	Profiles map[string]Config `toml:"profiles"`
}

// LoadProfiles reads a TOML profile file. A missing file is not an
// error; it simply yields no overrides.
func LoadProfiles(path string) (ProfileOverrides, error) {
	var overrides ProfileOverrides
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return overrides, nil
		}
		return overrides, fmt.Errorf("failed to read profile file: %w", err)
	}
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return overrides, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}
	return overrides, nil
}

// ForProfile looks up a named profile's overrides, returning the zero
// Config (no overrides) if the profile isn't defined.
func (p ProfileOverrides) ForProfile(name string) Config {
	return p.Profiles[name]
}
