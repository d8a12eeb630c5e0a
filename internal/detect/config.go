package detect

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/rankforge/linkmesh/internal/model"
)

// Default thresholds, used when the corresponding Config field is zero.
const (
	// DefaultMaxDirectMainLinks is the number of direct tier-1 links a main
	// entry may receive before the equity-dilution rule fires.
	DefaultMaxDirectMainLinks = 1
	// DefaultMinSharedKeywords is the keyword overlap needed before two
	// entries are considered to cannibalize each other.
	DefaultMinSharedKeywords = 2
)

// Config tunes rule thresholds. Severity overrides replace the built-in
// lookup for a whole conflict type.
type Config struct {
	MaxDirectMainLinks int `toml:"max_direct_main_links"`
	MinSharedKeywords  int `toml:"min_shared_keywords"`
	// MaxChainHops bounds every target-chain walk; 0 means the snapshot's
	// node count, which is always sufficient to detect a loop.
	MaxChainHops int `toml:"max_chain_hops"`

	SeverityOverrides map[string]model.Severity `toml:"severity_overrides"`
}

func (c *Config) applyDefaults() {
	if c.MaxDirectMainLinks <= 0 {
		c.MaxDirectMainLinks = DefaultMaxDirectMainLinks
	}
	if c.MinSharedKeywords <= 0 {
		c.MinSharedKeywords = DefaultMinSharedKeywords
	}
}

// LoadConfig reads a detector rules file in TOML format. A missing path
// returns the zero config (defaults apply in New).
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("rules file %s: %w", path, err)
		}
		return Config{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	for typ, sev := range cfg.SeverityOverrides {
		if !model.ConflictType(typ).IsValid() {
			return Config{}, fmt.Errorf("rules file %s: unknown conflict type %q", path, typ)
		}
		if !sev.IsValid() {
			return Config{}, fmt.Errorf("rules file %s: invalid severity %q for %s", path, sev, typ)
		}
	}
	return cfg, nil
}
