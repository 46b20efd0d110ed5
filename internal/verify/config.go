// Package verify drives a running stagerank API with a synthetic match and
// checks the rankings it serves against ones computed from the generated data.
package verify

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default run settings.
const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultCompetitors = 24
	DefaultStages      = 6
	DefaultTimeout     = 10 * time.Second
	DefaultListenAddr  = "127.0.0.1:0"
)

// DefaultClasses are the competitor classes a synthetic match draws from.
var DefaultClasses = []string{"SSA", "SSO", "OPN", "PRO"}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid verify config")

// Config holds the settings of one verification run.
type Config struct {
	// BaseURL is the stagerank API under test.
	BaseURL     string
	// ListenAddr is where the synthetic results page is served. The API must
	// be able to reach it.
	ListenAddr  string
	Competitors int
	Stages      int
	Classes     []string
	Timeout     time.Duration
}

// DefaultConfig returns a config with every field set.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		ListenAddr:  DefaultListenAddr,
		Competitors: DefaultCompetitors,
		Stages:      DefaultStages,
		Classes:     append([]string(nil), DefaultClasses...),
		Timeout:     DefaultTimeout,
	}
}

// Validate checks the config and trims the base URL.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.ListenAddr == "":
		return fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	case c.Competitors < 1:
		return fmt.Errorf("%w: competitors must be >= 1, got %d", ErrInvalidConfig, c.Competitors)
	case c.Stages < 1:
		return fmt.Errorf("%w: stages must be >= 1, got %d", ErrInvalidConfig, c.Stages)
	case len(c.Classes) == 0:
		return fmt.Errorf("%w: at least one class is required", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	for _, class := range c.Classes {
		if strings.TrimSpace(class) == "" || strings.Contains(class, "/") {
			return fmt.Errorf("%w: bad class %q", ErrInvalidConfig, class)
		}
	}
	return nil
}
