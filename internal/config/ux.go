package config

import "fmt"

// UIConfig holds task screen configuration.
type UIConfig struct {
	// Theme is "light", "dark" or "auto" (detect from the terminal).
	Theme string `yaml:"theme"`

	// Placeholder texts for the two inputs.
	TitlePlaceholder       string `yaml:"title_placeholder,omitempty"`
	DescriptionPlaceholder string `yaml:"description_placeholder,omitempty"`
}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Theme:                  "auto",
		TitlePlaceholder:       "What needs doing?",
		DescriptionPlaceholder: "Details (optional)",
	}
}

// Validate rejects unknown themes.
func (u *UIConfig) Validate() error {
	switch u.Theme {
	case "", "auto", "light", "dark":
		return nil
	}
	return fmt.Errorf("invalid ui theme: %s (valid: auto, light, dark)", u.Theme)
}
