package config

import "time"

// UIConfig holds popup configuration.
type UIConfig struct {
	// AutoRun starts a cycle as soon as the popup opens; false waits for a key press.
	AutoRun bool `yaml:"auto_run" json:"auto_run"`

	// TickInterval is how often the elapsed-time indicator refreshes.
	TickInterval string `yaml:"tick_interval" json:"tick_interval"`

	// Theme forces "light" or "dark"; empty detects from the terminal.
	Theme string `yaml:"theme,omitempty" json:"theme,omitempty"`

	// WatchSnapshot retries automatically when the snapshot file changes.
	WatchSnapshot bool `yaml:"watch_snapshot" json:"watch_snapshot"`

	// ShowMessages lists the extracted dialog above the reply.
	ShowMessages bool `yaml:"show_messages" json:"show_messages"`
}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		AutoRun:      true,
		TickInterval: "50ms",
		ShowMessages: true,
	}
}

// GetTickInterval returns the elapsed-time refresh interval.
func (c UIConfig) GetTickInterval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		return 50 * time.Millisecond
	}
	return d
}
