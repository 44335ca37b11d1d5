package fanctl

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile says which device to open and how to talk to it.
type Profile struct {
	VID       uint16 `yaml:"vid"`
	PID       uint16 `yaml:"pid"`
	Interface uint16 `yaml:"interface"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Serial    string `yaml:"serial,omitempty"`
}

// DefaultProfile matches the shared vendor-class HID ID the firmware
// enumerates with.
func DefaultProfile() Profile {
	return Profile{
		VID:       0x16c0,
		PID:       0x05df,
		TimeoutMs: 1000,
	}
}

func (p Profile) Timeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return time.Second
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// LoadProfile reads a YAML profile over the defaults. An empty path returns
// the defaults.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.VID == 0 || p.PID == 0 {
		return p, fmt.Errorf("profile %s: vid and pid are required", path)
	}
	return p, nil
}
