// Package config loads and validates the JSON configuration document
// described in the external interfaces section of the specification:
// BIOS path, controller/memory-card slot wiring, logger settings,
// breakpoint/HLE enables, and the disc path.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ControllerType enumerates the devices that can occupy a controller slot.
type ControllerType string

const (
	ControllerNone     ControllerType = "NONE"
	ControllerStandard ControllerType = "STANDARD"
)

// ControllerSlot describes one of the two controller ports.
type ControllerSlot struct {
	Connected bool           `json:"connected"`
	Type      ControllerType `json:"type"`
}

// MemoryCardSlot describes one of the two memory-card ports.
type MemoryCardSlot struct {
	Connected bool   `json:"connected"`
	Path      string `json:"path"`
}

// LoggerConfig mirrors internal/logger's filtering knobs.
type LoggerConfig struct {
	Level       string   `json:"level"`
	Categories  []string `json:"categories"`
	ToFile      string   `json:"toFile"`
	ToConsole   bool     `json:"toConsole"`
	SyscallLog  bool     `json:"syscallLog"`
}

// DiscConfig names the cue sheet and its companion bin file.
type DiscConfig struct {
	CuePath string `json:"cuePath"`
	BinPath string `json:"binPath"`
}

// Config is the fully parsed, validated configuration for one machine.
type Config struct {
	BIOSPath     string           `json:"biosPath"`
	Controllers  [2]ControllerSlot `json:"controllers"`
	MemoryCards  [2]MemoryCardSlot `json:"memoryCards"`
	Logger       LoggerConfig     `json:"logger"`
	Breakpoints  bool             `json:"breakpointsEnabled"`
	HLEEnabled   bool             `json:"hleEnabled"`
	Disc         *DiscConfig      `json:"disc"`
	RAMSizeBytes int              `json:"ramSizeBytes"`
}

// validRAMSizes are the only RAM sizes the region map supports (§3).
var validRAMSizes = map[int]bool{
	1 * 1024 * 1024: true,
	2 * 1024 * 1024: true,
	4 * 1024 * 1024: true,
	8 * 1024 * 1024: true,
}

// Load reads and validates a configuration document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.RAMSizeBytes == 0 {
		cfg.RAMSizeBytes = 2 * 1024 * 1024
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural invariants Load relies on external
// callers (e.g. tests constructing a Config in-process) to also honor.
func (c *Config) Validate() error {
	if c.BIOSPath == "" {
		return fmt.Errorf("config: biosPath is required")
	}
	if !validRAMSizes[c.RAMSizeBytes] {
		return fmt.Errorf("config: ramSizeBytes %d is not one of 1/2/4/8 MiB", c.RAMSizeBytes)
	}
	for i, slot := range c.Controllers {
		if slot.Connected && slot.Type != ControllerStandard {
			return fmt.Errorf("config: controller slot %d connected with unsupported type %q", i, slot.Type)
		}
	}
	for i, slot := range c.MemoryCards {
		if slot.Connected && slot.Path == "" {
			return fmt.Errorf("config: memory card slot %d connected with empty path", i)
		}
	}
	if c.Disc != nil {
		if c.Disc.CuePath == "" || c.Disc.BinPath == "" {
			return fmt.Errorf("config: disc requires both cuePath and binPath")
		}
	}
	return nil
}
