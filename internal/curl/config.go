package curl

import (
	"encoding/json"
	"fmt"
	"time"
)

// TorsoWindow is the number of consecutive torso samples averaged before the
// torso threshold is checked.
const TorsoWindow = 3

// Config holds the per-session tracker options. Fields carry YAML tags so the
// struct can be embedded directly in the service config file.
type Config struct {
	AngleThresholdDown    float64       `yaml:"angle_threshold_down" json:"angle_threshold_down"`
	AngleThresholdUp      float64       `yaml:"angle_threshold_up" json:"angle_threshold_up"`
	TorsoAngleThreshold   float64       `yaml:"torso_angle_threshold" json:"torso_angle_threshold"`
	MinHoldTime           time.Duration `yaml:"min_hold_time" json:"-"`
	MinLandmarkConfidence float64       `yaml:"min_landmark_confidence" json:"min_landmark_confidence"`
	DepthThreshold        float64       `yaml:"depth_threshold" json:"depth_threshold"`
	DepthFilterEnabled    bool          `yaml:"depth_filter_enabled" json:"depth_filter_enabled"`
	// MinROM is the minimum range of motion in degrees; 0 disables the check.
	MinROM        float64 `yaml:"min_rom" json:"min_rom"`
	HistoryLength int     `yaml:"history_length" json:"history_length"`
	// MissingTorsoIsViolation flags the cycle when torso geometry is unavailable.
	MissingTorsoIsViolation bool `yaml:"missing_torso_is_violation" json:"missing_torso_is_violation"`
}

type configJSON struct {
	MinHoldTimeS float64 `json:"min_hold_time_s"`
	plainConfig
}

type plainConfig Config

// MarshalJSON encodes MinHoldTime as seconds, like every other duration on
// the wire.
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{MinHoldTimeS: c.MinHoldTime.Seconds(), plainConfig: plainConfig(c)})
}

// UnmarshalJSON decodes "min_hold_time_s" into MinHoldTime.
func (c *Config) UnmarshalJSON(b []byte) error {
	v := configJSON{plainConfig: plainConfig(*c)}
	v.MinHoldTimeS = c.MinHoldTime.Seconds()
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Config(v.plainConfig)
	c.MinHoldTime = Seconds(v.MinHoldTimeS)
	return nil
}

// DefaultConfig returns the tuned defaults for a frontal or side camera at ~30 fps.
func DefaultConfig() Config {
	return Config{
		AngleThresholdDown:      160,
		AngleThresholdUp:        50,
		TorsoAngleThreshold:     30,
		MinHoldTime:             200 * time.Millisecond,
		MinLandmarkConfidence:   0.5,
		DepthThreshold:          0.1,
		DepthFilterEnabled:      true,
		MinROM:                  0,
		HistoryLength:           12,
		MissingTorsoIsViolation: true,
	}
}

// Validate checks that the thresholds describe a usable state machine.
func (c Config) Validate() error {
	if c.AngleThresholdDown < 0 || c.AngleThresholdDown > 180 {
		return fmt.Errorf("angle_threshold_down %.1f out of range [0, 180]", c.AngleThresholdDown)
	}
	if c.AngleThresholdUp < 0 || c.AngleThresholdUp > 180 {
		return fmt.Errorf("angle_threshold_up %.1f out of range [0, 180]", c.AngleThresholdUp)
	}
	if c.AngleThresholdUp >= c.AngleThresholdDown {
		return fmt.Errorf("angle_threshold_up (%.1f) must be below angle_threshold_down (%.1f)",
			c.AngleThresholdUp, c.AngleThresholdDown)
	}
	if c.TorsoAngleThreshold < 0 {
		return fmt.Errorf("torso_angle_threshold must not be negative")
	}
	if c.MinHoldTime < 0 {
		return fmt.Errorf("min_hold_time must not be negative")
	}
	if c.MinLandmarkConfidence < 0 || c.MinLandmarkConfidence > 1 {
		return fmt.Errorf("min_landmark_confidence %.2f out of range [0, 1]", c.MinLandmarkConfidence)
	}
	if c.DepthThreshold < 0 {
		return fmt.Errorf("depth_threshold must not be negative")
	}
	if c.MinROM < 0 {
		return fmt.Errorf("min_rom must not be negative")
	}
	if c.HistoryLength < 1 {
		return fmt.Errorf("history_length must be at least 1")
	}
	return nil
}

// classify maps a raw angle to the level it proposes. The same thresholds are
// used for entry and exit; dwell time does the debouncing.
func (c Config) classify(angle float64) Level {
	switch {
	case angle >= c.AngleThresholdDown:
		return LevelDown
	case angle <= c.AngleThresholdUp:
		return LevelUp
	default:
		return LevelTransition
	}
}
