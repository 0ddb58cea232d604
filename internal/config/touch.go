package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/multitouch/internal/touch/coords"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/touch.defaults.json"

// TouchConfig is the root configuration of the touch daemon. Every field is
// optional; the Get* accessors supply defaults for anything left unset, so a
// partial file only overrides what it names.
type TouchConfig struct {
	// HTTP
	Listen *string `json:"listen,omitempty"`

	// Digitizer serial link
	SerialPort *string `json:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty"`

	// Reference rectangle of the drawing surface in device pixels
	SurfaceLeft   *float64 `json:"surface_left,omitempty"`
	SurfaceRight  *float64 `json:"surface_right,omitempty"`
	SurfaceTop    *float64 `json:"surface_top,omitempty"`
	SurfaceBottom *float64 `json:"surface_bottom,omitempty"`

	// Platform capability reported before the digitizer announces its own
	MaxTouchPoints *int `json:"max_touch_points,omitempty"`

	// Session recording
	DBPath *string `json:"db_path,omitempty"`
	Record *bool   `json:"record,omitempty"`

	// Debug chart trail length per finger
	TrailLength *int `json:"trail_length,omitempty"`

	Verbose *bool `json:"verbose,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTouchConfig returns a TouchConfig with all fields set to nil.
func EmptyTouchConfig() *TouchConfig {
	return &TouchConfig{}
}

// DefaultTouchConfig returns a config with every field populated with its
// default value.
func DefaultTouchConfig() *TouchConfig {
	return &TouchConfig{
		Listen:         ptrString(":8080"),
		SerialPort:     ptrString("/dev/ttyACM0"),
		BaudRate:       ptrInt(115200),
		SurfaceLeft:    ptrFloat64(0),
		SurfaceRight:   ptrFloat64(480),
		SurfaceTop:     ptrFloat64(0),
		SurfaceBottom:  ptrFloat64(360),
		MaxTouchPoints: ptrInt(10),
		DBPath:         ptrString("touch_sessions.db"),
		Record:         ptrBool(false),
		TrailLength:    ptrInt(64),
		Verbose:        ptrBool(false),
	}
}

// LoadTouchConfig loads a TouchConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTouchConfig(path string) (*TouchConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTouchConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TouchConfig) Validate() error {
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}

	for name, v := range map[string]*float64{
		"surface_left":   c.SurfaceLeft,
		"surface_right":  c.SurfaceRight,
		"surface_top":    c.SurfaceTop,
		"surface_bottom": c.SurfaceBottom,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s must be finite, got %f", name, *v)
		}
	}

	if c.GetSurfaceRight() <= c.GetSurfaceLeft() {
		return fmt.Errorf("surface_right (%g) must be greater than surface_left (%g)", c.GetSurfaceRight(), c.GetSurfaceLeft())
	}
	if c.GetSurfaceBottom() <= c.GetSurfaceTop() {
		return fmt.Errorf("surface_bottom (%g) must be greater than surface_top (%g)", c.GetSurfaceBottom(), c.GetSurfaceTop())
	}

	if c.MaxTouchPoints != nil && *c.MaxTouchPoints < 0 {
		return fmt.Errorf("max_touch_points must be non-negative, got %d", *c.MaxTouchPoints)
	}

	if c.TrailLength != nil && *c.TrailLength < 1 {
		return fmt.Errorf("trail_length must be at least 1, got %d", *c.TrailLength)
	}

	return nil
}

// GetListen returns the HTTP listen address or the default.
func (c *TouchConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetSerialPort returns the digitizer serial device path or the default.
func (c *TouchConfig) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return "/dev/ttyACM0"
	}
	return *c.SerialPort
}

// GetBaudRate returns the serial baud rate or the default.
func (c *TouchConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetSurfaceLeft returns the left edge of the reference rectangle.
func (c *TouchConfig) GetSurfaceLeft() float64 {
	if c.SurfaceLeft == nil {
		return 0
	}
	return *c.SurfaceLeft
}

// GetSurfaceRight returns the right edge of the reference rectangle.
func (c *TouchConfig) GetSurfaceRight() float64 {
	if c.SurfaceRight == nil {
		return 480
	}
	return *c.SurfaceRight
}

// GetSurfaceTop returns the top edge of the reference rectangle.
func (c *TouchConfig) GetSurfaceTop() float64 {
	if c.SurfaceTop == nil {
		return 0
	}
	return *c.SurfaceTop
}

// GetSurfaceBottom returns the bottom edge of the reference rectangle.
func (c *TouchConfig) GetSurfaceBottom() float64 {
	if c.SurfaceBottom == nil {
		return 360
	}
	return *c.SurfaceBottom
}

// GetMaxTouchPoints returns the max_touch_points value or the default.
func (c *TouchConfig) GetMaxTouchPoints() int {
	if c.MaxTouchPoints == nil {
		return 10
	}
	return *c.MaxTouchPoints
}

// GetDBPath returns the session database path or the default. An explicit
// empty path disables the session store.
func (c *TouchConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "touch_sessions.db"
	}
	return *c.DBPath
}

// GetRecord returns the record value or the default.
func (c *TouchConfig) GetRecord() bool {
	if c.Record == nil {
		return false // default: recording disabled
	}
	return *c.Record
}

// GetTrailLength returns the trail_length value or the default.
func (c *TouchConfig) GetTrailLength() int {
	if c.TrailLength == nil {
		return 64
	}
	return *c.TrailLength
}

// GetVerbose returns the verbose value or the default.
func (c *TouchConfig) GetVerbose() bool {
	if c.Verbose == nil {
		return false
	}
	return *c.Verbose
}

// GetSurfaceBounds returns the configured reference rectangle.
func (c *TouchConfig) GetSurfaceBounds() coords.Rect {
	return coords.Rect{
		Left:   c.GetSurfaceLeft(),
		Right:  c.GetSurfaceRight(),
		Top:    c.GetSurfaceTop(),
		Bottom: c.GetSurfaceBottom(),
	}
}
