// Package config loads server and simulation settings with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"infinite-flight/internal/flight"
	"infinite-flight/internal/sim"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes environment overrides, e.g. FLIGHTSIM_SERVER_ADDR.
const EnvPrefix = "FLIGHTSIM"

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Sim      SimConfig       `mapstructure:"sim"`
	Airframe flight.Geometry `mapstructure:"airframe"`
	Stream   StreamConfig    `mapstructure:"stream"`
	Store    StoreConfig     `mapstructure:"store"`
	Log      LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SimConfig struct {
	TickHz      float64 `mapstructure:"tick_hz"`
	Seed        uint64  `mapstructure:"seed"`
	EnginePower float64 `mapstructure:"engine_power"`
	Wireframe   bool    `mapstructure:"wireframe"`
}

// StreamConfig controls the websocket frame stream.
type StreamConfig struct {
	// Encoding is "cbor" or "json".
	Encoding   string  `mapstructure:"encoding"`
	InputRate  float64 `mapstructure:"input_rate"`
	InputBurst int     `mapstructure:"input_burst"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("sim.tick_hz", 60)
	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.engine_power", flight.DefaultEnginePower)
	v.SetDefault("sim.wireframe", false)

	g := flight.DefaultGeometry()
	v.SetDefault("airframe.wing_z", g.WingZ)
	v.SetDefault("airframe.wing_scale", g.WingScale)
	v.SetDefault("airframe.tail_z", g.TailZ)
	v.SetDefault("airframe.motor_z", g.MotorZ)
	v.SetDefault("airframe.cone_z", g.ConeZ)

	v.SetDefault("stream.encoding", "cbor")
	v.SetDefault("stream.input_rate", 120)
	v.SetDefault("stream.input_burst", 30)

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", "flights.db")

	v.SetDefault("log.level", "info")
}

// Load reads the optional config file at path, applies environment overrides
// and validates the result. An empty path uses defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every bounded setting.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Server.Addr == "" {
		bad("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		bad("server.shutdown_timeout must be positive")
	}
	if c.Sim.TickHz <= 0 {
		bad("sim.tick_hz must be positive, got %v", c.Sim.TickHz)
	}
	if c.Sim.EnginePower < flight.MinEnginePower || c.Sim.EnginePower > flight.MaxEnginePower {
		bad("sim.engine_power %v outside [%v, %v]", c.Sim.EnginePower, flight.MinEnginePower, flight.MaxEnginePower)
	}
	if c.Airframe.WingZ < sim.MinWingZ || c.Airframe.WingZ > sim.MaxWingZ {
		bad("airframe.wing_z %v outside [%v, %v]", c.Airframe.WingZ, sim.MinWingZ, sim.MaxWingZ)
	}
	if c.Airframe.WingScale < sim.MinWingScale || c.Airframe.WingScale > sim.MaxWingScale {
		bad("airframe.wing_scale %v outside [%v, %v]", c.Airframe.WingScale, sim.MinWingScale, sim.MaxWingScale)
	}
	switch c.Stream.Encoding {
	case "cbor", "json":
	default:
		bad("stream.encoding must be cbor or json, got %q", c.Stream.Encoding)
	}
	if c.Stream.InputRate <= 0 || c.Stream.InputBurst <= 0 {
		bad("stream.input_rate and stream.input_burst must be positive")
	}
	if c.Store.Enabled && c.Store.Path == "" {
		bad("store.path is required when the store is enabled")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	return errors.Join(errs...)
}

// SimSettings returns the initial runtime settings for the simulation.
func (c Config) SimSettings() sim.Settings {
	return sim.Settings{
		Geometry:    c.Airframe,
		EnginePower: c.Sim.EnginePower,
		Wireframe:   c.Sim.Wireframe,
	}
}

// LogLevel returns the parsed log level. Validate has already checked it.
func (c Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
