// Package config loads the supervisor's static configuration (§6
// "Configuration"): ingress addresses, the cycle period, logging, and a
// name->subcomponent map per VCU. It is grounded on the teacher's
// viper-backed config.Load, generalized from the capture-agent's
// task/reporter/decoder schema to the rig's VCU/subcomponent schema; the
// core treats each subcomponent entry as opaque aside from its Type
// discriminator, exactly as §6 specifies.
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	logpkg "icc.tech/hil-supervisor/internal/log"
)

// Config is the whole of the supervisor's static configuration.
type Config struct {
	CommandAddr   string               `mapstructure:"command_addr"`
	TelemetryAddr string               `mapstructure:"telemetry_addr"`
	MetricsAddr   string               `mapstructure:"metrics_addr"`
	CyclePeriod   time.Duration        `mapstructure:"cycle_period"`
	Log           logpkg.LoggerConfig  `mapstructure:"log"`
	TelemetryLog  LogFileConfig        `mapstructure:"telemetry_log"`
	TimeSeries    TimeSeriesConfig     `mapstructure:"time_series"`
	VCUs          map[string]VCUConfig `mapstructure:"vcus"`
}

// LogFileConfig mirrors internal/sink/logfile.Config's rotation knobs
// (§6 "Persisted state": the append-only telemetry log, distinct from
// the supervisor's own operational log).
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TimeSeriesConfig enables the optional Kafka-backed time-series sink
// (§1 "when configured, a time-series sink").
type TimeSeriesConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// VCUConfig names one VCU's subcomponents, keyed by local name
// ("power_supply", "sga", "hpa", "serial_line", ...) (§6, §3 "VCU").
type VCUConfig struct {
	Subcomponents map[string]SubcomponentConfig `mapstructure:"subcomponents"`
}

// SubcomponentConfig carries a type discriminator plus whatever
// type-specific connection parameters that type needs. The core never
// interprets Params beyond handing them to the matching Driver's Open
// (§6: "The core treats this as opaque aside from the discriminator").
type SubcomponentConfig struct {
	Type   string                 `mapstructure:"type"`
	Params map[string]interface{} `mapstructure:",remain"`
}

// knownKinds are the Component.Kind tags a subcomponent's Type may name
// (§3 "Component"), excluding "root" and "vcu" which are never
// subcomponent entries themselves.
var knownKinds = map[string]bool{
	"power_supply": true,
	"serial_line":  true,
	"remote_shell": true,
	"vlan":         true,
	"generic":      true,
}

// Load reads path (YAML, JSON or TOML — anything viper's SetConfigFile
// auto-detects by extension) into a Config, applying defaults for any
// field the file omits.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("command_addr", ":9000")
	v.SetDefault("telemetry_addr", ":9001")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("cycle_period", "1s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.appender", "stdout")
	v.SetDefault("log.pattern", "%time [%level] %field%msg\n")
	v.SetDefault("log.time", time.RFC3339)

	v.SetDefault("telemetry_log.path", "/var/log/hil-supervisor/telemetry.log")
	v.SetDefault("telemetry_log.max_size_mb", 100)
	v.SetDefault("telemetry_log.max_backups", 5)
	v.SetDefault("telemetry_log.max_age_days", 30)
	v.SetDefault("telemetry_log.compress", true)

	v.SetDefault("time_series.enabled", false)
}

// Validate rejects a subcomponent naming an unrecognized Type up front,
// rather than letting the tree builder fail opaquely at startup.
func (c *Config) Validate() error {
	for vcuName, vcu := range c.VCUs {
		for subName, sub := range vcu.Subcomponents {
			if !knownKinds[sub.Type] {
				return fmt.Errorf("config: vcus.%s.subcomponents.%s: unknown type %q", vcuName, subName, sub.Type)
			}
		}
	}
	return nil
}

// DecodeParams decodes a SubcomponentConfig's freeform Params into out,
// using the same weakly-typed mapstructure approach
// internal/command.DecodeOptions uses for inbound command options.
func DecodeParams(params map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}
