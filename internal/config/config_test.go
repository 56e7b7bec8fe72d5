package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTmpConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
vcus:
  donatello:
    subcomponents:
      power_supply:
        type: power_supply
        addr: "10.0.0.5:5025"
`))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.CommandAddr)
	assert.Equal(t, ":9001", cfg.TelemetryAddr)
	assert.Equal(t, 1*time.Second, cfg.CyclePeriod)
	assert.Equal(t, "info", cfg.Log.Level)

	vcu, ok := cfg.VCUs["donatello"]
	require.True(t, ok)
	sub, ok := vcu.Subcomponents["power_supply"]
	require.True(t, ok)
	assert.Equal(t, "power_supply", sub.Type)
	assert.Equal(t, "10.0.0.5:5025", sub.Params["addr"])
}

func TestLoadRejectsUnknownSubcomponentType(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
vcus:
  donatello:
    subcomponents:
      mystery:
        type: not_a_real_kind
`))
	require.Error(t, err)
}

func TestLoadOverridesCyclePeriod(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
cycle_period: 2s
vcus: {}
`))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.CyclePeriod)
}

func TestDecodeParamsDecodesPowerSupplyDefaults(t *testing.T) {
	type defaults struct {
		Ch1Volt   float64 `mapstructure:"ch1_volt"`
		Ch1Enable bool    `mapstructure:"ch1_enable"`
	}
	var out defaults
	err := DecodeParams(map[string]interface{}{
		"ch1_volt":   16.0,
		"ch1_enable": true,
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 16.0, out.Ch1Volt)
	assert.True(t, out.Ch1Enable)
}
