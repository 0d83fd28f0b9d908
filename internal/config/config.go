// Package config loads the panel settings from defaults, an optional YAML
// file and GLIDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/airheads/glider-panel/internal/netboot"
)

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Serial  SerialConfig  `mapstructure:"serial" yaml:"serial"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Queue    int           `mapstructure:"queue" yaml:"queue"`
}

// NetworkConfig selects access point or station mode. Credentials for a
// station network belong in the config file or environment, never in git.
type NetworkConfig struct {
	Mode     string        `mapstructure:"mode" yaml:"mode"`
	SSID     string        `mapstructure:"ssid" yaml:"ssid"`
	Password string        `mapstructure:"password" yaml:"password"`
	LocalIP  string        `mapstructure:"local_ip" yaml:"local_ip"`
	Gateway  string        `mapstructure:"gateway" yaml:"gateway"`
	Subnet   string        `mapstructure:"subnet" yaml:"subnet"`
	Retry    time.Duration `mapstructure:"retry" yaml:"retry"`
}

// SerialConfig points at the flight controller UART. An empty port disables
// the link.
type SerialConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
	Baud int    `mapstructure:"baud" yaml:"baud"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 80)
	v.SetDefault("poll.interval", "500ms")
	v.SetDefault("poll.queue", 16)
	v.SetDefault("network.mode", "ap")
	v.SetDefault("network.ssid", "AirHeads 507")
	v.SetDefault("network.password", "??what??")
	v.SetDefault("network.local_ip", "192.168.5.1")
	v.SetDefault("network.gateway", "192.168.5.1")
	v.SetDefault("network.subnet", "255.255.255.0")
	v.SetDefault("network.retry", "1s")
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)
}

// Load reads configuration. path may be empty, in which case GLIDER_CONFIG is
// consulted and then glider.yaml is searched in the working directory and
// $HOME/.config/glider-panel. A missing file is not an error.
func Load(path string, overrides map[string]any) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path == "" {
		path = os.Getenv("GLIDER_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("glider")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "glider-panel"))
		}
	}

	v.SetEnvPrefix("GLIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: http.port %d out of range", c.HTTP.Port)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("config: poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.Queue <= 0 {
		return fmt.Errorf("config: poll.queue must be positive, got %d", c.Poll.Queue)
	}
	if _, err := netboot.ParseMode(c.Network.Mode); err != nil {
		return fmt.Errorf("config: network.mode: %w", err)
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		return fmt.Errorf("config: serial.baud must be positive, got %d", c.Serial.Baud)
	}
	return nil
}

// Bootstrap converts the network section for netboot. Call after Validate.
func (c Config) Bootstrap() netboot.Config {
	mode, _ := netboot.ParseMode(c.Network.Mode)
	return netboot.Config{
		Mode:          mode,
		SSID:          c.Network.SSID,
		Password:      c.Network.Password,
		LocalIP:       c.Network.LocalIP,
		Gateway:       c.Network.Gateway,
		Subnet:        c.Network.Subnet,
		Port:          c.HTTP.Port,
		RetryInterval: c.Network.Retry,
	}
}

// fileConfig mirrors Config with durations as strings so the written file
// reads "500ms" rather than nanoseconds.
type fileConfig struct {
	HTTP    HTTPConfig   `yaml:"http"`
	Poll    filePoll     `yaml:"poll"`
	Network fileNetwork  `yaml:"network"`
	Serial  SerialConfig `yaml:"serial"`
}

type filePoll struct {
	Interval string `yaml:"interval"`
	Queue    int    `yaml:"queue"`
}

type fileNetwork struct {
	Mode     string `yaml:"mode"`
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	LocalIP  string `yaml:"local_ip"`
	Gateway  string `yaml:"gateway"`
	Subnet   string `yaml:"subnet"`
	Retry    string `yaml:"retry"`
}

// Write saves c as YAML, with durations spelled the way Load reads them.
func Write(path string, c Config) error {
	out := fileConfig{
		HTTP: c.HTTP,
		Poll: filePoll{
			Interval: c.Poll.Interval.String(),
			Queue:    c.Poll.Queue,
		},
		Network: fileNetwork{
			Mode:     c.Network.Mode,
			SSID:     c.Network.SSID,
			Password: c.Network.Password,
			LocalIP:  c.Network.LocalIP,
			Gateway:  c.Network.Gateway,
			Subnet:   c.Network.Subnet,
			Retry:    c.Network.Retry.String(),
		},
		Serial: c.Serial,
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
