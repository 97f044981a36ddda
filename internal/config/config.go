package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Library  LibraryConfig  `yaml:"library"`
	Database DatabaseConfig `yaml:"database"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LibraryConfig struct {
	Path       string        `yaml:"path"`
	ProbeBatch int           `yaml:"probe_batch"`
	ProbeDelay time.Duration `yaml:"probe_delay"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SessionsConfig struct {
	Capacity         int           `yaml:"capacity"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	SaveInterval     float64       `yaml:"save_interval"` // seconds of playback
	PictureInPicture bool          `yaml:"picture_in_picture"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         6540,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
		},
		Library: LibraryConfig{
			Path:       "",
			ProbeBatch: 100,
			ProbeDelay: 200 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Path: "data/learnview.db",
		},
		Sessions: SessionsConfig{
			Capacity:         256,
			IdleTimeout:      30 * time.Minute,
			SaveInterval:     5,
			PictureInPicture: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
