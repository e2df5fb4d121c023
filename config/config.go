// Package config loads the server configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gotify/configor"
	"github.com/pkg/errors"
)

// DefaultFile is read when no path is given and the file exists.
const DefaultFile = "config.yml"

type Configuration struct {
	App struct {
		ListenAddr     string `default:"" env:"APP_HOST"`
		Port           int    `default:"8080" env:"APP_PORT"`
		AllowedOrigins string `default:"*" env:"APP_ALLOWED_ORIGINS"` // comma separated
	}
	Database struct {
		Path string `default:"timesheets.db" env:"DB_PATH"`
	}
	Scheduler struct {
		Enabled  *bool  `default:"true" env:"SCHEDULER_ENABLED"`
		Interval string `default:"1h" env:"SCHEDULER_INTERVAL"`
	}
	Access struct {
		RestrictSupervisorsToSites *bool `default:"true" env:"ACCESS_RESTRICT_SUPERVISORS"`
	}
	Log struct {
		Level string `default:"info" env:"LOG_LEVEL"`
	}
	Seed struct {
		// Presets loads the built-in pay formulas into an empty database.
		Presets *bool `default:"true" env:"SEED_PRESETS"`
	}
}

// Load reads path (or DefaultFile when path is empty) and applies defaults
// and environment overrides. A missing default file is not an error.
func Load(path string) (*Configuration, error) {
	var files []string
	switch {
	case path != "":
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		files = append(files, path)
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			files = append(files, DefaultFile)
		}
	}

	conf := new(Configuration)
	if err := configor.New(&configor.Config{}).Load(conf, files...); err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	if _, err := conf.SchedulerInterval(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Addr is the listen address of the HTTP server.
func (c *Configuration) Addr() string {
	return c.App.ListenAddr + ":" + strconv.Itoa(c.App.Port)
}

// Origins splits the allowed CORS origins.
func (c *Configuration) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.App.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Configuration) SchedulerInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scheduler.Interval)
	if err != nil {
		return 0, errors.Wrapf(err, "scheduler interval %q", c.Scheduler.Interval)
	}
	if d <= 0 {
		return 0, errors.Errorf("scheduler interval must be positive, got %s", d)
	}
	return d, nil
}

func (c *Configuration) SchedulerEnabled() bool { return isTrue(c.Scheduler.Enabled) }

func (c *Configuration) RestrictSupervisors() bool { return isTrue(c.Access.RestrictSupervisorsToSites) }

func (c *Configuration) SeedPresets() bool { return isTrue(c.Seed.Presets) }

func isTrue(b *bool) bool { return b != nil && *b }
