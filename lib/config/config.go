/*package config reads gadget_reader's configuration files. Config files are
INI-like and are split into [gadget], [export], and [stats] sections. Any
variable that isn't set keeps its default value.
*/
package config

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/gcfg.v1"
)

// Config contains every configuration variable.
type Config struct {
	Gadget struct {
		// Threads is the number of threads Go runs on. -1 means every core.
		Threads int
		// Workers is the number of files read at once. It is I/O
		// concurrency, so it may be larger than Threads. -1 means one per
		// core.
		Workers int
		CheckFooters bool
		LogLevel string
	}
	Export struct {
		ZstdLevel int
	}
	Stats struct {
		// Softening is the force softening scale used when computing
		// potentials, in the same units as the box.
		Softening float64
		// MaxPotentialParticles is the largest number of particles the
		// potential is computed for. Larger snapshots are subsampled. 0
		// turns off potential calculations.
		MaxPotentialParticles int
	}
}

// Default returns a Config with every variable set to its default value.
func Default() *Config {
	cfg := &Config{ }
	cfg.Gadget.Threads = -1
	cfg.Gadget.Workers = 1
	cfg.Gadget.CheckFooters = false
	cfg.Gadget.LogLevel = "info"
	cfg.Export.ZstdLevel = 3
	cfg.Stats.Softening = 1e-3
	cfg.Stats.MaxPotentialParticles = 100000
	return cfg
}

// Read reads the config file fileName on top of the default values.
func Read(fileName string) (*Config, error) {
	cfg := Default()
	err := gcfg.ReadFileInto(cfg, fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse the config file %s",
			fileName)
	}
	return cfg, cfg.Validate()
}

// Parse is the same as Read, but reads the config from a string.
func Parse(text string) (*Config, error) {
	cfg := Default()
	err := gcfg.ReadStringInto(cfg, text)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse config")
	}
	return cfg, cfg.Validate()
}

// Validate returns an error if any variable has a value that can't be used.
func (cfg *Config) Validate() error {
	if cfg.Gadget.Threads == 0 || cfg.Gadget.Threads < -1 {
		return errors.Errorf("Threads was set to %d, but it must be positive " +
			"or -1.", cfg.Gadget.Threads)
	}
	if cfg.Gadget.Workers == 0 || cfg.Gadget.Workers < -1 {
		return errors.Errorf("Workers was set to %d, but it must be positive " +
			"or -1.", cfg.Gadget.Workers)
	}
	if _, err := logrus.ParseLevel(cfg.Gadget.LogLevel); err != nil {
		return errors.Errorf("LogLevel was set to '%s', which isn't a " +
			"recognized level. Try 'debug', 'info', 'warn', or 'error'.",
			cfg.Gadget.LogLevel)
	}
	if cfg.Export.ZstdLevel < 1 || cfg.Export.ZstdLevel > 22 {
		return errors.Errorf("ZstdLevel was set to %d, but zstd levels run " +
			"from 1 to 22.", cfg.Export.ZstdLevel)
	}
	if cfg.Stats.Softening <= 0 {
		return errors.Errorf("Softening was set to %g, but it must be " +
			"positive.", cfg.Stats.Softening)
	}
	if cfg.Stats.MaxPotentialParticles < 0 {
		return errors.Errorf("MaxPotentialParticles was set to %d, but it " +
			"can't be negative.", cfg.Stats.MaxPotentialParticles)
	}
	return nil
}

// Level returns the logrus level named by LogLevel. Call Validate first.
func (cfg *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(cfg.Gadget.LogLevel)
	if err != nil { return logrus.InfoLevel }
	return level
}

// NumWorkers returns the number of files to read at once, with -1 resolved
// to the number of cores. Call Validate first.
func (cfg *Config) NumWorkers() int {
	if cfg.Gadget.Workers == -1 { return runtime.NumCPU() }
	return cfg.Gadget.Workers
}

// Example returns an example config file which sets every variable to its
// default value.
func Example() string {
	return `# gadget_reader config file. Every variable is optional.

[gadget]
# Number of threads used. -1 uses every core.
Threads = -1
# Number of files read at once. This may be larger than Threads, since most
# of the time is spent waiting on the disk. -1 uses one per core.
Workers = 1
# Check that the trailing length of each block matches its leading length.
CheckFooters = false
# One of debug, info, warn, or error.
LogLevel = info

[export]
# zstd compression level used by the export command, from 1 to 22.
ZstdLevel = 3

[stats]
# Force softening used for potentials, in box units.
Softening = 0.001
# Snapshots with more particles than this are subsampled before potentials
# are computed. 0 turns potentials off.
MaxPotentialParticles = 100000
`
}
