// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/scoring"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Profile ProfileConfig `toml:"profile"`
	Scoring ScoringConfig `toml:"scoring"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
}

// ProfileConfig maps profile settings.
type ProfileConfig struct {
	Calories *int    `toml:"calories"`
	Protein  *int    `toml:"protein"`
	Carbs    *int    `toml:"carbs"`
	Fat      *int    `toml:"fat"`
	Wake     *string `toml:"wake"`
	Sleep    *string `toml:"sleep"`
	Sex      *string `toml:"sex"`
	Goal     *string `toml:"goal"`
	Windows  *int    `toml:"windows"`
}

// ScoringConfig maps scoring settings.
type ScoringConfig struct {
	Weights map[string]WeightsConfig `toml:"weights"`
}

// WeightsConfig overrides the field weights of one purpose. Missing fields
// keep the built-in value for that purpose.
type WeightsConfig struct {
	Calories *int `toml:"calories"`
	Protein  *int `toml:"protein"`
	Carbs    *int `toml:"carbs"`
	Fat      *int `toml:"fat"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// BuildProfile applies the profile section over the built-in defaults.
func (c FileConfig) BuildProfile() (model.Profile, error) {
	p := model.Profile{
		Targets:       model.DefaultTargets,
		Wake:          model.DefaultWake,
		Sleep:         model.DefaultSleep,
		WindowsPerDay: model.DefaultWindowsPerDay,
	}
	pc := c.Profile
	setInt(&p.Targets.Calories, pc.Calories)
	setInt(&p.Targets.Protein, pc.Protein)
	setInt(&p.Targets.Carbs, pc.Carbs)
	setInt(&p.Targets.Fat, pc.Fat)
	setInt(&p.WindowsPerDay, pc.Windows)
	if pc.Wake != nil {
		t, err := model.ParseTimeOfDay(*pc.Wake)
		if err != nil {
			return model.Profile{}, fmt.Errorf("failed to parse profile.wake: %w", err)
		}
		p.Wake = t
	}
	if pc.Sleep != nil {
		t, err := model.ParseTimeOfDay(*pc.Sleep)
		if err != nil {
			return model.Profile{}, fmt.Errorf("failed to parse profile.sleep: %w", err)
		}
		p.Sleep = t
	}
	if pc.Sex != nil {
		switch sex := model.Sex(strings.ToLower(*pc.Sex)); sex {
		case model.SexMale, model.SexFemale, model.SexUnspecified:
			p.Sex = sex
		default:
			return model.Profile{}, fmt.Errorf("profile.sex must be male or female, got %q", *pc.Sex)
		}
	}
	if pc.Goal != nil {
		p.Goal = *pc.Goal
	}
	return p, nil
}

// BuildWeights merges the [scoring.weights] overrides into the default table
// and validates the result.
func (c FileConfig) BuildWeights() (scoring.WeightTable, error) {
	table := scoring.DefaultWeights()
	for name, wc := range c.Scoring.Weights {
		p := model.Purpose(name)
		w := table.For(p)
		setInt(&w.Calories, wc.Calories)
		setInt(&w.Protein, wc.Protein)
		setInt(&w.Carbs, wc.Carbs)
		setInt(&w.Fat, wc.Fat)
		table[p] = w
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring weights: %w", err)
	}
	return table, nil
}

// LogLevel returns the configured slog level, info by default.
func (c FileConfig) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.Log.Level == nil {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(*c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("failed to parse log.level: %w", err)
	}
	return lvl, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
