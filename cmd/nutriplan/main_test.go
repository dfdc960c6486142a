package main

import (
	"errors"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/nutriplan/internal/config"
	"github.com/verte-zerg/nutriplan/internal/day"
	"github.com/verte-zerg/nutriplan/internal/model"
)

func TestDefaultConfigTemplateIsValidTOML(t *testing.T) {
	var cfg config.FileConfig
	if _, err := toml.Decode(defaultConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template does not decode: %v", err)
	}
	if cfg.Profile.Calories != nil || cfg.Server.Addr != nil {
		t.Fatalf("template values must be commented out: %+v", cfg)
	}
}

func TestParseMicros(t *testing.T) {
	got, err := parseMicros([]string{"vitamin c=45", "Sodium = 300", "vitamin c=5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["vitamin c"] != 50 || got["Sodium"] != 300 {
		t.Fatalf("unexpected micros %v", got)
	}
	for _, bad := range []string{"iron", "=3", "zinc=-1", "zinc=lots"} {
		if _, err := parseMicros([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if got, err := parseMicros(nil); err != nil || got != nil {
		t.Fatalf("expected nil map for no flags")
	}
}

func TestResolveWindow(t *testing.T) {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	windows := []model.MealWindow{
		{ID: "late", Start: base.Add(18 * time.Hour), End: base.Add(19 * time.Hour)},
		{ID: "early", Start: base.Add(8 * time.Hour), End: base.Add(9 * time.Hour)},
	}
	if id, err := resolveWindow(windows, "1"); err != nil || id != "early" {
		t.Fatalf("expected position 1 to be the earliest window, got %q (%v)", id, err)
	}
	if id, err := resolveWindow(windows, "late"); err != nil || id != "late" {
		t.Fatalf("expected lookup by id, got %q (%v)", id, err)
	}
	if _, err := resolveWindow(windows, "3"); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if _, err := resolveWindow(windows, "brunch"); !errors.Is(err, day.ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow, got %v", err)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"today", "plan", "log", "status", "score", "impact", "nutrients", "days", "config", "serve"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected subcommand %q, got %v (%v)", name, cmd, err)
		}
	}
}
