package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sunnyside/kitchen/internal/config"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/util"
)

// writeConfig saves a config pointing the database into a temp dir and returns its path.
func writeConfig(t *testing.T, overrides ...func(*config.Config)) string {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "kitchen.db")
	cfg.Database.BackupIntervalHours = 0
	cfg.Logging.File = ""
	cfg.Logging.Level = config.LogLevelError
	for _, override := range overrides {
		override(cfg)
	}

	path := filepath.Join(dir, "kitchen.toml")
	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()

	out, err := execute(t, cfgPath, args...)
	if err != nil {
		t.Fatalf("%s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("expected output to contain %q, got:\n%s", w, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out := mustExecute(t, writeConfig(t), "version")
	assertContains(t, out, "kitchen version "+Version)
}

func TestKitchenWorkflow(t *testing.T) {
	cfgPath := writeConfig(t)

	out := mustExecute(t, cfgPath, "migrate")
	assertContains(t, out, "001", "schema version 1")

	out = mustExecute(t, cfgPath, "seed")
	assertContains(t, out, "products:  20 created, 0 skipped", "templates: 1 created")

	out = mustExecute(t, cfgPath, "seed")
	assertContains(t, out, "products:  0 created, 20 skipped")

	out = mustExecute(t, cfgPath, "plan", "templates")
	assertContains(t, out, "Standard week")

	t.Run("apply a week by template name", func(t *testing.T) {
		out := mustExecute(t, cfgPath, "plan", "apply", "--template", "standard week", "--start", "2024-01-01", "--week")
		assertContains(t, out, "2024-01-01 to 2024-01-07 for 20 children", "created 7, skipped 0, failed 0")

		out = mustExecute(t, cfgPath, "plan", "apply", "-t", "Standard week", "-s", "2024-01-01", "--days", "7")
		assertContains(t, out, "created 0, skipped 7")
	})

	t.Run("preview without creating", func(t *testing.T) {
		out := mustExecute(t, cfgPath, "plan", "preview", "--template", "Standard week", "--days", "3", "--children", "10")
		assertContains(t, out, "3 days for 10 children", "Milk", "breakfast")
	})

	t.Run("serve and report", func(t *testing.T) {
		out := mustExecute(t, cfgPath, "serve-meal", "--date", "2024-01-01", "--meal", "breakfast", "--children", "10")
		assertContains(t, out, "served breakfast on 2024-01-01 for 10 children", "Oats", "0.5 kg")

		_, err := execute(t, cfgPath, "serve-meal", "--date", "2024-01-01", "--meal", "breakfast", "--children", "10")
		if !errors.Is(err, models.ErrAlreadyServed) {
			t.Errorf("expected ErrAlreadyServed, got %v", err)
		}

		out = mustExecute(t, cfgPath, "report", "day", "--date", "2024-01-01")
		assertContains(t, out, "2024-01-01", "breakfast", "served", "Oats")

		out = mustExecute(t, cfgPath, "report", "period", "--from", "2024-01-01", "--to", "2024-01-07")
		assertContains(t, out, "1 meals served", "Milk")

		out = mustExecute(t, cfgPath, "report", "product", "--product", "Oats", "--from", "2024-01-01", "--to", "2024-01-07")
		assertContains(t, out, "consumed  0.5", "stock now 11.5")
	})

	t.Run("cancel restores stock", func(t *testing.T) {
		out := mustExecute(t, cfgPath, "cancel-meal", "--date", "2024-01-01", "--meal", "breakfast")
		assertContains(t, out, "cancelled breakfast on 2024-01-01, restored 3 products")

		out = mustExecute(t, cfgPath, "report", "product", "-p", "Oats", "--from", "2024-01-01", "--to", "2024-01-07")
		assertContains(t, out, "stock now 12")

		_, err := execute(t, cfgPath, "cancel-meal", "--date", "2024-01-01", "--meal", "breakfast")
		if !errors.Is(err, models.ErrNotServed) {
			t.Errorf("expected ErrNotServed, got %v", err)
		}
	})

	t.Run("dashboard", func(t *testing.T) {
		out := mustExecute(t, cfgPath, "dashboard")
		assertContains(t, out, "Sunnyside Daycare kitchen", "low stock:", "expiring soon:")
	})

	t.Run("backup then doctor", func(t *testing.T) {
		out := mustExecute(t, cfgPath, "backup")
		assertContains(t, out, "backup written to")

		out = mustExecute(t, cfgPath, "doctor")
		assertContains(t, out, "schema", "version 1", "backups   1")
	})
}

func TestPlanApply_Month(t *testing.T) {
	cfgPath := writeConfig(t)
	mustExecute(t, cfgPath, "seed")

	out := mustExecute(t, cfgPath, "plan", "apply", "-t", "Standard week", "-s", "2024-02-20", "--month")
	assertContains(t, out, "2024-02-20 to 2024-02-29", "created 10")

	if _, err := execute(t, cfgPath, "plan", "apply", "-t", "Standard week", "--week", "--month"); err == nil {
		t.Error("expected --week and --month to conflict")
	}
}

func TestServeMeal_Errors(t *testing.T) {
	cfgPath := writeConfig(t)
	mustExecute(t, cfgPath, "seed")

	tests := []struct {
		name    string
		args    []string
		wantErr error
		want    string
	}{
		{
			name: "unknown meal",
			args: []string{"serve-meal", "--date", "2024-01-01", "--meal", "brunch"},
			want: "meal",
		},
		{
			name:    "no menu planned",
			args:    []string{"serve-meal", "--date", "2024-01-01", "--meal", "lunch"},
			wantErr: models.ErrNotFound,
		},
		{
			name: "bad date",
			args: []string{"serve-meal", "--date", "01/01/2024", "--meal", "lunch"},
			want: "YYYY-MM-DD",
		},
		{
			name: "meal flag required",
			args: []string{"serve-meal", "--date", "2024-01-01"},
			want: "meal",
		},
		{
			name:    "unknown template",
			args:    []string{"plan", "apply", "--template", "Holiday week"},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, cfgPath, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestServeMeal_ShortageIsReadable(t *testing.T) {
	cfgPath := writeConfig(t)
	mustExecute(t, cfgPath, "seed")
	mustExecute(t, cfgPath, "plan", "apply", "-t", "Standard week", "-s", "2024-01-01", "--days", "1")

	// Oat porridge needs 0.2 l milk per child; 30 l covers 150
	_, err := execute(t, cfgPath, "serve-meal", "-d", "2024-01-01", "-m", "breakfast", "-n", "200")
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if !strings.Contains(err.Error(), "for 200 children") || !strings.Contains(err.Error(), "Milk") {
		t.Errorf("expected the short product in the message, got %v", err)
	}
}

func TestConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[kitchen]\nmax_period_days = 0\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := execute(t, path, "migrate")
	var loadErr *config.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected a *config.LoadError, got %v", err)
	}
}

func TestParseDay(t *testing.T) {
	clock := util.NewFixedClock(time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC))

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "2024-03-15"},
		{in: "today", want: "2024-03-15"},
		{in: "Tomorrow", want: "2024-03-16"},
		{in: "yesterday", want: "2024-03-14"},
		{in: "2024-02-29", want: "2024-02-29"},
		{in: "2024-13-01", wantErr: true},
		{in: "next week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDay(tt.in, clock)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected an error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDay failed: %v", err)
			}
			if s := got.Format(models.DateLayout); s != tt.want {
				t.Errorf("expected %s, got %s", tt.want, s)
			}
		})
	}
}

func TestParseRange_DefaultsToMonthStart(t *testing.T) {
	clock := util.NewFixedClock(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))

	start, end, err := parseRange("", "today", clock)
	if err != nil {
		t.Fatalf("parseRange failed: %v", err)
	}
	if start.Format(models.DateLayout) != "2024-03-01" || end.Format(models.DateLayout) != "2024-03-15" {
		t.Errorf("unexpected range %s to %s", start, end)
	}
}
