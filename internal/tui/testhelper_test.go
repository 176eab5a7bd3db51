package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sunnyside/kitchen/internal/config"
	"github.com/sunnyside/kitchen/internal/database/seed"
	"github.com/sunnyside/kitchen/internal/kitchen"
	"github.com/sunnyside/kitchen/internal/testutil"
	"github.com/sunnyside/kitchen/internal/util"
)

// newTestServices builds services over a migrated in-memory database holding
// the default catalog and a planned template week starting Monday 2024-01-01.
// The clock is fixed at 08:00 that Monday.
func newTestServices(t *testing.T) (*kitchen.Services, *config.Config) {
	t.Helper()

	db := testutil.NewMigratedDB(t)
	ctx := context.Background()
	monday := testutil.Monday()

	cfg := config.Default()
	svc := kitchen.New(db.DB, cfg, kitchen.Deps{Clock: util.NewFixedClock(monday.Add(8 * time.Hour))})

	catalog, err := seed.Default()
	if err != nil {
		t.Fatalf("loading default catalog: %v", err)
	}
	if _, err := svc.Importer().Import(ctx, catalog); err != nil {
		t.Fatalf("importing default catalog: %v", err)
	}

	templates, err := svc.Planning.ListTemplates(ctx, true)
	if err != nil || len(templates) == 0 {
		t.Fatalf("expected a seeded template, got %v (%v)", templates, err)
	}
	if _, err := svc.Planning.ApplyToWeek(ctx, templates[0].ID, monday, 10); err != nil {
		t.Fatalf("applying template week: %v", err)
	}

	return svc, cfg
}

// newTestApp creates an App sized 120x40 with the menu and dashboard loaded.
func newTestApp(t *testing.T) *App {
	t.Helper()

	svc, cfg := newTestServices(t)
	app := New(context.Background(), svc, cfg)

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	drain(t, app, tea.Batch(app.loadDashboard(), app.menuView.Load(app.ctx)))

	return app
}

// drain runs cmd and feeds every resulting message back through Update,
// following batches and follow-up commands.
func drain(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()

	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("command chain did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, follow := app.Update(msg)
			queue = append(queue, follow)
		}
	}
}

// press sends a key through Update and drains what it triggers.
func press(t *testing.T, app *App, msg tea.KeyMsg) {
	t.Helper()
	_, cmd := app.Update(msg)
	drain(t, app, cmd)
}

// keyMsg creates a tea.KeyMsg for a regular character key.
func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// specialKeyMsg creates a tea.KeyMsg for a special key type.
func specialKeyMsg(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}
