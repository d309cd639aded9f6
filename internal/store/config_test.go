package store

import (
	"context"
	"testing"

	"github.com/rcliao/bot-chat/internal/model"
)

func TestConfigDefaults(t *testing.T) {
	e := newTestEnv(t)
	c := e.stores.Config.Get()
	if c.Avatar != "1f603" || c.FontSize != 14 || c.Theme != model.ThemeDark {
		t.Errorf("unexpected defaults %+v", c)
	}
	if !c.EnableAutoGenerateTitle || c.SidebarWidth != 300 {
		t.Errorf("unexpected defaults %+v", c)
	}
	if len(c.Models) != len(model.ModelNames) {
		t.Errorf("expected %d models, got %d", len(model.ModelNames), len(c.Models))
	}
}

func TestConfigUpdate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	err := e.stores.Config.Update(ctx, func(c *model.Config) {
		c.FontSize = 18
		c.SidebarWidth = 240
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	c := e.stores.Config.Get()
	if c.FontSize != 18 || c.SidebarWidth != 240 {
		t.Errorf("update not applied: %+v", c)
	}
	if c.Avatar != "1f603" {
		t.Error("untouched fields should keep their values")
	}

	reloaded := e.reopen(t).Config.Get()
	if reloaded.FontSize != 18 || reloaded.SidebarWidth != 240 {
		t.Errorf("update not persisted: %+v", reloaded)
	}
}

func TestConfigGetReturnsCopy(t *testing.T) {
	e := newTestEnv(t)
	c := e.stores.Config.Get()
	c.Models[0].Available = false
	if !e.stores.Config.Get().Models[0].Available {
		t.Error("Get must not expose internal state")
	}
}

func TestConfigReset(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.stores.Config.Update(ctx, func(c *model.Config) {
		c.FontSize = 30
		c.Theme = model.ThemeLight
	})

	if err := e.stores.Config.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	c := e.stores.Config.Get()
	if c.FontSize != 14 || c.Theme != model.ThemeDark {
		t.Errorf("expected defaults, got %+v", c)
	}
}

func TestToggleTheme(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.stores.Config.ToggleTheme(ctx)
	if got := e.stores.Config.Get().Theme; got != model.ThemeLight {
		t.Errorf("expected light, got %q", got)
	}
	e.stores.Config.ToggleTheme(ctx)
	if got := e.stores.Config.Get().Theme; got != model.ThemeDark {
		t.Errorf("expected dark, got %q", got)
	}
}

func TestConfigPartialSnapshot(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	blob := `{"state":{"fontSize":20,"theme":"light"},"version":0}`
	if err := e.mem.SetItem(ctx, ConfigKey, blob); err != nil {
		t.Fatal(err)
	}

	c := e.reopen(t).Config.Get()
	if c.FontSize != 20 || c.Theme != model.ThemeLight {
		t.Errorf("snapshot fields not loaded: %+v", c)
	}
	if c.Avatar != "1f603" || c.SidebarWidth != 300 || !c.EnableAutoGenerateTitle {
		t.Errorf("missing fields should keep defaults: %+v", c)
	}
}

func TestConfigSubscribe(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	calls := 0
	unsubscribe := e.stores.Config.Subscribe(func() { calls++ })

	e.stores.Config.ToggleTheme(ctx)
	e.stores.Config.Reset(ctx)
	unsubscribe()
	e.stores.Config.ToggleTheme(ctx)
	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}
}
