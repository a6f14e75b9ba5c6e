package main

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"trayhop/internal/applist"
	"trayhop/internal/config"
	"trayhop/internal/recents"
)

func newAppListTestApp(t *testing.T, cfg config.Config) (*App, *eventRecorder) {
	t.Helper()
	events, _, _ := stubRuntime(t)
	app := NewApp()
	app.setRuntimeContext(context.Background())
	app.setConfigSnapshot(cfg)

	store, err := recents.Open(filepath.Join(t.TempDir(), "recents.sqlite"))
	if err != nil {
		t.Fatalf("recents.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	app.recents = store
	return app, events
}

func identifiersOf(entries []applist.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Identifier
	}
	return out
}

func launch(t *testing.T, app *App, entries ...applist.Entry) {
	t.Helper()
	for _, e := range entries {
		if err := app.RecordLaunch(e); err != nil {
			t.Fatalf("RecordLaunch(%s) error = %v", e.Identifier, err)
		}
		// Distinct timestamps keep recency order deterministic.
		time.Sleep(3 * time.Millisecond)
	}
}

func TestListAppsMergesRecentsAndCatalog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AppList.Slots = 6
	app, events := newAppListTestApp(t, cfg)

	app.SetAppCatalog([]applist.Entry{
		{DisplayName: "Calendar", Identifier: "cal"},
		{DisplayName: "Mail", Identifier: "mail"},
		{DisplayName: "Blank", Identifier: "  "},
		{DisplayName: "Notes", Identifier: "notes"},
	})
	launch(t, app,
		applist.Entry{DisplayName: "Mail", Identifier: "mail"},
		applist.Entry{DisplayName: "Terminal", Identifier: "term"},
	)
	if events.count("applist:updated") != 2 {
		t.Fatalf("applist:updated events = %d, want 2", events.count("applist:updated"))
	}

	page, err := app.ListApps(0, 4)
	if err != nil {
		t.Fatalf("ListApps() error = %v", err)
	}
	if want := []string{"term", "mail", "cal", "notes"}; !slices.Equal(identifiersOf(page.Entries), want) {
		t.Fatalf("page 0 = %v, want %v", identifiersOf(page.Entries), want)
	}
	if page.Total != 6 || page.PageCount != 2 {
		t.Fatalf("total/pages = %d/%d, want 6/2", page.Total, page.PageCount)
	}

	page, err = app.ListApps(1, 4)
	if err != nil {
		t.Fatalf("ListApps() error = %v", err)
	}
	if len(page.Entries) != 2 || !page.Entries[0].IsPlaceholder() || !page.Entries[1].IsPlaceholder() {
		t.Fatalf("page 1 = %+v, want two placeholders", page.Entries)
	}

	page, err = app.ListApps(5, 4)
	if err != nil {
		t.Fatalf("ListApps() error = %v", err)
	}
	if page.Entries == nil || len(page.Entries) != 0 {
		t.Fatalf("out-of-range page = %#v, want empty non-nil", page.Entries)
	}
}

func TestListAppsAppliesFilterAndSort(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AppList.Filter = "live-only"
	cfg.AppList.Sort = "name-asc"
	cfg.AppList.Slots = 1
	app, _ := newAppListTestApp(t, cfg)

	app.SetAppCatalog([]applist.Entry{
		{DisplayName: "zebra", Identifier: "z"},
		{DisplayName: "Apple", Identifier: "a"},
		{DisplayName: "mango", Identifier: "m"},
	})
	app.SetLiveIdentifiers([]string{"z", "a"})

	page, err := app.ListApps(0, 10)
	if err != nil {
		t.Fatalf("ListApps() error = %v", err)
	}
	if want := []string{"a", "z"}; !slices.Equal(identifiersOf(page.Entries), want) {
		t.Fatalf("entries = %v, want %v", identifiersOf(page.Entries), want)
	}
}

func TestListAppsRejectsBadPageSize(t *testing.T) {
	app, _ := newAppListTestApp(t, config.DefaultConfig())
	if _, err := app.ListApps(0, 0); err == nil {
		t.Fatal("ListApps(perPage=0) expected error")
	}
}

func TestForgetAppDropsFromRecency(t *testing.T) {
	app, _ := newAppListTestApp(t, config.DefaultConfig())
	launch(t, app,
		applist.Entry{DisplayName: "Mail", Identifier: "mail"},
		applist.Entry{DisplayName: "Terminal", Identifier: "term"},
	)
	if err := app.ForgetApp("term"); err != nil {
		t.Fatalf("ForgetApp() error = %v", err)
	}
	entries, err := app.appEntries()
	if err != nil {
		t.Fatalf("appEntries() error = %v", err)
	}
	if want := []string{"mail"}; !slices.Equal(identifiersOf(entries), want) {
		t.Fatalf("entries = %v, want %v", identifiersOf(entries), want)
	}
}

func TestRecentsUnavailable(t *testing.T) {
	stubRuntime(t)
	app := NewApp()
	app.setConfigSnapshot(config.DefaultConfig())

	if err := app.RecordLaunch(applist.Entry{Identifier: "x"}); err == nil {
		t.Fatal("RecordLaunch() expected error without a store")
	}
	if err := app.ForgetApp("x"); err == nil {
		t.Fatal("ForgetApp() expected error without a store")
	}
	app.SetAppCatalog([]applist.Entry{{DisplayName: "Mail", Identifier: "mail"}})
	page, err := app.ListApps(0, 30)
	if err != nil {
		t.Fatalf("ListApps() error = %v", err)
	}
	if page.Total != config.DefaultSlots || page.Entries[0].Identifier != "mail" {
		t.Fatalf("page = %+v", page)
	}
}
