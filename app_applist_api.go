package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"trayhop/internal/applist"
)

const appListQueryTimeout = 2 * time.Second

// AppListPage is one screen of the projected app list.
type AppListPage struct {
	Entries   []applist.Entry `json:"entries"`
	PageIndex int             `json:"pageIndex"`
	PageCount int             `json:"pageCount"`
	Total     int             `json:"total"`
}

// SetAppCatalog replaces the apps known to the frontend. Catalog entries the
// user never launched follow the recently used ones in recency order.
func (a *App) SetAppCatalog(entries []applist.Entry) {
	catalog := make([]applist.Entry, 0, len(entries))
	for _, e := range entries {
		e.Identifier = strings.TrimSpace(e.Identifier)
		if e.Identifier == "" {
			continue
		}
		catalog = append(catalog, e)
	}
	a.catalogMu.Lock()
	a.catalog = catalog
	a.catalogMu.Unlock()
}

// SetLiveIdentifiers replaces the set of currently running apps used by the
// live-only filter.
func (a *App) SetLiveIdentifiers(identifiers []string) {
	a.liveSet.Replace(identifiers)
}

// ListApps projects the app list with the configured filter, sort and slot
// count and returns screen pageIndex of perPage slots.
func (a *App) ListApps(pageIndex, perPage int) (AppListPage, error) {
	if perPage <= 0 {
		return AppListPage{}, errors.New("perPage must be positive")
	}
	entries, err := a.appEntries()
	if err != nil {
		return AppListPage{}, err
	}

	cfg := a.getConfigSnapshot()
	projected := cfg.Projector().Project(entries, cfg.FilterMode(), cfg.SortMode(), cfg.AppList.Slots, a.liveSet.Contains)
	page := applist.Paginate(projected, pageIndex, perPage)
	if page == nil {
		page = []applist.Entry{}
	}
	return AppListPage{
		Entries:   page,
		PageIndex: pageIndex,
		PageCount: applist.PageCount(len(projected), perPage),
		Total:     len(projected),
	}, nil
}

// appEntries merges recently used entries (newest first) with catalog
// entries not yet launched (catalog order).
func (a *App) appEntries() ([]applist.Entry, error) {
	var recent []applist.Entry
	if a.recents != nil {
		ctx, cancel := context.WithTimeout(context.Background(), appListQueryTimeout)
		defer cancel()
		var err error
		recent, err = a.recents.AppEntries(ctx, 0)
		if err != nil {
			return nil, err
		}
	}

	a.catalogMu.RLock()
	catalog := a.catalog
	a.catalogMu.RUnlock()

	seen := make(map[string]struct{}, len(recent))
	out := make([]applist.Entry, 0, len(recent)+len(catalog))
	for _, e := range recent {
		seen[e.Identifier] = struct{}{}
		out = append(out, e)
	}
	for _, e := range catalog {
		if _, dup := seen[e.Identifier]; dup {
			continue
		}
		seen[e.Identifier] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

// RecordLaunch moves entry to the front of the recency order.
func (a *App) RecordLaunch(entry applist.Entry) error {
	if a.recents == nil {
		return errors.New("recents store is unavailable")
	}
	ctx, cancel := context.WithTimeout(context.Background(), appListQueryTimeout)
	defer cancel()
	if err := a.recents.Record(ctx, entry); err != nil {
		slog.Warn("[WARN-recents] record launch failed", "identifier", entry.Identifier, "error", err)
		return err
	}
	a.emitRuntimeEvent("applist:updated", entry.Identifier)
	return nil
}

// ForgetApp removes identifier from the recency history.
func (a *App) ForgetApp(identifier string) error {
	if a.recents == nil {
		return errors.New("recents store is unavailable")
	}
	ctx, cancel := context.WithTimeout(context.Background(), appListQueryTimeout)
	defer cancel()
	if err := a.recents.Remove(ctx, identifier); err != nil {
		return err
	}
	a.emitRuntimeEvent("applist:updated", identifier)
	return nil
}
