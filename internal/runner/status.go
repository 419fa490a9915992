package runner

import (
	"context"
	"sort"
	"time"

	"github.com/toolsascode/migrun/internal/registry"
)

// StatusItem is one migration as seen from both the registry and the
// bookkeeping table
type StatusItem struct {
	Version    int64
	Name       string
	Applied    bool
	ExecutedAt time.Time
	// Orphaned marks an applied version with no registered migration
	Orphaned bool
}

// Status summarises the bookkeeping table against the registry
type Status struct {
	Current    int64 // highest applied version, valid when HasCurrent
	HasCurrent bool
	Items      []StatusItem
	Applied    int
	Pending    int
}

// Pending returns the migrations RunPending would apply, in order
func (r *Runner) Pending(ctx context.Context, migrations []registry.Migration) ([]registry.Migration, error) {
	records, err := r.tracker.List(ctx, r.db)
	if err != nil {
		return nil, err
	}
	applied := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		applied[rec.Version] = struct{}{}
	}

	sorted := make([]registry.Migration, len(migrations))
	copy(sorted, migrations)
	registry.SortByVersion(sorted)

	var pending []registry.Migration
	for _, m := range sorted {
		if _, ok := applied[m.Version()]; ok {
			continue
		}
		applied[m.Version()] = struct{}{}
		pending = append(pending, m)
	}
	return pending, nil
}

// Status reports every registered and every applied migration
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	records, err := r.tracker.List(ctx, r.db)
	if err != nil {
		return nil, err
	}

	items := make(map[int64]*StatusItem)
	for _, m := range r.registry.ListSorted() {
		items[m.Version()] = &StatusItem{Version: m.Version(), Name: m.Name()}
	}

	status := &Status{}
	for _, rec := range records {
		item, ok := items[rec.Version]
		if !ok {
			item = &StatusItem{Version: rec.Version, Orphaned: true}
			items[rec.Version] = item
		}
		item.Applied = true
		item.ExecutedAt = rec.ExecutedAt
		if !status.HasCurrent || rec.Version > status.Current {
			status.Current = rec.Version
			status.HasCurrent = true
		}
	}

	status.Items = make([]StatusItem, 0, len(items))
	for _, item := range items {
		status.Items = append(status.Items, *item)
		if item.Applied {
			status.Applied++
		} else {
			status.Pending++
		}
	}
	sort.Slice(status.Items, func(i, j int) bool {
		return status.Items[i].Version < status.Items[j].Version
	})

	return status, nil
}
