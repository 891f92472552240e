package adsync

import (
	"reflect"
	"sort"

	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/models"
)

// ReconcileOptions carries the sync context the plan depends on.
type ReconcileOptions struct {
	Window meta.Window
	// When a breakdown call was unavailable the stored breakdown of a
	// matched record is carried over instead of being cleared.
	AgeGenderAvailable bool
	PlatformAvailable  bool
	// Truncated marks a fetch that stopped at the first page. A stored
	// campaign missing from it may sit on a later page, so ghosts are left
	// alone.
	Truncated bool
}

// Plan is the set of writes that brings the stored campaigns of one client
// in line with a fresh upstream fetch.
type Plan struct {
	// Current holds one record per upstream campaign. Matched records carry
	// the stored id; inserts get theirs when written.
	Current []*models.Campaign

	Inserts []*models.Campaign
	Updates []*models.Campaign
	Zeroed  []*models.Campaign
	Paused  []*models.Campaign

	Unchanged int
}

// Replacements returns every record that must be replaced in the store, in apply
// order.
func (p *Plan) Replacements() []*models.Campaign {
	out := make([]*models.Campaign, 0, len(p.Updates)+len(p.Zeroed)+len(p.Paused))
	out = append(out, p.Updates...)
	out = append(out, p.Zeroed...)
	out = append(out, p.Paused...)
	return out
}

// Reconcile diffs fresh against stored. Only stored records with an
// external id take part; manual records are never touched. fresh must all
// belong to the same client as stored.
func Reconcile(fresh, stored []*models.Campaign, opts ReconcileOptions) *Plan {
	plan := &Plan{}

	// Stored duplicates of one external id resolve to the lowest id.
	sorted := make([]*models.Campaign, 0, len(stored))
	for _, c := range stored {
		if c.IsExternal() {
			sorted = append(sorted, c)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	byExternal := make(map[string]*models.Campaign, len(sorted))
	for _, c := range sorted {
		if _, dup := byExternal[c.ExternalID]; !dup {
			byExternal[c.ExternalID] = c
		}
	}

	// Upstream duplicates: the last occurrence wins, first position kept.
	order := make([]string, 0, len(fresh))
	latest := make(map[string]*models.Campaign, len(fresh))
	for _, c := range fresh {
		if c.ExternalID == "" {
			continue
		}
		if _, seen := latest[c.ExternalID]; !seen {
			order = append(order, c.ExternalID)
		}
		latest[c.ExternalID] = c
	}

	for _, ext := range order {
		next := latest[ext].Clone()
		prev, ok := byExternal[ext]
		if !ok {
			next.ID = ""
			plan.Inserts = append(plan.Inserts, next)
			plan.Current = append(plan.Current, next)
			continue
		}

		next.ID = prev.ID
		next.ClientID = prev.ClientID
		if !opts.AgeGenderAvailable {
			next.AgeBreakdown = prev.Clone().AgeBreakdown
			next.GenderBreakdown = prev.Clone().GenderBreakdown
		}
		if !opts.PlatformAvailable {
			next.PlatformBreakdown = prev.Clone().PlatformBreakdown
		}
		plan.Current = append(plan.Current, next)

		if reflect.DeepEqual(next, prev) {
			plan.Unchanged++
			continue
		}
		plan.Updates = append(plan.Updates, next)
	}

	if opts.Truncated {
		return plan
	}

	for _, prev := range sorted {
		if _, present := latest[prev.ExternalID]; present {
			continue
		}
		if byExternal[prev.ExternalID] != prev {
			continue
		}

		ghost := prev.Clone()
		switch {
		case opts.Window.AllTime():
			if ghost.Status != models.CampaignStatusActive {
				plan.Unchanged++
				continue
			}
			ghost.Status = models.CampaignStatusPaused
			plan.Paused = append(plan.Paused, ghost)
		default:
			if ghost.Spend <= 0 && ghost.Status != models.CampaignStatusActive {
				plan.Unchanged++
				continue
			}
			ghost.ZeroMetrics()
			if reflect.DeepEqual(ghost, prev) {
				plan.Unchanged++
				continue
			}
			plan.Zeroed = append(plan.Zeroed, ghost)
		}
	}

	return plan
}
