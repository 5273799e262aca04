// Package relay holds the evaluation pipeline: template + unit requests in,
// merged traefik document and per-unit URLs out.
package relay

import (
	"fmt"
	"sort"

	"github.com/routeops/traefik-route-relay/pkg/ingress"
	"github.com/routeops/traefik-route-relay/pkg/routecfg"
	"github.com/routeops/traefik-route-relay/pkg/traefik"
)

// Result is the output of one evaluation.
type Result struct {
	Document traefik.Document
	// URLs maps each successfully rendered unit to its published root URL.
	URLs map[string]string
	// Skipped lists units whose render failed; their fragments are excluded
	// but the rest of the batch is kept.
	Skipped []SkippedUnit
}

// SkippedUnit records why a unit received no routing in this evaluation.
type SkippedUnit struct {
	Unit   string `json:"unit" yaml:"unit"`
	Reason string `json:"reason" yaml:"reason"`

	Err error `json:"-" yaml:"-"`
}

// Evaluate runs the whole pipeline for one input snapshot: validate the
// template, render every unit, build fragments, merge. It is deterministic
// and rebuilds the document from scratch; re-running on the same snapshot
// yields an identical result.
//
// A template-level validation failure blocks the whole evaluation. A failure
// rendering one unit only skips that unit.
func Evaluate(tpl routecfg.Template, units []ingress.UnitRequest, entryPoints ...string) (Result, error) {
	if err := tpl.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid route template: %w", err)
	}

	sorted := make([]ingress.UnitRequest, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Unit < sorted[j].Unit })

	res := Result{URLs: make(map[string]string, len(sorted))}
	var configs []traefik.UnitConfig
	for _, u := range sorted {
		if err := u.Validate(); err != nil {
			res.Skipped = append(res.Skipped, SkippedUnit{Unit: u.Unit, Reason: err.Error(), Err: err})
			continue
		}
		rc, err := tpl.Render(routecfg.UnitContext{
			Model:    u.Model,
			UnitName: u.NormalizedUnit(),
			AppName:  u.App(),
		})
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedUnit{Unit: u.Unit, Reason: err.Error(), Err: err})
			continue
		}
		configs = append(configs, traefik.BuildUnitConfig(rc, entryPoints...))
		res.URLs[u.Unit] = rc.RootURL
	}

	res.Document = traefik.Merge(configs)
	return res, nil
}
