package relayserver

import (
	"sync"

	"github.com/routeops/traefik-route-relay/internal/config"
	"github.com/routeops/traefik-route-relay/internal/relay"
	"github.com/routeops/traefik-route-relay/pkg/ingress"
	"github.com/routeops/traefik-route-relay/pkg/routecfg"
	"github.com/routeops/traefik-route-relay/pkg/traefik"
)

// state holds the current input snapshot (route template + unit requests)
// and the result of its last evaluation. Every mutation re-runs the whole
// pipeline; nothing is cached across snapshots.
type state struct {
	mu sync.Mutex

	tplPath     string
	tpl         routecfg.Template
	tplLoadErr  error
	entryPoints []string
	store       *ingress.Store

	last    relay.Result
	lastErr error // blocking template-level error, nil when routable
}

// putOutcome reports what a unit registration produced. TemplateErr and
// Skipped are not failures of the registration itself: the request is stored
// and will be routed once the template (or the unit's render) is fixed.
type putOutcome struct {
	URL         string
	Skipped     *relay.SkippedUnit
	TemplateErr error
}

func newState(cfg *config.Config, store *ingress.Store) *state {
	st := &state{
		tplPath:     cfg.Route.File,
		entryPoints: cfg.Route.EntryPoints,
		store:       store,
	}
	st.mu.Lock()
	st.reloadTemplateLocked()
	st.mu.Unlock()
	return st
}

func (st *state) reloadTemplateLocked() {
	st.tpl, st.tplLoadErr = routecfg.Load(st.tplPath)
	st.evaluateLocked()
}

func (st *state) evaluateLocked() {
	if st.tplLoadErr != nil {
		st.last, st.lastErr = relay.Result{}, st.tplLoadErr
		return
	}
	st.last, st.lastErr = relay.Evaluate(st.tpl, st.store.List(), st.entryPoints...)
}

// ReloadTemplate re-reads the template file and re-evaluates. The returned
// error is the blocking condition, if any.
func (st *state) ReloadTemplate() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.reloadTemplateLocked()
	return st.lastErr
}

// PutUnit stores the (already validated) request and re-evaluates. The error
// return is a persistence failure only.
func (st *state) PutUnit(r ingress.UnitRequest) (putOutcome, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.store.Put(r); err != nil {
		return putOutcome{}, err
	}
	st.evaluateLocked()
	if st.lastErr != nil {
		return putOutcome{TemplateErr: st.lastErr}, nil
	}
	for i := range st.last.Skipped {
		if st.last.Skipped[i].Unit == r.Unit {
			return putOutcome{Skipped: &st.last.Skipped[i]}, nil
		}
	}
	return putOutcome{URL: st.last.URLs[r.Unit]}, nil
}

// DeleteUnit removes a unit's request and re-evaluates.
func (st *state) DeleteUnit(unit string) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ok, err := st.store.Delete(unit)
	if err != nil {
		return ok, err
	}
	if ok {
		st.evaluateLocked()
	}
	return ok, nil
}

// Document returns the merged dynamic configuration, or the blocking error.
func (st *state) Document() (traefik.Document, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.lastErr != nil {
		return traefik.Document{}, st.lastErr
	}
	return st.last.Document, nil
}

// Snapshot returns the stored units plus the last evaluation outcome.
func (st *state) Snapshot() ([]ingress.UnitRequest, relay.Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.store.List(), st.last, st.lastErr
}

// Template returns the current template and its blocking error, if any.
func (st *state) Template() (routecfg.Template, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tpl, st.lastErr
}
