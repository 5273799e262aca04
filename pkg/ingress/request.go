// Package ingress is the parse-and-validate boundary for per-unit ingress
// requests, plus their file-backed store.
package ingress

import (
	"fmt"
	"strings"
)

// UnitRequest is one unit's ingress request as submitted by the requirer.
// Host and Port are passed through to operators untouched; the relay routes
// on Unit and Model only.
type UnitRequest struct {
	Unit  string `yaml:"unit" json:"unit"`
	Model string `yaml:"model" json:"model"`
	Host  string `yaml:"host,omitempty" json:"host,omitempty"`
	Port  int    `yaml:"port,omitempty" json:"port,omitempty"`
}

// Validate checks the identity fields. Unit names come in "app/N" form.
func (r UnitRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("unit request %q: model is required", r.Unit)
	}
	if strings.TrimSpace(r.Unit) == "" {
		return fmt.Errorf("unit request: unit name is required")
	}
	if !strings.Contains(r.Unit, "/") {
		return fmt.Errorf("unit request %q: unit name must be of the form <app>/<n>", r.Unit)
	}
	return nil
}

// NormalizedUnit returns the unit name with "/" replaced by "-", safe for
// embedding into generated traefik names ("app/0" -> "app-0").
func (r UnitRequest) NormalizedUnit() string {
	return strings.ReplaceAll(r.Unit, "/", "-")
}

// App returns the application part of the unit name ("app/0" -> "app").
func (r UnitRequest) App() string {
	app, _, _ := strings.Cut(r.Unit, "/")
	return app
}
