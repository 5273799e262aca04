// Package routecfg renders the operator-authored route template into per-unit
// route configurations for the traefik document builder.
package routecfg

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is the raw, unrendered route configuration. RootURL is required
// and may contain {{model}}, {{application}} and {{unit}} placeholders.
// When Rule is empty it is derived from the rendered URL's hostname.
type Template struct {
	RootURL     string `yaml:"root_url" json:"root_url"`
	Rule        string `yaml:"rule,omitempty" json:"rule,omitempty"`
	StripPrefix string `yaml:"strip_prefix,omitempty" json:"strip_prefix,omitempty"`
}

// UnitContext carries the identity of one unit requesting ingress. UnitName
// is the normalized form ("app/0" -> "app-0") so it can be embedded into
// generated traefik names.
type UnitContext struct {
	Model    string
	UnitName string
	AppName  string
}

// RouteConfig is a rendered template for a single unit.
type RouteConfig struct {
	RootURL     string
	Rule        string
	ServiceID   string
	StripPrefix string
}

// dummyContext is only used by Validate; rendering must succeed against it
// before any real unit data exists.
var dummyContext = UnitContext{Model: "foo", UnitName: "bar", AppName: "baz"}

// Load reads a route template from a yaml file.
func Load(path string) (Template, error) {
	var t Template
	b, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read route template: %w", err)
	}
	if err := yaml.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("route template yaml: %w", err)
	}
	return t, nil
}

// Validate reports why the template cannot be used, or nil. It is a pure
// function of the template: rendering is checked against a dummy context.
func (t Template) Validate() error {
	var errs []error
	errs = append(errs, checkField("root_url", t.RootURL, true))
	if t.Rule != "" {
		errs = append(errs, checkField("rule", t.Rule, false))
	}
	if t.StripPrefix != "" && strings.ContainsAny(t.StripPrefix, " \t") {
		errs = append(errs, fmt.Errorf("strip_prefix %q must not contain whitespace", t.StripPrefix))
	}
	if strings.TrimSpace(t.RootURL) != "" {
		if _, err := t.Render(dummyContext); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkField(name, value string, required bool) error {
	if strings.TrimSpace(value) == "" {
		if required {
			return fmt.Errorf("`%s` is not configured", name)
		}
		return nil
	}
	if stripped := strings.TrimSpace(value); value != stripped {
		return fmt.Errorf("%s %q starts or ends with whitespace; it should be %q", name, value, stripped)
	}
	return nil
}

// Render fills in the template placeholders for one unit. When no rule
// template is configured, the rule is derived from the rendered URL.
func (t Template) Render(ctx UnitContext) (RouteConfig, error) {
	vars := map[string]string{
		"model":       ctx.Model,
		"application": ctx.AppName,
		"unit":        ctx.UnitName,
	}

	rootURL, err := expand(t.RootURL, vars)
	if err != nil {
		return RouteConfig{}, err
	}

	var rule string
	if t.Rule == "" {
		rule, err = RuleFromURL(rootURL)
	} else {
		rule, err = expand(t.Rule, vars)
	}
	if err != nil {
		return RouteConfig{}, err
	}

	// an easily recognizable id for the generated traefik names
	serviceID := ctx.UnitName + "-" + ctx.Model

	return RouteConfig{
		RootURL:     rootURL,
		Rule:        rule,
		ServiceID:   serviceID,
		StripPrefix: t.StripPrefix,
	}, nil
}

// RuleFromURL derives a traefik Host rule from the URL's hostname.
func RuleFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", &RuleDerivationError{URL: rawURL}
	}
	return "Host(`" + u.Hostname() + "`)", nil
}

// expand substitutes {{name}} placeholders from vars. Any placeholder outside
// vars fails loudly rather than being left in the output.
func expand(s string, vars map[string]string) (string, error) {
	var b strings.Builder
	rest := s
	for {
		i := strings.Index(rest, "{{")
		if i < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:i])
		rest = rest[i+2:]
		j := strings.Index(rest, "}}")
		if j < 0 {
			return "", &UnknownPlaceholderError{Template: s, Key: "{{" + rest}
		}
		key := strings.TrimSpace(rest[:j])
		value, ok := vars[key]
		if !ok {
			return "", &UnknownPlaceholderError{Template: s, Key: key}
		}
		b.WriteString(value)
		rest = rest[j+2:]
	}
}
