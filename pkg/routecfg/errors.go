package routecfg

import "fmt"

// RuleDerivationError reports that no router rule could be derived from the
// rendered root URL. Fix: provide `rule` explicitly, or fix the URL.
type RuleDerivationError struct {
	URL string
}

func (e *RuleDerivationError) Error() string {
	return fmt.Sprintf("unable to derive rule from %q; ensure that the url is valid", e.URL)
}

// UnknownPlaceholderError reports a template referencing a placeholder outside
// the recognized set (model, application, unit).
type UnknownPlaceholderError struct {
	Template string
	Key      string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("unable to render %q: placeholder %q unknown (recognized: model, application, unit)", e.Template, e.Key)
}
