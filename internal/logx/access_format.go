// Package logx holds the access-log plumbing: the $var line formatter and
// the rotating file writer.
package logx

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

// DefaultAccessFormat is used when logging.access_log_format is not set.
const DefaultAccessFormat = "$time_local | $status | $latency | $client_ip | $method $path request_id=$request_id"

// AccessEntry carries one request's loggable fields.
type AccessEntry struct {
	Time      time.Time
	Status    int
	Latency   time.Duration
	ClientIP  string
	Method    string
	Path      string
	RequestID string
}

type accessPart struct {
	literal string
	varName string
}

// AccessFormatter renders access-log lines from a compiled $var format.
type AccessFormatter struct {
	parts []accessPart
}

var accessVars = map[string]struct{}{
	"time_local": {},
	"status":     {},
	"latency":    {},
	"latency_ms": {},
	"client_ip":  {},
	"method":     {},
	"path":       {},
	"request_id": {},
}

// AccessVars lists the variables a format may reference, sorted.
func AccessVars() []string {
	out := make([]string, 0, len(accessVars))
	for k := range accessVars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CompileAccessFormat parses a $var format string. "$$" escapes a literal
// dollar sign; an unknown variable is a compile error.
func CompileAccessFormat(format string) (*AccessFormatter, error) {
	var (
		parts []accessPart
		lit   strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, accessPart{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		if format[i] != '$' {
			lit.WriteByte(format[i])
			continue
		}
		if i+1 < len(format) && format[i+1] == '$' {
			lit.WriteByte('$')
			i++
			continue
		}
		j := i + 1
		for j < len(format) {
			r := rune(format[j])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			j++
		}
		if j == i+1 {
			return nil, fmt.Errorf("access_log_format: missing variable name after '$' at pos %d", i)
		}
		name := format[i+1 : j]
		if _, ok := accessVars[name]; !ok {
			return nil, fmt.Errorf("access_log_format: unknown variable $%s (allowed: %s)", name, strings.Join(AccessVars(), ", "))
		}
		flush()
		parts = append(parts, accessPart{varName: name})
		i = j - 1
	}
	flush()
	return &AccessFormatter{parts: parts}, nil
}

// Line renders one access-log line. Empty variables render as "-".
func (f *AccessFormatter) Line(e AccessEntry) string {
	vars := map[string]string{
		"time_local": e.Time.Format("2006/01/02 - 15:04:05"),
		"status":     fmt.Sprintf("%d", e.Status),
		"latency":    e.Latency.String(),
		"latency_ms": fmt.Sprintf("%d", e.Latency.Milliseconds()),
		"client_ip":  strings.TrimSpace(e.ClientIP),
		"method":     strings.TrimSpace(e.Method),
		"path":       e.Path,
		"request_id": strings.TrimSpace(e.RequestID),
	}

	var b strings.Builder
	for _, p := range f.parts {
		if p.varName == "" {
			b.WriteString(p.literal)
			continue
		}
		if v := vars[p.varName]; v != "" {
			b.WriteString(v)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
