// Package telemetry is the one place components report what happened to
// them. Everything else (slog, otel, the test Recorder) sits behind API.
package telemetry

import (
	"fmt"
)

// API receives reports from components.
//
// note: fault injection point, tests swap in a Recorder
type API interface {
	// ReportBroken reports a component failing in a way someone has to fix.
	//
	// `id` names the component and method, never the detail of what failed
	// inside it. ex. a bad status while paging the feed is `client.activities`,
	// the status itself is a param.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that did not stop the component but is
	// worth a look, ex. a game skipped during a scrape. `id` follows ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug is only visible with --debug.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the value of a counter right now. Successive reports
	// of the same id are samples, not increments.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace before passing it on, the
// way a package would derive a sub logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
