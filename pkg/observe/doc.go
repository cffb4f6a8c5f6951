// Package observe provides Prometheus metrics and OpenTelemetry tracing
// implementations of filament.Instrumentation. Install either one, or both
// composed:
//
//	rt := filament.New()
//	rt.Instrument(filament.ComposeInstrumentation(
//	    observe.NewMetrics(),
//	    observe.NewTracing(),
//	))
package observe
