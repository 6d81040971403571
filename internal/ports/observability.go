package ports

// Observability is the narrow logging/metrics collaborator the engine is
// consumed through, so production code never imports a concrete logging
// or metrics library directly.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)
}

// Field is a structured log/metric field.
type Field struct {
	Key   string
	Value any
}
