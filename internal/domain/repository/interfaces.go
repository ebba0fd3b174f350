package repository

// Metrics records fetch pipeline observations.
type Metrics interface {
	RecordFetch(source, outcome string, seconds float64)
	RecordCache(name string, hit bool)
	RecordAttacks(lastHour, previousHour int)
	RecordBreakerState(source string, state float64)
}
