package engine

// Observer receives execution statistics. internal/metrics implements it
// with Prometheus collectors.
type Observer interface {
	// ObserveExecution is called once per Run or failed Query. err is nil
	// on success.
	ObserveExecution(stats Stats, err error)

	// ObservePlanCache reports a compiled-statement cache lookup.
	ObservePlanCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveExecution(Stats, error) {}
func (nopObserver) ObservePlanCache(bool)         {}
