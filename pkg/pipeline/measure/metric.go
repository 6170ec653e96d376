package measure

import (
	"sync"
	"time"
)

// Timing accumulates the durations of one step during a run.
type Timing struct {
	Elapsed time.Duration
	total   int64
}

// Total returns the number of recorded executions.
func (t *Timing) Total() int64 {
	return t.total
}

type DefaultMetric struct {
	allSteps    map[string]*Timing
	mu          *sync.Mutex
	EndDuration time.Duration
	stepElapsed time.Duration
	total       int64
	con         int
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.stepElapsed += elapsed
}

func (mt *DefaultMetric) SetTotalDuration(totalDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.EndDuration = totalDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

func (mt *DefaultMetric) AddStepDuration(stepKey string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.allSteps[stepKey] == nil {
		mt.allSteps[stepKey] = &Timing{}
	}
	tm := mt.allSteps[stepKey]
	tm.Elapsed += elapsed
	tm.total++
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.stepElapsed) / float64(mt.total)))
}

// AVGStepDuration returns the average duration of every step. The accumulated values are left untouched.
func (mt *DefaultMetric) AVGStepDuration() map[string]*Timing {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	avg := make(map[string]*Timing, len(mt.allSteps))
	for key, tm := range mt.allSteps {
		if tm.total == 0 {
			avg[key] = &Timing{}

			continue
		}
		avg[key] = &Timing{Elapsed: round(time.Duration(float64(tm.Elapsed) / float64(tm.total))), total: tm.total}
	}

	return avg
}

func (mt *DefaultMetric) AllSteps() map[string]*Timing {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	all := make(map[string]*Timing, len(mt.allSteps))
	for key, tm := range mt.allSteps {
		all[key] = &Timing{Elapsed: tm.Elapsed, total: tm.total}
	}

	return all
}

func (mt *DefaultMetric) Concurrent() int {
	return mt.con
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Hour)
	case d > time.Minute:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
