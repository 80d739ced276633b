package qmps

import (
	"maps"
	"sync"

	"github.com/google/uuid"
)

// ExperimentResult collects the snapshots and metadata of one run.
type ExperimentResult struct {
	ID       uuid.UUID
	Metadata map[string]any
	Data     *SnapshotData

	mu sync.Mutex
}

// NewExperimentResult returns an empty result with a fresh ID.
func NewExperimentResult() *ExperimentResult {
	return &ExperimentResult{
		ID:       uuid.New(),
		Metadata: make(map[string]any),
		Data:     NewSnapshotData(),
	}
}

func (r *ExperimentResult) AddMetadata(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Metadata[key] = value
}

/*
Combine merges other into r: snapshot data is merged and metadata keys
from other win.
*/
func (r *ExperimentResult) Combine(other *ExperimentResult) {
	other.mu.Lock()
	meta := maps.Clone(other.Metadata)
	other.mu.Unlock()

	r.mu.Lock()
	maps.Copy(r.Metadata, meta)
	r.mu.Unlock()

	r.Data.Combine(other.Data)
}

/*
SnapshotData stores snapshot values by type and label. Average snapshots
are further keyed by the classical memory value at the time they were
taken.
*/
type SnapshotData struct {
	mu       sync.RWMutex
	averages map[string]map[string]map[string]*average
	pershot  map[string]map[string][]any
}

// NewSnapshotData returns an empty store.
func NewSnapshotData() *SnapshotData {
	return &SnapshotData{
		averages: make(map[string]map[string]map[string]*average),
		pershot:  make(map[string]map[string][]any),
	}
}

// AddPerShot appends value to the list stored under typ and label.
func (d *SnapshotData) AddPerShot(typ, label string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pershot[typ] == nil {
		d.pershot[typ] = make(map[string][]any)
	}
	d.pershot[typ][label] = append(d.pershot[typ][label], value)
}

/*
AddAverage folds value into the running mean under typ, label and memory.
value is a complex128, a map[string]float64 ket or a [][]complex128
matrix; it must keep the same kind for a given key.
*/
func (d *SnapshotData) AddAverage(typ, label, memory string, value any, variance bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byLabel := d.averages[typ]
	if byLabel == nil {
		byLabel = make(map[string]map[string]*average)
		d.averages[typ] = byLabel
	}
	byMemory := byLabel[label]
	if byMemory == nil {
		byMemory = make(map[string]*average)
		byLabel[label] = byMemory
	}

	avg := byMemory[memory]
	if avg == nil {
		avg = &average{variance: variance}
		byMemory[memory] = avg
	}
	avg.add(value)
}

// PerShot returns a copy of the values stored under typ and label.
func (d *SnapshotData) PerShot(typ, label string) []any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]any(nil), d.pershot[typ][label]...)
}

/*
Average returns the mean of the values stored under typ, label and memory.
variance is nil unless the snapshot was taken with variance.
*/
func (d *SnapshotData) Average(typ, label, memory string) (mean, variance any, count int, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	avg, ok := d.averages[typ][label][memory]
	if !ok {
		return nil, nil, 0, false
	}

	mean = avg.mean()
	if avg.variance {
		variance = avg.spread()
	}
	return mean, variance, avg.count, true
}

// Memories lists the memory keys stored under an average snapshot.
func (d *SnapshotData) Memories(typ, label string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.averages[typ][label]))
	for k := range d.averages[typ][label] {
		keys = append(keys, k)
	}
	return keys
}

// Combine merges other into d.
func (d *SnapshotData) Combine(other *SnapshotData) {
	if other == nil || other == d {
		return
	}

	other.mu.RLock()
	defer other.mu.RUnlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	for typ, byLabel := range other.pershot {
		if d.pershot[typ] == nil {
			d.pershot[typ] = make(map[string][]any)
		}
		for label, values := range byLabel {
			d.pershot[typ][label] = append(d.pershot[typ][label], values...)
		}
	}

	for typ, byLabel := range other.averages {
		if d.averages[typ] == nil {
			d.averages[typ] = make(map[string]map[string]*average)
		}
		for label, byMemory := range byLabel {
			if d.averages[typ][label] == nil {
				d.averages[typ][label] = make(map[string]*average)
			}
			for memory, avg := range byMemory {
				mine := d.averages[typ][label][memory]
				if mine == nil {
					mine = &average{variance: avg.variance}
					d.averages[typ][label][memory] = mine
				}
				mine.merge(avg)
			}
		}
	}
}
