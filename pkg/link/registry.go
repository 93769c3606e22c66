package link

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sergeyboyko0791/hardware-wallet-api/pkg/usb"
)

// DeviceInfo is the projection of a registry record returned by Enumerate.
type DeviceInfo struct {
	Path  string
	Debug bool
}

func (i DeviceInfo) String() string {
	if i.Debug {
		return i.Path + " (debug)"
	}
	return i.Path
}

// record binds a stable path to the platform handle resolved for it during
// one enumeration pass.
type record struct {
	path  string
	debug bool
	dev   usb.Device
}

// snapshot is one immutable enumeration result. A new scan never patches an
// existing snapshot; it installs a fresh one.
type snapshot struct {
	version uint64
	records []*record
	byPath  map[string]*record
}

// registry owns the path → record mapping. Operations resolve against the
// snapshot current at call time and keep using the resolved record even if a
// later scan replaces the snapshot mid-operation.
type registry struct {
	mu      sync.RWMutex
	current *snapshot
}

func newRegistry() *registry {
	return &registry{current: &snapshot{byPath: map[string]*record{}}}
}

// replace installs records as the new snapshot in a single step. It returns
// the displaced records of the previous snapshot whose device handle is not
// reused by the new set, so the caller can release those handles.
func (r *registry) replace(records []*record) (*snapshot, []*record) {
	byPath := make(map[string]*record, len(records))
	kept := make(map[usb.Device]struct{}, len(records))
	for _, rec := range records {
		byPath[rec.path] = rec
		kept[rec.dev] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.current
	r.current = &snapshot{
		version: prev.version + 1,
		records: records,
		byPath:  byPath,
	}
	var displaced []*record
	for _, rec := range prev.records {
		if _, ok := kept[rec.dev]; !ok {
			displaced = append(displaced, rec)
		}
	}
	return r.current, displaced
}

func (r *registry) resolve(path string) (*record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.current.byPath[path]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, path)
	}
	return rec, nil
}
