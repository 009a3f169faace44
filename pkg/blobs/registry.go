// Package blobs keeps temporary image buffers alive between processing steps.
// Every buffer has one owner and an explicit Revoke; Scope ties the release
// to a deferred call so that error paths free their buffers too.
package blobs

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrRevoked is returned when resolving an ID that was released or never issued
var ErrRevoked = errors.New("blob revoked")

// ID identifies a buffer held by a Registry
type ID string

// Registry maps IDs to byte buffers
type Registry struct {
	mu    sync.Mutex
	next  atomic.Uint64
	blobs map[ID][]byte
	bytes int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{blobs: make(map[ID][]byte)}
}

// Create stores data and returns its ID. The registry keeps its own
// reference; callers must not modify data afterwards.
func (r *Registry) Create(data []byte) ID {
	id := ID(fmt.Sprintf("blob:%d", r.next.Add(1)))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[id] = data
	r.bytes += len(data)
	return id
}

// Resolve returns the buffer behind id
func (r *Registry) Resolve(id ID) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRevoked, id)
	}
	return data, nil
}

// Revoke releases id. Revoking an unknown or already revoked ID is a no-op
// and reports false.
func (r *Registry) Revoke(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.blobs[id]
	if !ok {
		return false
	}
	delete(r.blobs, id)
	r.bytes -= len(data)
	return true
}

// RevokeAll releases every buffer and returns how many there were
func (r *Registry) RevokeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.blobs)
	r.blobs = make(map[ID][]byte)
	r.bytes = 0
	return n
}

// Len returns the number of live buffers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blobs)
}

// Bytes returns the total size of live buffers
func (r *Registry) Bytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

// Scope collects temporary IDs and revokes them together. Keep moves an ID
// out of the scope so it survives Release.
//
//	scope := reg.Scope()
//	defer scope.Release()
type Scope struct {
	reg *Registry
	ids []ID
}

// Scope starts a new release scope
func (r *Registry) Scope() *Scope {
	return &Scope{reg: r}
}

// Create stores data in the registry and tracks it in the scope
func (s *Scope) Create(data []byte) ID {
	id := s.reg.Create(data)
	s.ids = append(s.ids, id)
	return id
}

// Keep removes id from the scope
func (s *Scope) Keep(id ID) {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}

// Release revokes every ID still tracked. Safe to call more than once.
func (s *Scope) Release() {
	for _, id := range s.ids {
		s.reg.Revoke(id)
	}
	s.ids = nil
}
