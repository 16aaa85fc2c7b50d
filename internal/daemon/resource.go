// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"fmt"
	"io"
	"sync"
)

// Resource is a named slot owning at most one io.Closer.
//
// The slot is filled by Acquire and emptied by Release. Releasing an empty
// slot is a no-op, so a Resource can be released unconditionally during
// teardown whether or not acquisition ever succeeded.
type Resource struct {
	name string

	mu     sync.Mutex
	closer io.Closer
}

// NewResource returns an empty slot.
func NewResource(name string) *Resource {
	return &Resource{name: name}
}

// Acquire runs factory and returns a slot holding its result. On failure
// the returned slot is empty and the error is returned alongside it. A
// panic inside factory is converted into the returned error.
func Acquire(name string, factory func() (io.Closer, error)) (*Resource, error) {
	r := NewResource(name)
	return r, r.fill(factory)
}

// fill runs factory and stores its result in the slot.
func (r *Resource) fill(factory func() (io.Closer, error)) error {
	c, err := safeAcquire(r.name, factory)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.closer = c
	r.mu.Unlock()
	return nil
}

func safeAcquire(name string, factory func() (io.Closer, error)) (io.Closer, error) {
	var c io.Closer
	err := protect(name+": construction", func() error {
		var err error
		c, err = factory()
		return err
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%s: constructor returned no resource", name)
	}
	return c, nil
}

// Name returns the slot name.
func (r *Resource) Name() string { return r.name }

// Held reports whether the slot currently owns a resource.
func (r *Resource) Held() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closer != nil
}

// Value returns the owned resource, or nil when the slot is empty.
func (r *Resource) Value() io.Closer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closer
}

// Release closes the owned resource at most once and clears the slot.
// The slot is cleared even when Close fails or panics.
func (r *Resource) Release() error {
	r.mu.Lock()
	c := r.closer
	r.closer = nil
	r.mu.Unlock()

	if c == nil {
		return nil
	}
	return safeClose(r.name, c)
}

func safeClose(name string, c io.Closer) error {
	err := protect(name+": release", c.Close)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// protect runs fn and converts a panic into an error.
func protect(what string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: panic: %v", what, rec)
		}
	}()
	return fn()
}
