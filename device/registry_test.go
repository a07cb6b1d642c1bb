// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"
	"testing"
)

// fakeDevice is a minimal Device for registry tests.
type fakeDevice struct {
	name   string
	closed bool
}

func (d *fakeDevice) Name() string               { return d.name }
func (d *fakeDevice) Capabilities() Capabilities { return Capabilities{} }
func (d *fakeDevice) Close() error               { d.closed = true; return nil }

func (d *fakeDevice) NewTarget(w, h int) (Target, error) {
	return nil, errors.New("not implemented")
}

func fakeFactory(name string) Factory {
	return func() (Device, error) {
		return &fakeDevice{name: name}, nil
	}
}

func TestRegistryPriorityOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("low", 10, fakeFactory("low"), nil)
	r.Register("high", 100, fakeFactory("high"), nil)
	r.Register("mid", 50, fakeFactory("mid"), nil)

	got := r.List()
	want := []string{"high", "mid", "low"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistryAvailableFilter(t *testing.T) {
	r := NewRegistry()
	r.Register("present", 50, fakeFactory("present"), func() bool { return true })
	r.Register("absent", 100, fakeFactory("absent"), func() bool { return false })

	avail := r.Available()
	if len(avail) != 1 || avail[0] != "present" {
		t.Errorf("Available() = %v, want [present]", avail)
	}

	// List still shows unavailable backends.
	if len(r.List()) != 2 {
		t.Errorf("List() = %v, want both entries", r.List())
	}
}

func TestRegistryAcquirePrefersPriority(t *testing.T) {
	r := NewRegistry()
	r.Register("fallback", 10, fakeFactory("fallback"), nil)
	r.Register("preferred", 100, fakeFactory("preferred"), nil)

	d, err := r.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer d.Close()

	if d.Name() != "preferred" {
		t.Errorf("Acquire() picked %q, want %q", d.Name(), "preferred")
	}
}

func TestRegistryAcquireFallsThrough(t *testing.T) {
	r := NewRegistry()
	r.Register("broken", 100, func() (Device, error) {
		return nil, errors.New("open failed")
	}, nil)
	r.Register("working", 50, fakeFactory("working"), nil)

	d, err := r.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer d.Close()

	if d.Name() != "working" {
		t.Errorf("Acquire() picked %q, want %q", d.Name(), "working")
	}
}

func TestRegistryAcquireEmpty(t *testing.T) {
	r := NewRegistry()

	_, err := r.Acquire()
	if !errors.Is(err, ErrNoBackendAvailable) {
		t.Errorf("Acquire() on empty registry = %v, want ErrNoBackendAvailable", err)
	}
}

func TestRegistryAcquireAllFail(t *testing.T) {
	r := NewRegistry()
	openErr := errors.New("vulkan init failed")
	r.Register("only", 50, func() (Device, error) {
		return nil, openErr
	}, nil)

	_, err := r.Acquire()
	if !errors.Is(err, ErrNoBackendAvailable) {
		t.Errorf("Acquire() = %v, want ErrNoBackendAvailable", err)
	}
	// The factory error is joined in for diagnostics.
	if !errors.Is(err, openErr) {
		t.Errorf("Acquire() = %v, want wrapped factory error", err)
	}
}

func TestRegistryAcquireByName(t *testing.T) {
	r := NewRegistry()
	r.Register("known", 50, fakeFactory("known"), nil)
	r.Register("offline", 50, fakeFactory("offline"), func() bool { return false })

	d, err := r.AcquireByName("known")
	if err != nil {
		t.Fatalf("AcquireByName(known) failed: %v", err)
	}
	defer d.Close()
	if d.Name() != "known" {
		t.Errorf("AcquireByName(known) returned %q", d.Name())
	}

	_, err = r.AcquireByName("missing")
	var notFound *BackendNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("AcquireByName(missing) = %v, want BackendNotFoundError", err)
	} else if notFound.Name != "missing" {
		t.Errorf("BackendNotFoundError.Name = %q, want %q", notFound.Name, "missing")
	}

	_, err = r.AcquireByName("offline")
	var unavailable *BackendUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("AcquireByName(offline) = %v, want BackendUnavailableError", err)
	}
}

func TestRegistryReplaceAndUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("dev", 10, fakeFactory("old"), nil)
	r.Register("dev", 90, fakeFactory("new"), nil)

	if n := len(r.List()); n != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", n)
	}

	d, err := r.AcquireByName("dev")
	if err != nil {
		t.Fatalf("AcquireByName failed: %v", err)
	}
	defer d.Close()
	if d.Name() != "new" {
		t.Errorf("replaced entry still opens %q", d.Name())
	}

	r.Unregister("dev")
	if len(r.List()) != 0 {
		t.Errorf("expected empty registry after Unregister, got %v", r.List())
	}
}

func TestRegistryNilAvailableMeansAvailable(t *testing.T) {
	r := NewRegistry()
	r.Register("assumed", 50, fakeFactory("assumed"), nil)

	if avail := r.Available(); len(avail) != 1 {
		t.Errorf("Available() = %v, want [assumed]", avail)
	}
}

func TestGlobalRegistryHasSoftware(t *testing.T) {
	found := false
	for _, name := range List() {
		if name == "software" {
			found = true
		}
	}
	if !found {
		t.Fatalf("global registry List() = %v, want software registered", List())
	}

	d, err := AcquireByName("software")
	if err != nil {
		t.Fatalf("AcquireByName(software) failed: %v", err)
	}
	if d.Name() != "software" {
		t.Errorf("Name() = %q, want software", d.Name())
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestGlobalRegisterUnregister(t *testing.T) {
	name := fmt.Sprintf("test-backend-%d", 42)
	Register(name, 1, fakeFactory(name), nil)
	defer Unregister(name)

	d, err := AcquireByName(name)
	if err != nil {
		t.Fatalf("AcquireByName failed: %v", err)
	}
	defer d.Close()

	Unregister(name)
	if _, err := AcquireByName(name); err == nil {
		t.Error("AcquireByName after Unregister should fail")
	}
}
