package reactive

import "sync"

// Supply is a releasable handle guarding some resource.
//
// A supply is released at most once. Releasing an already released supply
// is a no-op, so every party that may decide the resource is no longer
// needed can call Off without coordinating with the others.
type Supply struct {
	mu        sync.Mutex
	off       bool
	reason    error
	callbacks []func(reason error)
}

// NewSupply creates a supply that is not released yet
func NewSupply() *Supply {
	return &Supply{}
}

// Off releases the supply with the given reason.
// Returns true only for the call that actually released it.
func (s *Supply) Off(reason error) bool {
	s.mu.Lock()
	if s.off {
		s.mu.Unlock()
		return false
	}
	s.off = true
	s.reason = reason
	callbacks := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(reason)
	}

	return true
}

// Release is Off without a reason
func (s *Supply) Release() {
	s.Off(nil)
}

// IsOff reports whether the supply has been released
func (s *Supply) IsOff() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.off
}

// Reason returns the reason the supply was released with
func (s *Supply) Reason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// OnOff registers a callback to run when the supply is released.
// Callbacks run in registration order. If the supply is already released
// the callback runs immediately.
func (s *Supply) OnOff(fn func(reason error)) *Supply {
	s.mu.Lock()
	if s.off {
		reason := s.reason
		s.mu.Unlock()
		fn(reason)
		return s
	}
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
	return s
}

// Needs makes this supply depend on another one: releasing other releases s
func (s *Supply) Needs(other *Supply) *Supply {
	other.OnOff(func(reason error) {
		s.Off(reason)
	})
	return s
}

// Cuts releases other when this supply is released
func (s *Supply) Cuts(other *Supply) *Supply {
	s.OnOff(func(reason error) {
		other.Off(reason)
	})
	return s
}
