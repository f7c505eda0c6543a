package reactive

import "sync"

// Dedup decides which values of a switched source reach the receiver.
type Dedup[T any] struct {
	// Same reports whether next duplicates the last delivered value.
	// It is also the place to release whatever part of prior is
	// superseded by next. When nil, nothing is considered a duplicate.
	Same func(prior, next T) bool

	// Drop releases the last delivered value when the subscription ends.
	Drop func(last T)
}

type switchDedup[O, I any] struct {
	outer  Source[O]
	derive func(O) (Source[I], error)
	dedup  Dedup[I]
}

// SwitchDedup follows the inner source derived from the latest outer value.
//
// For every outer value derive is called first. When it fails, the previous
// inner subscription stays in place and the error is returned to whoever
// pushed the outer value. Otherwise the previous inner subscription is
// released before the new inner source is read, so values from a stale inner
// source never reach the receiver.
//
// The first inner value is always delivered. Each later value is compared with
// the last delivered one by dedup.Same and suppressed when it is a duplicate.
func SwitchDedup[O, I any](outer Source[O], derive func(O) (Source[I], error), dedup Dedup[I]) Source[I] {
	return &switchDedup[O, I]{outer: outer, derive: derive, dedup: dedup}
}

func (s *switchDedup[O, I]) Read(receiver Receiver[I]) (*Supply, error) {
	st := &switchState[O, I]{
		src:      s,
		receiver: receiver,
		supply:   NewSupply(),
	}

	outerSub, err := s.outer.Read(st.switchTo)
	if err != nil {
		st.teardown()
		return nil, err
	}

	st.supply.Cuts(outerSub)
	st.supply.OnOff(func(error) {
		st.teardown()
	})

	return st.supply, nil
}

type switchState[O, I any] struct {
	src      *switchDedup[O, I]
	receiver Receiver[I]
	supply   *Supply

	mu       sync.Mutex
	gen      uint64
	innerSub *Supply
	last     I
	has      bool
	done     bool
}

func (st *switchState[O, I]) switchTo(outer O) error {
	if st.supply.IsOff() {
		return nil
	}

	inner, err := st.src.derive(outer)
	if err != nil {
		return err
	}

	st.mu.Lock()
	prev := st.innerSub
	st.innerSub = nil
	st.gen++
	gen := st.gen
	st.mu.Unlock()

	if prev != nil {
		prev.Release()
	}

	sub, err := inner.Read(func(value I) error {
		return st.deliver(gen, value)
	})
	if err != nil {
		return err
	}

	st.mu.Lock()
	if st.gen != gen || st.done {
		st.mu.Unlock()
		sub.Release()
		return nil
	}
	st.innerSub = sub
	st.mu.Unlock()

	return nil
}

func (st *switchState[O, I]) deliver(gen uint64, value I) error {
	st.mu.Lock()
	if st.gen != gen || st.done {
		st.mu.Unlock()
		return nil
	}
	prior, has := st.last, st.has
	st.mu.Unlock()

	// Same may release resources, so it runs unlocked.
	if has && st.src.dedup.Same != nil && st.src.dedup.Same(prior, value) {
		return nil
	}

	st.mu.Lock()
	st.last = value
	st.has = true
	st.mu.Unlock()

	return st.receiver(value)
}

func (st *switchState[O, I]) teardown() {
	st.mu.Lock()
	if st.done {
		st.mu.Unlock()
		return
	}
	st.done = true
	st.gen++
	inner := st.innerSub
	st.innerSub = nil
	last, has := st.last, st.has
	var zero I
	st.last = zero
	st.has = false
	st.mu.Unlock()

	if inner != nil {
		inner.Release()
	}
	if has && st.src.dedup.Drop != nil {
		st.src.dedup.Drop(last)
	}
}
