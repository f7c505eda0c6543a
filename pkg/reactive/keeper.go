package reactive

import (
	"errors"
	"sync"
)

// Receiver receives values pushed by a Source.
// A returned error is reported back to whoever pushed the value.
type Receiver[T any] func(T) error

// Source is a push-based stream of values that replays its latest value
// to every new reader
type Source[T any] interface {
	// Read attaches the receiver and synchronously replays the current value.
	// The receiver gets every later value until the returned supply is released.
	Read(receiver Receiver[T]) (*Supply, error)
}

type subscriber[T any] struct {
	receiver Receiver[T]
	supply   *Supply
}

// Keeper is a single-slot, multicast value holder replaying its latest value.
//
// Each keeper has exactly one writer. Writes issued while the keeper is
// delivering a value are queued and delivered after the current delivery
// completes, so every subscriber observes values in write order.
type Keeper[T any] struct {
	mu         sync.Mutex
	value      T
	has        bool
	subs       []*subscriber[T]
	delivering bool
	pending    []T
}

// NewKeeper creates a keeper holding the initial value
func NewKeeper[T any](initial T) *Keeper[T] {
	return &Keeper[T]{value: initial, has: true}
}

// NewEmptyKeeper creates a keeper without a value.
// Readers receive nothing until the first write.
func NewEmptyKeeper[T any]() *Keeper[T] {
	return &Keeper[T]{}
}

// Value returns the latest delivered value
func (k *Keeper[T]) Value() (T, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.value, k.has
}

// Len returns the number of live subscribers
func (k *Keeper[T]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.subs)
}

// Read attaches the receiver and replays the current value, if any.
// When the replay fails the subscription is released and the error returned.
func (k *Keeper[T]) Read(receiver Receiver[T]) (*Supply, error) {
	sub := &subscriber[T]{receiver: receiver, supply: NewSupply()}
	sub.supply.OnOff(func(error) {
		k.remove(sub)
	})

	k.mu.Lock()
	k.subs = append(k.subs, sub)
	value, has := k.value, k.has
	k.mu.Unlock()

	if has {
		if err := receiver(value); err != nil {
			sub.supply.Off(err)
			return nil, err
		}
	}

	return sub.supply, nil
}

// Write sets the value and delivers it to every live subscriber in
// attachment order. Errors returned by receivers are joined.
func (k *Keeper[T]) Write(value T) error {
	k.mu.Lock()
	if k.delivering {
		k.pending = append(k.pending, value)
		k.mu.Unlock()
		return nil
	}
	k.delivering = true
	k.mu.Unlock()

	var errs []error
	for {
		k.mu.Lock()
		k.value = value
		k.has = true
		subs := make([]*subscriber[T], len(k.subs))
		copy(subs, k.subs)
		k.mu.Unlock()

		for _, sub := range subs {
			if sub.supply.IsOff() {
				continue
			}
			if err := sub.receiver(value); err != nil {
				errs = append(errs, err)
			}
		}

		k.mu.Lock()
		if len(k.pending) == 0 {
			k.delivering = false
			k.mu.Unlock()
			break
		}
		value = k.pending[0]
		k.pending = k.pending[1:]
		k.mu.Unlock()
	}

	return errors.Join(errs...)
}

// Update applies fn to the latest written value and writes the result.
// Writes still queued for delivery count as written.
func (k *Keeper[T]) Update(fn func(T) T) error {
	k.mu.Lock()
	current := k.value
	if n := len(k.pending); n > 0 {
		current = k.pending[n-1]
	}
	k.mu.Unlock()
	return k.Write(fn(current))
}

func (k *Keeper[T]) remove(sub *subscriber[T]) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i, existing := range k.subs {
		if existing == sub {
			k.subs = append(k.subs[:i:i], k.subs[i+1:]...)
			return
		}
	}
}

type constSource[T any] struct {
	value T
}

// Const returns a source that replays a single value forever
func Const[T any](value T) Source[T] {
	return constSource[T]{value: value}
}

func (c constSource[T]) Read(receiver Receiver[T]) (*Supply, error) {
	if err := receiver(c.value); err != nil {
		return nil, err
	}
	return NewSupply(), nil
}

type mappedSource[T, R any] struct {
	source Source[T]
	fn     func(T) R
}

// Map derives a source applying fn to every value of source
func Map[T, R any](source Source[T], fn func(T) R) Source[R] {
	return mappedSource[T, R]{source: source, fn: fn}
}

func (m mappedSource[T, R]) Read(receiver Receiver[R]) (*Supply, error) {
	return m.source.Read(func(value T) error {
		return receiver(m.fn(value))
	})
}
