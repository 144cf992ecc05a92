// Package oneshot provides a single-use channel that carries exactly one value
// from one producer to one consumer without blocking either side.
//
// Unlike a bare Go channel, the consumer can tell "nothing sent yet" apart
// from "producer went away without sending", which callers need in order to
// recover from a worker that died before reporting.
package oneshot

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrReceiverClosed is returned by Send when the receiving end has been
	// closed and nobody will ever read the value.
	ErrReceiverClosed = errors.New("oneshot: receiver closed")

	// ErrAlreadySent is returned by Send when the sender has already sent a
	// value or has been closed.
	ErrAlreadySent = errors.New("oneshot: value already sent or sender closed")
)

// RecvStatus is the result of a non-blocking receive.
type RecvStatus int

const (
	// Empty means the channel is open and no value has been sent yet.
	Empty RecvStatus = iota

	// Ready means a value was delivered by this call.
	Ready

	// Disconnected means the sender closed without sending, or the value
	// was already taken by an earlier call.
	Disconnected
)

// String returns a human-readable name for the status.
func (s RecvStatus) String() string {
	switch s {
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// shared is the state both ends point at.
type shared[T any] struct {
	ch             chan T // capacity 1, closed by the sender when it finishes
	receiverClosed atomic.Bool
}

// Sender is the producing end. It is owned by exactly one goroutine.
type Sender[T any] struct {
	s    *shared[T]
	once sync.Once
	done atomic.Bool
}

// Receiver is the consuming end. It is owned by exactly one goroutine.
type Receiver[T any] struct {
	s *shared[T]
}

// New returns a connected sender/receiver pair.
func New[T any]() (*Sender[T], *Receiver[T]) {
	s := &shared[T]{ch: make(chan T, 1)}
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

// Send delivers v to the receiver. It never blocks.
func (tx *Sender[T]) Send(v T) error {
	if tx.done.Load() {
		return ErrAlreadySent
	}
	if tx.s.receiverClosed.Load() {
		tx.Close()
		return ErrReceiverClosed
	}

	var sent bool
	tx.once.Do(func() {
		tx.done.Store(true)
		// The buffer holds exactly one value and only this call writes it,
		// so the send cannot block.
		tx.s.ch <- v
		close(tx.s.ch)
		sent = true
	})
	if !sent {
		return ErrAlreadySent
	}
	return nil
}

// Close drops the sender. If no value was sent, the receiver will observe
// Disconnected. Close is idempotent and safe to defer after Send.
func (tx *Sender[T]) Close() {
	tx.once.Do(func() {
		tx.done.Store(true)
		close(tx.s.ch)
	})
}

// TryRecv returns immediately with the value (Ready), the zero value and
// Empty, or the zero value and Disconnected.
func (rx *Receiver[T]) TryRecv() (T, RecvStatus) {
	var zero T
	select {
	case v, ok := <-rx.s.ch:
		if !ok {
			return zero, Disconnected
		}
		return v, Ready
	default:
		return zero, Empty
	}
}

// Close drops the receiver. Subsequent sends fail with ErrReceiverClosed.
func (rx *Receiver[T]) Close() {
	rx.s.receiverClosed.Store(true)
}
