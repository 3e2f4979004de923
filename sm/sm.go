// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sm is a small table-driven state machine framework.  A state
// transition table is registered once per machine type; a Handle binds a
// port (or any other owner) to one of the registered types and holds its
// current state.  Events are delivered synchronously with Notify while the
// caller holds whatever lock serializes access to the owner.
package sm

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type Type int
type State int
type EventID int

const TypeUnspecified Type = 0

var (
	ErrHandle     = errors.New("sm: invalid state machine handle")
	ErrType       = errors.New("sm: invalid state machine type")
	ErrNotStarted = errors.New("sm: state machine not started")
)

// Event is what Notify delivers.  Info carries event-specific data; the
// transition owns it only for the duration of the call.
type Event struct {
	Type Type
	ID   EventID
	Info interface{}
}

// Transition runs for one (state, event) pair and returns the next state.
// It executes under the lock held by the Notify caller.
type Transition func(h *Handle, ev *Event) (State, error)

// Table is the full transition table for one machine type.
type Table struct {
	Name        string
	Transitions map[State]map[EventID]Transition
	// Default runs when no per-state transition is registered for the
	// event.  A nil Default means unhandled events are ignored.
	Default Transition
}

var (
	registry   = map[Type]*Table{}
	registryMu sync.Mutex
)

// Register binds a transition table to a machine type.  Re-registering a
// type is a programming error.
func Register(typ Type, tbl *Table) error {
	if typ == TypeUnspecified || tbl == nil {
		return ErrType
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[typ]; dup {
		return fmt.Errorf("%w: %d already registered", ErrType, typ)
	}
	registry[typ] = tbl
	return nil
}

func table(typ Type) *Table {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[typ]
}

// Record is one entry of a handle's bounded transition history.
type Record struct {
	Time  time.Time
	Event EventID
	From  State
	To    State
}

const historyLen = 32

// Handle is one running (or stopped) state machine instance.
type Handle struct {
	Owner   string
	typ     Type
	state   State
	started bool
	history []Record
}

func NewHandle(owner string) *Handle {
	return &Handle{Owner: owner}
}

func (h *Handle) Type() Type   { return h.typ }
func (h *Handle) State() State { return h.state }
func (h *Handle) Started() bool {
	return h != nil && h.started
}

// History returns a copy of the bounded transition record, oldest first.
func (h *Handle) History() []Record {
	r := make([]Record, len(h.history))
	copy(r, h.history)
	return r
}

func (h *Handle) record(ev EventID, from, to State) {
	if len(h.history) == historyLen {
		copy(h.history, h.history[1:])
		h.history = h.history[:historyLen-1]
	}
	h.history = append(h.history, Record{
		Time:  time.Now(),
		Event: ev,
		From:  from,
		To:    to,
	})
}

// Start binds the handle to a registered type and sets the initial state.
// Starting an already started handle rebinds it: the previous type, state
// and transition history are discarded.
func Start(h *Handle, typ Type, initial State) error {
	if h == nil {
		return ErrHandle
	}
	if table(typ) == nil {
		return fmt.Errorf("%w: %d", ErrType, typ)
	}
	h.typ = typ
	h.state = initial
	h.started = true
	h.history = h.history[:0]
	return nil
}

// Stop unbinds the handle.  Stopping a stopped handle is a no-op.
func Stop(h *Handle) {
	if h == nil {
		return
	}
	h.started = false
	h.typ = TypeUnspecified
}

// Notify synchronously runs the transition registered for the handle's
// current state and the given event, then advances the state.  The caller
// must hold the lock that serializes access to the handle's owner for the
// duration of the call.
func Notify(h *Handle, ev *Event) error {
	if h == nil {
		return ErrHandle
	}
	if !h.started {
		return ErrNotStarted
	}
	tbl := table(h.typ)
	if tbl == nil {
		return fmt.Errorf("%w: %d", ErrType, h.typ)
	}
	if ev.Type != h.typ {
		return fmt.Errorf("%w: event type %d, handle type %d",
			ErrType, ev.Type, h.typ)
	}
	t := tbl.Transitions[h.state][ev.ID]
	if t == nil {
		t = tbl.Default
	}
	if t == nil {
		// Unhandled events are dropped, not failed; the protocol
		// tables only register the transitions they care about.
		return nil
	}
	from := h.state
	next, err := t(h, ev)
	if err != nil {
		return err
	}
	h.state = next
	h.record(ev.ID, from, next)
	return nil
}
