// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm

import (
	"errors"
	"testing"
)

const (
	testType    Type = 100
	testTypeDef Type = 101
)

const (
	stateIdle State = iota
	stateRun
)

const (
	eventGo EventID = iota
	eventHalt
	eventOther
)

func init() {
	tbl := &Table{
		Name: "test",
		Transitions: map[State]map[EventID]Transition{
			stateIdle: {
				eventGo: func(h *Handle, ev *Event) (State, error) {
					return stateRun, nil
				},
			},
			stateRun: {
				eventHalt: func(h *Handle, ev *Event) (State, error) {
					return stateIdle, nil
				},
			},
		},
	}
	if err := Register(testType, tbl); err != nil {
		panic(err)
	}

	def := &Table{
		Name: "test-default",
		Default: func(h *Handle, ev *Event) (State, error) {
			return stateRun, nil
		},
	}
	if err := Register(testTypeDef, def); err != nil {
		panic(err)
	}
}

func TestStartNotifyStop(t *testing.T) {
	h := NewHandle("test.0")

	if err := Notify(h, &Event{Type: testType, ID: eventGo}); !errors.Is(err, ErrNotStarted) {
		t.Error("wrong error:", err)
	}

	if err := Start(h, testType, stateIdle); err != nil {
		t.Fatal(err)
	}
	if !h.Started() || h.Type() != testType || h.State() != stateIdle {
		t.Fatal("wrong handle state after start")
	}

	if err := Notify(h, &Event{Type: testType, ID: eventGo}); err != nil {
		t.Fatal(err)
	}
	if got, want := h.State(), stateRun; got != want {
		t.Errorf("got state %d, want %d", got, want)
	}

	Stop(h)
	if h.Started() || h.Type() != TypeUnspecified {
		t.Error("wrong handle state after stop")
	}
}

func TestNotifyUnhandledEventDropped(t *testing.T) {
	h := NewHandle("test.1")
	if err := Start(h, testType, stateIdle); err != nil {
		t.Fatal(err)
	}

	// No transition and no table default: the event is ignored.
	if err := Notify(h, &Event{Type: testType, ID: eventOther}); err != nil {
		t.Fatal(err)
	}
	if got, want := h.State(), stateIdle; got != want {
		t.Errorf("got state %d, want %d", got, want)
	}
	if got, want := len(h.History()), 0; got != want {
		t.Errorf("got %d records, want %d", got, want)
	}
}

func TestNotifyTableDefault(t *testing.T) {
	h := NewHandle("test.2")
	if err := Start(h, testTypeDef, stateIdle); err != nil {
		t.Fatal(err)
	}

	if err := Notify(h, &Event{Type: testTypeDef, ID: eventOther}); err != nil {
		t.Fatal(err)
	}
	if got, want := h.State(), stateRun; got != want {
		t.Errorf("got state %d, want %d", got, want)
	}
}

func TestNotifyTypeMismatch(t *testing.T) {
	h := NewHandle("test.3")
	if err := Start(h, testType, stateIdle); err != nil {
		t.Fatal(err)
	}

	err := Notify(h, &Event{Type: testTypeDef, ID: eventGo})
	if !errors.Is(err, ErrType) {
		t.Error("wrong error:", err)
	}
}

func TestStartUnregisteredType(t *testing.T) {
	h := NewHandle("test.4")
	if err := Start(h, Type(999), stateIdle); !errors.Is(err, ErrType) {
		t.Error("wrong error:", err)
	}
	if h.Started() {
		t.Error("started under an unregistered type")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	if err := Register(testType, &Table{Name: "dup"}); !errors.Is(err, ErrType) {
		t.Error("wrong error:", err)
	}
	if err := Register(TypeUnspecified, &Table{}); !errors.Is(err, ErrType) {
		t.Error("wrong error:", err)
	}
}

func TestNilHandle(t *testing.T) {
	if err := Start(nil, testType, stateIdle); !errors.Is(err, ErrHandle) {
		t.Error("wrong error:", err)
	}
	if err := Notify(nil, &Event{Type: testType, ID: eventGo}); !errors.Is(err, ErrHandle) {
		t.Error("wrong error:", err)
	}
	Stop(nil) // no-op
	var h *Handle
	if h.Started() {
		t.Error("nil handle started")
	}
}

func TestStartRebind(t *testing.T) {
	h := NewHandle("test.6")
	if err := Start(h, testType, stateIdle); err != nil {
		t.Fatal(err)
	}
	if err := Notify(h, &Event{Type: testType, ID: eventGo}); err != nil {
		t.Fatal(err)
	}

	// Starting a started handle rebinds it and discards the previous
	// type, state and history.
	if err := Start(h, testTypeDef, stateIdle); err != nil {
		t.Fatal(err)
	}
	if h.Type() != testTypeDef || h.State() != stateIdle {
		t.Error("handle not rebound")
	}
	if got, want := len(h.History()), 0; got != want {
		t.Errorf("got %d records, want %d", got, want)
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHandle("test.5")
	if err := Start(h, testTypeDef, stateIdle); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		err := Notify(h, &Event{Type: testTypeDef, ID: EventID(i)})
		if err != nil {
			t.Fatal(err)
		}
	}
	records := h.History()
	if got, want := len(records), 32; got != want {
		t.Fatalf("got %d records, want %d", got, want)
	}
	// Oldest dropped first: the newest record is event 49, the oldest
	// event 18.
	if got, want := records[0].Event, EventID(18); got != want {
		t.Errorf("got oldest event %d, want %d", got, want)
	}
	if got, want := records[31].Event, EventID(49); got != want {
		t.Errorf("got newest event %d, want %d", got, want)
	}

	// Restarting clears the history.
	if err := Start(h, testTypeDef, stateIdle); err != nil {
		t.Fatal(err)
	}
	if got, want := len(h.History()), 0; got != want {
		t.Errorf("after restart: got %d records, want %d", got, want)
	}
}
