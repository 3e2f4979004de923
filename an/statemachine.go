// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"github.com/platinasystems/fm10k/sm"
)

// State machine types owning a port's negotiation session.
const (
	SmTypeClause73 sm.Type = iota + 1
	SmTypeClause37
)

// Autoneg state machine states.
const (
	StateDisabled sm.State = iota
	StateEnabled
	StateGoodCheck
	StateGood
)

// Events delivered to the autoneg state machines.
const (
	EventConfigReq sm.EventID = iota
	EventDisableReq
	EventAbilityDetect
	EventAckDetect
	EventCompleteAck
	EventNextPageWait
	EventGoodCheck
	EventGood
	EventTransmitDisable
	EventEnable
	EventRestart
	EventDisableLinkOk
	EventIdleDetect
	EventLinkOk
)

// ConfigEventInfo rides on EventConfigReq and EventDisableReq.
type ConfigEventInfo struct {
	Mode      Mode
	BasePage  uint64
	NextPages NextPageChain
}

func stay(h *sm.Handle, ev *sm.Event) (sm.State, error) {
	return h.State(), nil
}

func to(s sm.State) sm.Transition {
	return func(h *sm.Handle, ev *sm.Event) (sm.State, error) {
		return s, nil
	}
}

// The protocol handlers that program the EPL hardware register themselves
// over these skeletons at switch bring-up; the tables here carry only the
// state structure the orchestration and event delivery need.
func anTable(name string) *sm.Table {
	return &sm.Table{
		Name:    name,
		Default: stay,
		Transitions: map[sm.State]map[sm.EventID]sm.Transition{
			StateDisabled: {
				EventConfigReq: to(StateEnabled),
			},
			StateEnabled: {
				EventConfigReq:  to(StateEnabled),
				EventDisableReq: to(StateDisabled),
				EventGoodCheck:  to(StateGoodCheck),
			},
			StateGoodCheck: {
				EventDisableReq: to(StateDisabled),
				EventGood:       to(StateGood),
			},
			StateGood: {
				EventConfigReq:  to(StateEnabled),
				EventDisableReq: to(StateDisabled),
			},
		},
	}
}

var (
	clause73Table = anTable("an-73")
	clause37Table = anTable("an-37")
)

func init() {
	if err := sm.Register(SmTypeClause73, clause73Table); err != nil {
		panic(err)
	}
	if err := sm.Register(SmTypeClause37, clause37Table); err != nil {
		panic(err)
	}
}
