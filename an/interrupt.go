// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"github.com/platinasystems/log"

	"github.com/platinasystems/fm10k/sm"
)

type intrEvent struct {
	bit   uint32
	event sm.EventID
}

// Interrupt bit to event tables.  Each set bit produces exactly one event,
// in table order.  The Clause 37 table maps the next page wait interrupt
// to the good check event; that mapping is the hardware team's and is kept
// as is.
var clause73IntrEvents = []intrEvent{
	{anIpAn73AbilityDetect, EventAbilityDetect},
	{anIpAn73AcknowledgeDetect, EventAckDetect},
	{anIpAn73CompleteAcknowledge, EventCompleteAck},
	{anIpAn73NextPageWait, EventNextPageWait},
	{anIpAn73AnGoodCheck, EventGoodCheck},
	{anIpAn73AnGood, EventGood},
	{anIpAn73TransmitDisable, EventTransmitDisable},
}

var clause37IntrEvents = []intrEvent{
	{anIpAn37AnEnable, EventEnable},
	{anIpAn37AnRestart, EventRestart},
	{anIpAn37AnDisableLinkOk, EventDisableLinkOk},
	{anIpAn37AbilityDetect, EventAbilityDetect},
	{anIpAn37CompleteAcknowledge, EventCompleteAck},
	{anIpAn37NextPageWait, EventGoodCheck},
	{anIpAn37IdleDetect, EventIdleDetect},
	{anIpAn37LinkOk, EventLinkOk},
}

// notifyEvents walks a bit table and synchronously delivers one event per
// set bit, in table order.  Delivery is fail fast: the first error aborts
// the remaining events.
func (p *Port) notifyEvents(typ sm.Type, table []intrEvent, anIp uint32) error {
	for _, e := range table {
		if anIp&e.bit == 0 {
			continue
		}
		err := sm.Notify(p.SmHandle, &sm.Event{Type: typ, ID: e.event})
		if err != nil {
			log.Printf("an: port %d event %d notify: %v",
				p.ID, e.event, err)
			return err
		}
	}
	return nil
}

// portByEplLane resolves the port currently mapped to an EPL lane, nil if
// the lane is not associated with an active port.
func (s *Switch) portByEplLane(epl, lane int) *Port {
	for _, p := range s.ports {
		if p.Epl == epl && p.EplLane == lane && p.Lanes > 0 {
			return p
		}
	}
	return nil
}

// HandleAnInterrupt processes the AN interrupt pending mask of one EPL
// lane: it translates each pending bit into the event sequence for the
// port's protocol variant and delivers them to the port's state machine.
// Whatever the outcome, the pending bits are acknowledged by clearing
// them in AN_IM exactly once.  The caller holds the switch state lock.
func (s *Switch) HandleAnInterrupt(epl, lane int, anIp uint32) error {
	var notifyErr error

	p := s.portByEplLane(epl, lane)
	if p != nil {
		if Debug {
			log.Printf("an: interrupt on port %d (type %d): 0x%08x",
				p.ID, p.SmType, anIp)
		}
		switch p.SmType {
		case SmTypeClause73:
			notifyErr = p.notifyEvents(SmTypeClause73,
				clause73IntrEvents, anIp)
		case SmTypeClause37:
			notifyErr = p.notifyEvents(SmTypeClause37,
				clause37IntrEvents, anIp)
		}
	}

	// Acknowledge regardless of delivery outcome.
	if err := s.Regs.MaskUint32(regAnIM(epl, lane), anIp, false); err != nil {
		log.Printf("an: epl %d lane %d interrupt ack: %v", epl, lane, err)
		if notifyErr == nil {
			notifyErr = err
		}
	}
	return notifyErr
}
