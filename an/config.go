// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"github.com/platinasystems/log"

	"github.com/platinasystems/fm10k/sm"
)

// AutonegReady reports whether the port's (ethMode, anMode) pair can
// start autonegotiation, and which state machine type would own it.
// Clause 73 requires the AN-73 ethernet mode; Clause 37 and SGMII require
// 1000BASE-X or SGMII.  Any other combination is not ready, which is not
// an error: configuration may arrive in either order.
func (p *Port) AutonegReady(ethMode EthMode, anMode Mode) (ready bool, smType sm.Type) {
	smType = p.SmType

	switch anMode {
	case ModeClause73:
		smType = SmTypeClause73
		ready = ethMode == EthModeAN73
	case ModeClause37, ModeSGMII:
		smType = SmTypeClause37
		ready = ethMode == EthMode1000BaseX || ethMode == EthModeSGMII
	}
	return
}

// SendConfigEvent formats and sends a config or disable event to the
// port's autoneg state machine.  The caller holds the switch state lock.
func (p *Port) SendConfigEvent(eventID sm.EventID, mode Mode, basepage uint64, nextPages NextPageChain) error {
	return sm.Notify(p.SmHandle, &sm.Event{
		Type: p.SmHandle.Type(),
		ID:   eventID,
		Info: &ConfigEventInfo{
			Mode:      mode,
			BasePage:  basepage,
			NextPages: nextPages,
		},
	})
}

// RestartOnNewConfig reacts to an ethernet mode or autoneg mode change.
// If the new mode pair selects a different protocol variant than the one
// currently bound, the running state machine (if any) receives one
// disable event and is stopped, and a fresh instance starts under the new
// variant in the disabled state.  Either way the port's interrupt mask is
// retargeted and a config request event carries the new parameters into
// the bound instance.  A not-ready mode pair is a successful no-op.
func (p *Port) RestartOnNewConfig(ethMode EthMode, anMode Mode, basepage uint64, nextPages NextPageChain) error {
	ready, newSmType := p.AutonegReady(ethMode, anMode)
	if !ready {
		return nil
	}

	if newSmType != p.SmType {
		if p.SmType != sm.TypeUnspecified {
			// Ignore the disable outcome; the old instance may
			// well be in a state with nothing to tear down.
			p.SendConfigEvent(EventDisableReq,
				p.Mode, p.BasePage, p.NextPages)
			sm.Stop(p.SmHandle)
		}

		err := sm.Start(p.SmHandle, newSmType, StateDisabled)
		if err != nil {
			// Old instance already stopped: the port is left
			// unbound, a valid if degraded state.
			p.SmType = sm.TypeUnspecified
			log.Printf("an: port %d start %v", p.ID, err)
			return err
		}
		p.SmType = newSmType
	}

	switch anMode {
	case ModeClause73:
		p.InterruptMask = An73IntMask
	case ModeClause37, ModeSGMII:
		p.InterruptMask = An37IntMask
	}
	if Debug {
		log.Printf("an: port %d anMode=%s anInterruptMask=0x%08x",
			p.ID, anMode, p.InterruptMask)
	}

	return p.SendConfigEvent(EventConfigReq, anMode, basepage, nextPages)
}

// SetIgnoreNonce tells the Clause 73 engine whether to ignore the nonce
// match, allowing a port to negotiate with itself in loopback.  This is a
// read-modify-write of AN_73_CFG under the register lock.
func (p *Port) SetIgnoreNonce(ignore bool) error {
	s := p.sw
	addr := regAn73Cfg(p.Epl, p.EplLane)

	if Debug {
		log.Printf("an: sw %d port %d ignore nonce %t", s.ID, p.ID, ignore)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	anCfg, err := s.Regs.ReadUint32(addr)
	if err != nil {
		return err
	}
	if ignore {
		anCfg |= an73CfgIgnoreNonceMatch
	} else {
		anCfg &^= an73CfgIgnoreNonceMatch
	}
	if err = s.Regs.WriteUint32(addr, anCfg); err != nil {
		return err
	}

	p.IgnoreNonce = ignore
	return nil
}
