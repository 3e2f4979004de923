// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package an implements IEEE 802.3 Clause 73 and Clause 37/SGMII
// autonegotiation for FM10000 switch ports: base/next page handling,
// highest-common-denominator resolution, EEE negotiation, interrupt to
// state machine event translation and per-port configuration of the
// autoneg state machines.
package an

import (
	"errors"
	"fmt"
	"sync"

	"github.com/platinasystems/fm10k/sm"
)

// Debug enables verbose autoneg logging.
var Debug bool

var (
	ErrInvalidArgument = errors.New("an: invalid argument")
	ErrUnsupported     = errors.New("an: unsupported")
	ErrNoFreeResources = errors.New("an: no free resources")
	ErrNotFound        = errors.New("an: not found")
	ErrInvalidPort     = errors.New("an: invalid port")
	ErrInvalidSwitch   = errors.New("an: invalid switch")
)

// Mode is the autonegotiation protocol selected for a port.
type Mode uint32

const (
	ModeNone Mode = iota
	ModeSGMII
	ModeClause37
	ModeClause73
)

func (m Mode) String() string {
	switch m {
	case ModeSGMII:
		return "sgmii"
	case ModeClause37:
		return "clause-37"
	case ModeClause73:
		return "clause-73"
	}
	return "none"
}

// EthMode is the ethernet interface mode of a port.
type EthMode int

const (
	EthModeDisabled EthMode = iota
	EthModeSGMII
	EthMode1000BaseX
	EthModeAN73
	EthMode1000BaseKX
	EthMode10GBaseKR
	EthMode25GBaseKR
	EthMode25GBaseCR
	EthMode40GBaseKR4
	EthMode40GBaseCR4
	EthMode100GBaseKR4
	EthMode100GBaseCR4
)

var ethModeNames = map[EthMode]string{
	EthModeDisabled:    "disabled",
	EthModeSGMII:       "sgmii",
	EthMode1000BaseX:   "1000base-x",
	EthModeAN73:        "an-73",
	EthMode1000BaseKX:  "1000base-kx",
	EthMode10GBaseKR:   "10gbase-kr",
	EthMode25GBaseKR:   "25gbase-kr",
	EthMode25GBaseCR:   "25gbase-cr",
	EthMode40GBaseKR4:  "40gbase-kr4",
	EthMode40GBaseCR4:  "40gbase-cr4",
	EthMode100GBaseKR4: "100gbase-kr4",
	EthMode100GBaseCR4: "100gbase-cr4",
}

func (m EthMode) String() string {
	if s, ok := ethModeNames[m]; ok {
		return s
	}
	return "invalid"
}

// Capability is the port hardware capability mask.
type Capability uint32

const (
	CapSpeed1G Capability = 1 << iota
	CapSpeed2Point5G
	CapSpeed10G
	CapSpeed25G
	CapSpeed40G
	CapSpeed100G
)

// LaneMode says whether a negotiated speed runs on one serdes lane or
// four.
type LaneMode int

const (
	LaneModeNone LaneMode = iota
	LaneModeSingle
	LaneModeQuad
)

func (m LaneMode) String() string {
	switch m {
	case LaneModeSingle:
		return "single"
	case LaneModeQuad:
		return "quad"
	}
	return "none"
}

// Regs is the switch register access interface.  MaskUint32 clears (on ==
// false) or sets the given bits of a register.
type Regs interface {
	ReadUint32(addr uint32) (uint32, error)
	WriteUint32(addr uint32, v uint32) error
	MaskUint32(addr uint32, mask uint32, on bool) error
}

// Switch holds the per-switch autoneg state: the port arena, the register
// access handle and the state lock that serializes event delivery.
type Switch struct {
	ID   int
	Regs Regs

	// mu is the per-switch state lock.  It is held across state
	// machine notification and any mutation of port autoneg state.
	mu sync.Mutex

	// regMu serializes read-modify-write register access.
	regMu sync.Mutex

	ports []*Port
}

// NewSwitch allocates the port arena for a switch with nports ports.
func NewSwitch(id, nports int, regs Regs) *Switch {
	s := &Switch{ID: id, Regs: regs}
	s.ports = make([]*Port, nports)
	for i := range s.ports {
		s.ports[i] = &Port{
			sw:                 s,
			ID:                 i,
			SmHandle:           sm.NewHandle(portOwner(id, i)),
			LinkInhibitTimer:   LinkInhibitTimerMs,
			LinkInhibitTimerKx: LinkInhibitTimerKxMs,
		}
	}
	return s
}

// Lock takes the switch state lock.  Callers of the notification paths in
// this package must hold it.
func (s *Switch) Lock()   { s.mu.Lock() }
func (s *Switch) Unlock() { s.mu.Unlock() }

// Port returns the autoneg record for a port.
func (s *Switch) Port(port int) (*Port, error) {
	if s == nil {
		return nil, ErrInvalidSwitch
	}
	if port < 0 || port >= len(s.ports) {
		return nil, ErrInvalidPort
	}
	return s.ports[port], nil
}

// Port is the per-port autonegotiation record.  It is exclusively owned
// by the thread holding the switch state lock.
type Port struct {
	sw *Switch
	ID int

	// Epl and EplLane give the port's EPL register addressing.  Lanes
	// is the number of serdes lanes available to the port.
	Epl     int
	EplLane int
	Lanes   int

	Capabilities Capability

	// Autoneg configuration.
	Mode               Mode
	BasePage           uint64
	NextPages          NextPageChain
	PartnerBasePage    uint64
	PartnerNextPages   NextPageChain
	LinkInhibitTimer   uint // milliseconds
	LinkInhibitTimerKx uint // milliseconds
	IgnoreNonce        bool
	TimerAllowOutSpec  bool

	// NextPageOui is the OUI expected in the 25G extended technology
	// ability next page.
	NextPageOui uint32

	// State machine binding.
	SmType        sm.Type
	SmHandle      *sm.Handle
	InterruptMask uint32

	negotiatedEthMode EthMode
	negotiatedEee     bool
}

func portOwner(sw, port int) string {
	return fmt.Sprintf("an.%d.%d", sw, port)
}

// Switch returns the switch owning this port.
func (p *Port) Switch() *Switch { return p.sw }

// NegotiatedEthMode is the ethernet mode chosen by the last completed
// negotiation, EthModeDisabled if none.
func (p *Port) NegotiatedEthMode() EthMode { return p.negotiatedEthMode }

// SetNegotiatedEthMode records the outcome of a completed negotiation.
func (p *Port) SetNegotiatedEthMode(m EthMode) { p.negotiatedEthMode = m }

// EeeNegotiated reports whether the last negotiation resolved EEE as
// mutually supported.
func (p *Port) EeeNegotiated() bool { return p.negotiatedEee }

// AutonegEnabled reports whether the port runs the autoneg protocols a
// 1000BASE-T transceiver PHY can participate in.  The transceiver manager
// uses it to decide PHY autoneg toggling on copper SFPs.
func (p *Port) AutonegEnabled() bool {
	return p.Mode == ModeSGMII || p.Mode == ModeClause37
}
