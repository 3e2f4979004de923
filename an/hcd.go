// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"fmt"
)

// HcdCode is the highest common denominator resolved by Clause 73
// autonegotiation.  The numeric values match the hardware's AN_37_73_STATUS
// HCD encoding.
type HcdCode int

const (
	HcdIncompatibleLink HcdCode = iota
	Hcd10GBaseKR
	HcdKX4
	HcdKX
	Hcd40GBaseKR4
	Hcd40GBaseCR4
	Hcd100GBaseCR10
	Hcd100GBaseKP4
	Hcd100GBaseKR4
	Hcd100GBaseCR4
	Hcd25GBaseKR
	Hcd25GBaseCR
)

var hcdNames = map[HcdCode]string{
	HcdIncompatibleLink: "AN73_HCD_INCOMPATIBLE_LINK(0)",
	Hcd10GBaseKR:        "AN73_HCD_10_KR(1)",
	HcdKX4:              "AN73_HCD_KX4(2)",
	HcdKX:               "AN73_HCD_KX(3)",
	Hcd40GBaseKR4:       "AN73_HCD_40_KR4(4)",
	Hcd40GBaseCR4:       "AN73_HCD_40_CR4(5)",
	Hcd100GBaseCR10:     "AN73_HCD_100_CR10(6)",
	Hcd100GBaseKP4:      "AN73_HCD_100_KP4(7)",
	Hcd100GBaseKR4:      "AN73_HCD_100_KR4(8)",
	Hcd100GBaseCR4:      "AN73_HCD_100_CR4(9)",
	Hcd25GBaseKR:        "AN73_HCD_25_KR(10)",
	Hcd25GBaseCR:        "AN73_HCD_25_CR(11)",
}

func (h HcdCode) String() string {
	if s, ok := hcdNames[h]; ok {
		return s
	}
	return "AN73_HCD_INVALID"
}

// HcdToEthMode maps a Clause 73 HCD to the ethernet mode to run the link
// at.  Unresolvable codes map to EthModeDisabled.
func HcdToEthMode(hcd HcdCode) EthMode {
	switch hcd {
	case HcdKX:
		return EthMode1000BaseKX
	case Hcd10GBaseKR:
		return EthMode10GBaseKR
	case Hcd25GBaseKR:
		return EthMode25GBaseKR
	case Hcd25GBaseCR:
		return EthMode25GBaseCR
	case Hcd40GBaseKR4:
		return EthMode40GBaseKR4
	case Hcd40GBaseCR4:
		return EthMode40GBaseCR4
	case Hcd100GBaseKR4:
		return EthMode100GBaseKR4
	case Hcd100GBaseCR4:
		return EthMode100GBaseCR4
	}
	return EthModeDisabled
}

// multiLaneCapabilities reports whether the port can run the four lane 40G
// and 100G modes.
func (p *Port) multiLaneCapabilities() (is40G, is100G bool) {
	if p.Lanes >= 4 {
		is40G = p.Capabilities&CapSpeed40G != 0
		is100G = p.Capabilities&CapSpeed100G != 0
	}
	return
}

// MaxSpeedAbilityAndMode resolves the maximum speed (in Mbps) and lane
// layout negotiable with the given advertisement.  Basepage zero means no
// explicit advertisement was configured, in which case the candidates
// derive from the port's own capabilities.  A 25G advertisement may live
// only in the next pages; the chain is probed independently of the base
// page ability field.
//
// The priority order is best speed wins and must not be reordered.  KX
// resolves to 2500 Mbps: the encoding carries the serdes line rate, which
// exceeds the 1G data rate.
func (p *Port) MaxSpeedAbilityAndMode(mode Mode, basepage uint64, nextPages *NextPageChain) (maxSpeed uint32, laneMode LaneMode, err error) {
	switch mode {
	case ModeClause73:
		var ability uint32
		if basepage == 0 {
			is40G, is100G := p.multiLaneCapabilities()
			ability = supportedAbilities
			if !is40G {
				ability &^= abilities40G
			}
			if !is100G {
				ability &^= abilities100G
			}
		} else {
			ability = BasePageAbility(basepage)
		}

		var is25GInNextPage bool
		is25GInNextPage, err = p.is25GConfiguredInNextPage(nextPages)
		if err != nil {
			return
		}

		switch {
		case ability&abilities100G != 0:
			maxSpeed = 100000
			laneMode = LaneModeQuad
		case ability&abilities40G != 0:
			maxSpeed = 40000
			laneMode = LaneModeQuad
		case ability&abilities25G != 0 || is25GInNextPage:
			maxSpeed = 25000
			laneMode = LaneModeSingle
		case ability&Ability10GBaseKR != 0:
			maxSpeed = 10000
			laneMode = LaneModeSingle
		case ability&Ability1000BaseKX != 0:
			maxSpeed = 2500
			laneMode = LaneModeSingle
		}

	case ModeClause37, ModeSGMII:
		maxSpeed = 1000
		laneMode = LaneModeSingle

	default:
		err = fmt.Errorf("%w: autoneg mode %d", ErrUnsupported, mode)
	}
	return
}
