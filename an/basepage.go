// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"fmt"

	"github.com/platinasystems/log"
)

// Clause 73 page layout.  Pages are 64 bit register words whose low 48
// bits carry the IEEE 802.3 D[47:0] link codeword.
const (
	// Base page technology ability field A[22:0] at D[43:21].
	basePageAbilityLsb   = 21
	basePageAbilityWidth = 23

	// Next page message/unformatted code field at D[10:0].
	nextPageMessageLsb   = 0
	nextPageMessageWidth = 11

	pageBitToggle      = 11 // T
	pageBitAck2        = 12
	pageBitMessagePage = 13 // MP
	pageBitAck         = 14
	pageBitNextPage    = 15 // NP
)

// Clause 73 technology ability bits, A0 up.
const (
	Ability1000BaseKX uint32 = 1 << iota
	Ability10GBaseKX4
	Ability10GBaseKR
	Ability40GBaseKR4
	Ability40GBaseCR4
	Ability100GBaseCR10
	Ability100GBaseKP4
	Ability100GBaseKR4
	Ability100GBaseCR4
	Ability25GBaseKR
	Ability25GBaseCR
)

const (
	// The FM10000 EPL cannot run KX4, CR10 or KP4; those bits are
	// stripped from any advertisement.
	unsupportedAbilities = Ability10GBaseKX4 |
		Ability100GBaseCR10 |
		Ability100GBaseKP4

	abilities40G  = Ability40GBaseKR4 | Ability40GBaseCR4
	abilities100G = Ability100GBaseKR4 | Ability100GBaseCR4
	abilities25G  = Ability25GBaseKR | Ability25GBaseCR

	supportedAbilities = Ability1000BaseKX |
		Ability10GBaseKR |
		abilities25G |
		abilities40G |
		abilities100G
)

func pageField(page uint64, lsb, width uint) uint64 {
	return (page >> lsb) & (1<<width - 1)
}

func pageSetField(page uint64, lsb, width uint, v uint64) uint64 {
	mask := uint64(1<<width-1) << lsb
	return (page &^ mask) | (v << lsb & mask)
}

func pageBit(page uint64, bit uint) uint64 {
	return (page >> bit) & 1
}

// BasePageAbility extracts the technology ability field from a Clause 73
// base page.
func BasePageAbility(page uint64) uint32 {
	return uint32(pageField(page, basePageAbilityLsb, basePageAbilityWidth))
}

// SetBasePageAbility returns the page with its technology ability field
// replaced.
func SetBasePageAbility(page uint64, ability uint32) uint64 {
	return pageSetField(page, basePageAbilityLsb, basePageAbilityWidth,
		uint64(ability))
}

// NextPageMessageCode extracts the message/unformatted code field from a
// next page.
func NextPageMessageCode(page uint64) uint32 {
	return uint32(pageField(page, nextPageMessageLsb, nextPageMessageWidth))
}

type abilityCheck struct {
	ability uint32
	cap     Capability
	name    string
}

// Check order is fixed; the first advertised ability the port cannot run
// fails the whole validation.
var abilityChecks = []abilityCheck{
	{Ability1000BaseKX, CapSpeed1G, "1G-KX"},
	{Ability10GBaseKR, CapSpeed10G, "10G-KR"},
	{Ability25GBaseKR, CapSpeed25G, "25G-KR"},
	{Ability25GBaseCR, CapSpeed25G, "25G-CR"},
	{Ability40GBaseKR4, CapSpeed40G, "40G-KR4"},
	{Ability40GBaseCR4, CapSpeed40G, "40G-CR4"},
	{Ability100GBaseKR4, CapSpeed100G, "100G-KR4"},
	{Ability100GBaseCR4, CapSpeed100G, "100G-CR4"},
}

// ValidateBasePage checks a proposed Clause 73 base page against the
// port's hardware capabilities and returns the page with any abilities
// the engine itself cannot run stripped.  For other autoneg modes, or
// when the ability field is zero (base page configured before the
// ethernet mode), the page passes through untouched.
func (p *Port) ValidateBasePage(mode Mode, basepage uint64) (uint64, error) {
	if mode != ModeClause73 {
		return basepage, nil
	}
	ability := BasePageAbility(basepage)
	if ability == 0 {
		return basepage, nil
	}

	if unsup := ability & unsupportedAbilities; unsup != 0 {
		if Debug {
			log.Printf("an: unsupported clause 73 abilities configured on port %d: 0x%08x",
				p.ID, unsup)
		}
	}
	ability &^= unsupportedAbilities

	if ability == 0 {
		log.Printf("an: no supported clause 73 abilities configured on port %d",
			p.ID)
		return basepage, fmt.Errorf("%w: no supported abilities on port %d",
			ErrUnsupported, p.ID)
	}

	for _, c := range abilityChecks {
		if ability&c.ability != 0 && p.Capabilities&c.cap == 0 {
			log.Printf("an: request to advertise %s but port %d does not support it",
				c.name, p.ID)
			return basepage, fmt.Errorf("%w: %s exceeds port %d capability",
				ErrUnsupported, c.name, p.ID)
		}
	}

	return SetBasePageAbility(basepage, ability), nil
}
