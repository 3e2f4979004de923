// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"errors"
	"strings"
	"testing"
)

type fakeRegs struct {
	regs    map[uint32]uint32
	masks   []maskOp
	maskErr error
}

type maskOp struct {
	addr uint32
	mask uint32
	on   bool
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{regs: make(map[uint32]uint32)}
}

func (f *fakeRegs) ReadUint32(addr uint32) (uint32, error) {
	return f.regs[addr], nil
}

func (f *fakeRegs) WriteUint32(addr uint32, v uint32) error {
	f.regs[addr] = v
	return nil
}

func (f *fakeRegs) MaskUint32(addr uint32, mask uint32, on bool) error {
	if f.maskErr != nil {
		return f.maskErr
	}
	f.masks = append(f.masks, maskOp{addr, mask, on})
	if on {
		f.regs[addr] |= mask
	} else {
		f.regs[addr] &^= mask
	}
	return nil
}

func testPort(t *testing.T, caps Capability, lanes int) *Port {
	t.Helper()
	s := NewSwitch(0, 4, newFakeRegs())
	p, err := s.Port(1)
	if err != nil {
		t.Fatal(err)
	}
	p.Capabilities = caps
	p.Lanes = lanes
	return p
}

func TestValidateBasePagePassThrough(t *testing.T) {
	p := testPort(t, 0, 1)
	page := SetBasePageAbility(0x4001, Ability10GBaseKR)

	// Non clause 73 modes and a zero ability field pass untouched.
	for _, mode := range []Mode{ModeNone, ModeSGMII, ModeClause37} {
		got, err := p.ValidateBasePage(mode, page)
		if err != nil {
			t.Fatal(mode, err)
		}
		if got != page {
			t.Errorf("mode %s: got 0x%x, want 0x%x", mode, got, page)
		}
	}
	got, err := p.ValidateBasePage(ModeClause73, 0x4001)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x4001 {
		t.Errorf("zero ability: got 0x%x, want 0x4001", got)
	}
}

func TestValidateBasePageStripsUnsupported(t *testing.T) {
	p := testPort(t, CapSpeed1G|CapSpeed10G, 1)
	page := SetBasePageAbility(0,
		Ability1000BaseKX|Ability10GBaseKX4|Ability10GBaseKR|
			Ability100GBaseKP4)

	got, err := p.ValidateBasePage(ModeClause73, page)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := BasePageAbility(got), Ability1000BaseKX|Ability10GBaseKR; got != want {
		t.Errorf("ability: got 0x%x, want 0x%x", got, want)
	}
}

func TestValidateBasePageNothingSupported(t *testing.T) {
	p := testPort(t, CapSpeed1G, 1)
	page := SetBasePageAbility(0,
		Ability10GBaseKX4|Ability100GBaseCR10|Ability100GBaseKP4)

	_, err := p.ValidateBasePage(ModeClause73, page)
	if !errors.Is(err, ErrUnsupported) {
		t.Error("wrong error:", err)
	}
}

func TestValidateBasePageCapabilityCheck(t *testing.T) {
	p := testPort(t, CapSpeed1G|CapSpeed10G, 1)
	page := SetBasePageAbility(0, Ability10GBaseKR|Ability40GBaseKR4)

	_, err := p.ValidateBasePage(ModeClause73, page)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatal("wrong error:", err)
	}
	if !strings.Contains(err.Error(), "40G-KR4") {
		t.Error("wrong ability named:", err)
	}
}

func TestValidateBasePageCheckOrder(t *testing.T) {
	// Both abilities exceed the port; the 1G check runs first.
	p := testPort(t, 0, 1)
	page := SetBasePageAbility(0, Ability1000BaseKX|Ability10GBaseKR)

	_, err := p.ValidateBasePage(ModeClause73, page)
	if err == nil || !strings.Contains(err.Error(), "1G-KX") {
		t.Error("wrong ability named:", err)
	}
}

func TestValidateBasePageKeepsOtherFields(t *testing.T) {
	p := testPort(t, CapSpeed10G, 1)
	page := SetBasePageAbility(0x4001, Ability10GBaseKR)

	got, err := p.ValidateBasePage(ModeClause73, page)
	if err != nil {
		t.Fatal(err)
	}
	if got != page {
		t.Errorf("got 0x%x, want 0x%x", got, page)
	}
}
