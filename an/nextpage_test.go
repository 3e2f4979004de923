// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"errors"
	"testing"
)

func TestNextPageChainAdd(t *testing.T) {
	var c NextPageChain

	for _, page := range []uint64{0x1005, 0x2003, 0x3003} {
		if err := c.Add(page); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := c.NumPages(), 3; got != want {
		t.Fatalf("got %d pages, want %d", got, want)
	}
	pages := c.Pages()
	for i, page := range pages {
		np := page&(1<<pageBitNextPage) != 0
		if got, want := np, i < len(pages)-1; got != want {
			t.Errorf("page %d NP: got %t, want %t", i, got, want)
		}
	}
}

func TestNextPageChainFull(t *testing.T) {
	var c NextPageChain

	for i := 0; i < MaxNumNextPages; i++ {
		if err := c.Add(uint64(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Add(0xff); !errors.Is(err, ErrNoFreeResources) {
		t.Error("wrong error:", err)
	}
	c.Reset()
	if got, want := c.NumPages(), 0; got != want {
		t.Errorf("after reset: got %d pages, want %d", got, want)
	}
	if err := c.Add(1); err != nil {
		t.Error("add after reset:", err)
	}
}

// ouiPages builds the OUI tagged message page and its unformatted
// follower carrying the given OUI and 25G ability bits.
func ouiPages(oui uint32, ability uint64) (pageA, pageB uint64) {
	pageA = nextPageOuiMsgCode
	pageB = extTechAbilityMsgType | ability
	for cnt := uint(0); cnt < 2; cnt++ {
		pageB |= uint64(oui>>cnt&1) << (9 + cnt)
	}
	for cnt := uint(0); cnt < 11; cnt++ {
		pageA |= uint64(oui>>(cnt+2)&1) << (32 + cnt)
	}
	for cnt := uint(0); cnt < 11; cnt++ {
		pageA |= uint64(oui>>(cnt+13)&1) << (16 + cnt)
	}
	return
}

func TestNextPageExtTechAbilityIndex(t *testing.T) {
	p := testPort(t, CapSpeed25G, 1)
	p.NextPageOui = 0xabcdef

	pageA, pageB := ouiPages(0xabcdef, 1<<20)
	pages := []uint64{0x200a, pageA, pageB}

	index, err := p.NextPageExtTechAbilityIndex(pages, "Tx")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := index, 2; got != want {
		t.Errorf("got index %d, want %d", got, want)
	}
}

func TestNextPageExtTechAbilityOuiMismatch(t *testing.T) {
	p := testPort(t, CapSpeed25G, 1)
	p.NextPageOui = 0x123456

	pageA, pageB := ouiPages(0xabcdef, 1<<20)
	_, err := p.NextPageExtTechAbilityIndex([]uint64{pageA, pageB}, "Rx")
	if !errors.Is(err, ErrNotFound) {
		t.Error("wrong error:", err)
	}
}

func TestNextPageExtTechAbilityTrailingAnchor(t *testing.T) {
	p := testPort(t, CapSpeed25G, 1)
	p.NextPageOui = 0xabcdef

	// An OUI anchor with no follower page is skipped, not an error.
	pageA, _ := ouiPages(0xabcdef, 0)
	_, err := p.NextPageExtTechAbilityIndex([]uint64{pageA}, "Rx")
	if !errors.Is(err, ErrNotFound) {
		t.Error("wrong error:", err)
	}
}

func TestNextPageExtTechAbilityLastMatchWins(t *testing.T) {
	p := testPort(t, CapSpeed25G, 1)
	p.NextPageOui = 0xabcdef

	pageA, pageB := ouiPages(0xabcdef, 0)
	pages := []uint64{pageA, pageB, pageA, pageB}

	index, err := p.NextPageExtTechAbilityIndex(pages, "Rx")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := index, 3; got != want {
		t.Errorf("got index %d, want %d", got, want)
	}
}

func Test25GConfiguredInNextPage(t *testing.T) {
	p := testPort(t, CapSpeed25G, 1)
	p.NextPageOui = 0xabcdef

	for _, x := range []struct {
		ability uint64
		want    bool
	}{
		{0, false},
		{1 << 20, true},
		{1 << 21, true},
		{1<<20 | 1<<21, true},
	} {
		var c NextPageChain
		pageA, pageB := ouiPages(0xabcdef, x.ability)
		c.Add(pageA)
		c.Add(pageB)

		got, err := p.is25GConfiguredInNextPage(&c)
		if err != nil {
			t.Fatal(err)
		}
		if got != x.want {
			t.Errorf("ability 0x%x: got %t, want %t",
				x.ability, got, x.want)
		}
	}

	// An empty chain is a negative result, not an error.
	var c NextPageChain
	got, err := p.is25GConfiguredInNextPage(&c)
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("empty chain: got true, want false")
	}
}
