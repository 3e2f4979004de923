// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"fmt"

	"github.com/platinasystems/log"
)

// MaxNumNextPages bounds the next page chain of one negotiation session.
const MaxNumNextPages = 8

// Next page message codes (IEEE 802.3 annex 28C).
const (
	// Organizationally unique identifier tagged message; an
	// unformatted page follows.
	nextPageOuiMsgCode = 0x5
	// EEE technology message.
	nextPageEeeMsgCode = 0xA
)

// Message type carried in the low 9 bits of the unformatted page that
// follows an OUI tagged message.
const extTechAbilityMsgType = 0x3

// NextPageChain is the ordered, bounded list of next pages advertised (or
// received) during one negotiation session.  The backing storage is
// allocated on first Add and dropped on Reset.
type NextPageChain struct {
	pages []uint64
}

// Pages exposes the chain for read-only scanning.
func (c *NextPageChain) Pages() []uint64 { return c.pages }

// NumPages is the current chain length.
func (c *NextPageChain) NumPages() int { return len(c.pages) }

// Reset empties the chain.  Always called on (re)configuration; a chain
// never survives a negotiation restart.
func (c *NextPageChain) Reset() { c.pages = nil }

// Add appends a page to the chain.  When an earlier page exists its NP
// ("more pages follow") bit is set; the page just appended keeps NP clear
// until a further page follows it.
func (c *NextPageChain) Add(page uint64) error {
	if c.pages == nil {
		c.pages = make([]uint64, 0, MaxNumNextPages)
	}
	if len(c.pages) >= MaxNumNextPages {
		return fmt.Errorf("%w: next page chain full", ErrNoFreeResources)
	}
	if n := len(c.pages); n > 0 {
		c.pages[n-1] |= 1 << pageBitNextPage
	}
	c.pages = append(c.pages, page)
	return nil
}

// AddNextPage appends a page to the port's transmit next page chain.
func (p *Port) AddNextPage(page uint64) error {
	if Debug {
		log.Printf("an: port %d add next page #%d 0x%016x",
			p.ID, p.NextPages.NumPages(), page)
	}
	return p.NextPages.Add(page)
}

// NextPageExtTechAbilityIndex scans a next page chain for the 25G
// extended technology ability message: an OUI tagged page whose follower
// carries message type 3 and reconstructs to the port's expected OUI.  It
// returns the index of the follower (the ability page).  dbg tags log
// lines with the chain's direction ("Tx" or "Rx").
//
// The 24 bit OUI is scrambled across the two pages; the reconstruction
// order below is the wire format.
func (p *Port) NextPageExtTechAbilityIndex(pages []uint64, dbg string) (int, error) {
	index := -1
	err := error(ErrNotFound)

	for pageNum := 0; pageNum < len(pages); pageNum++ {
		pageA := pages[pageNum]
		if NextPageMessageCode(pageA) != nextPageOuiMsgCode {
			continue
		}
		if pageNum+1 >= len(pages) {
			// Trailing OUI anchor with no unformatted follower;
			// skipped, not failed.
			if Debug {
				log.Printf("an: sw %d port %d no unformatted next page",
					p.sw.ID, p.ID)
			}
			continue
		}
		pageB := pages[pageNum+1]
		msgType := pageField(pageB, 0, 9)
		if Debug {
			log.Printf("an: sw %d port %d oui %s next page #%d=0x%016x #%d=0x%016x type=0x%x",
				p.sw.ID, p.ID, dbg, pageNum, pageA, pageNum+1, pageB, msgType)
		}
		if msgType != extTechAbilityMsgType {
			continue
		}

		var oui uint32
		for cnt := uint(0); cnt < 2; cnt++ {
			oui |= uint32(pageBit(pageB, 9+cnt)) << cnt
		}
		for cnt := uint(0); cnt < 11; cnt++ {
			oui |= uint32(pageBit(pageA, 32+cnt)) << (cnt + 2)
		}
		for cnt := uint(0); cnt < 11; cnt++ {
			oui |= uint32(pageBit(pageA, 16+cnt)) << (cnt + 13)
		}

		if oui != p.NextPageOui {
			if Debug {
				log.Printf("an: sw %d port %d %s local oui 0x%08x received oui 0x%08x (not recognized)",
					p.sw.ID, p.ID, dbg, p.NextPageOui, oui)
			}
			continue
		}
		index = pageNum + 1
		err = nil
	}

	if index < 0 {
		return -1, err
	}
	return index, nil
}

// is25GConfiguredInNextPage reports whether the chain advertises a 25G
// rate through the extended technology ability page.  A missing page is a
// negative result, not an error.
func (p *Port) is25GConfiguredInNextPage(c *NextPageChain) (bool, error) {
	index, err := p.NextPageExtTechAbilityIndex(c.Pages(), "Tx")
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	page := c.Pages()[index]
	return pageBit(page, 21) != 0 || pageBit(page, 20) != 0, nil
}
