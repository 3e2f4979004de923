// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"github.com/platinasystems/log"
)

// EEE capability bits of the EEE technology message next page.  The
// unformatted field starts at D16; 1000BASE-KX EEE and 10GBASE-KR EEE sit
// at the 802.3az register bit positions 4 and 6.
const (
	eee1000BaseKX uint64 = 1 << 20
	eee10GBaseKR  uint64 = 1 << 22
)

// VerifyEeeNegotiation scans the partner's next pages for the EEE
// technology message and records on the port whether EEE is mutually
// supported for the negotiated ethernet mode.  Only Clause 73 carries EEE
// next pages; in any other mode the result is false.
func (p *Port) VerifyEeeNegotiation(ethMode EthMode) {
	p.negotiatedEee = false

	pages := p.PartnerNextPages.Pages()
	for i, rxPage := range pages {
		if Debug {
			log.Printf("an: port %d mode %s eth mode %s rx page #%d 0x%016x",
				p.ID, p.Mode, ethMode, i, rxPage)
		}
		if NextPageMessageCode(rxPage) != nextPageEeeMsgCode ||
			p.Mode != ModeClause73 {
			continue
		}
		if (ethMode == EthMode10GBaseKR && rxPage&eee10GBaseKR != 0) ||
			(ethMode == EthMode1000BaseKX && rxPage&eee1000BaseKX != 0) {
			p.negotiatedEee = true
			break
		}
	}

	if Debug {
		supported := "IS NOT"
		if p.negotiatedEee {
			supported = "IS"
		}
		log.Printf("an: port %d mode %s -- EEE %s supported",
			p.ID, p.Mode, supported)
	}
}
