// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

// EPL autoneg register addressing.  Each EPL carries four lanes; the AN
// registers repeat per (epl, lane).
const (
	eplBase    = 0x0e8000
	eplStride  = 0x400
	laneStride = 0x80

	anImOffset    = 0x20 // AN_IM: interrupt mask
	an73CfgOffset = 0x28 // AN_73_CFG
)

func regAnIM(epl, lane int) uint32 {
	return eplBase + uint32(epl)*eplStride + uint32(lane)*laneStride +
		anImOffset
}

func regAn73Cfg(epl, lane int) uint32 {
	return eplBase + uint32(epl)*eplStride + uint32(lane)*laneStride +
		an73CfgOffset
}

// AN_73_CFG bits.
const (
	an73CfgIgnoreNonceMatch uint32 = 1 << 3
)

// AN_IP interrupt pending bits; AN_IM uses the same layout.
const (
	anIpAn73TransmitDisable uint32 = 1 << iota
	anIpAn73AbilityDetect
	anIpAn73AcknowledgeDetect
	anIpAn73CompleteAcknowledge
	anIpAn73NextPageWait
	anIpAn73AnGoodCheck
	anIpAn73AnGood
	anIpAn73ReceiveIdle
	anIpAn73MrPageRx
	anIpAn37AnEnable
	anIpAn37AnRestart
	anIpAn37AnDisableLinkOk
	anIpAn37AbilityDetect
	anIpAn37AcknowledgeDetect
	anIpAn37CompleteAcknowledge
	anIpAn37NextPageWait
	anIpAn37IdleDetect
	anIpAn37LinkOk
	anIpAn37MrPageRx
)

// Interrupt masks enabled per autoneg protocol.
const (
	An73IntMask = anIpAn73TransmitDisable |
		anIpAn73AbilityDetect |
		anIpAn73AcknowledgeDetect |
		anIpAn73CompleteAcknowledge |
		anIpAn73NextPageWait |
		anIpAn73AnGoodCheck |
		anIpAn73AnGood

	An37IntMask = anIpAn37AnEnable |
		anIpAn37AnRestart |
		anIpAn37AnDisableLinkOk |
		anIpAn37AbilityDetect |
		anIpAn37CompleteAcknowledge |
		anIpAn37NextPageWait |
		anIpAn37IdleDetect |
		anIpAn37LinkOk
)
