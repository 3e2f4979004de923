// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcvr

import (
	"fmt"
	"time"

	"github.com/platinasystems/i2c"
	"github.com/platinasystems/log"
)

const (
	moduleAddr = 0x50 // SFF-8472 A0h serial ID
	diagAddr   = 0x51 // SFF-8472 A2h diagnostics and control
	phyAddr    = 0x56 // copper module PHY

	eepromCacheSize = 96

	// SFF-8472 serial ID fields.
	eepromIdentifier   = 0
	eepromCompliance10 = 3
	eepromCompliance1  = 6
	eepromCableTech    = 8
	eepromLengthCopper = 18
	eepromCcBase       = 63
	eepromCcExt        = 95

	identifierSfp = 0x03

	compliance1000BaseT = 1 << 3
	cableTechPassive    = 1 << 2
	cableTechActive     = 1 << 3
)

// Type identifies the kind of module plugged into a port.
type Type int

const (
	TypeUnknown Type = iota
	TypeNotPresent
	Type1000BaseT
	TypeSfpLaser
	TypeSfpDac
	TypeQsfpLaser
	TypeQsfpDac
)

var typeNames = []string{
	TypeUnknown:    "unknown",
	TypeNotPresent: "not-present",
	Type1000BaseT:  "1000base-t",
	TypeSfpLaser:   "sfp-laser",
	TypeSfpDac:     "sfp-dac",
	TypeQsfpLaser:  "qsfp-laser",
	TypeQsfpDac:    "qsfp-dac",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// Bus is the SMBus access the Manager needs; *i2c.Bus satisfies it
// through the smbus wrapper.
type Bus interface {
	Open(index int) error
	Close() error
	ForceSlaveAddress(addr int) error
	Do(rw i2c.RW, command uint8, size i2c.SMBusSize, data *i2c.SMBusData) error
}

type smbus struct{ i2c.Bus }

// selectMux steers the port's i2c mux channel to the module.
func (m *Manager) selectMux(ps *portState) error {
	if ps.cfg.MuxAddr == 0 {
		return nil
	}
	if err := m.bus.Open(ps.cfg.MuxBus); err != nil {
		return err
	}
	defer m.bus.Close()
	if err := m.bus.ForceSlaveAddress(ps.cfg.MuxAddr); err != nil {
		return err
	}
	var data i2c.SMBusData
	data[0] = byte(ps.cfg.MuxValue)
	return m.bus.Do(i2c.Write, 0, i2c.ByteData, &data)
}

func (m *Manager) memRead(ps *portState, addr int, offset uint8, buf []byte) error {
	if err := m.selectMux(ps); err != nil {
		return err
	}
	if err := m.bus.Open(ps.cfg.Bus); err != nil {
		return err
	}
	defer m.bus.Close()
	if err := m.bus.ForceSlaveAddress(addr); err != nil {
		return err
	}
	for n := 0; n < len(buf); n += 32 {
		var data i2c.SMBusData
		c := len(buf) - n
		if c > 32 {
			c = 32
		}
		data[0] = byte(c)
		err := m.bus.Do(i2c.Read, offset+uint8(n), i2c.I2CBlockData,
			&data)
		if err != nil {
			return err
		}
		copy(buf[n:n+c], data[1:1+c])
	}
	return nil
}

func (m *Manager) memWrite(ps *portState, addr int, offset uint8, b byte) error {
	if err := m.selectMux(ps); err != nil {
		return err
	}
	if err := m.bus.Open(ps.cfg.Bus); err != nil {
		return err
	}
	defer m.bus.Close()
	if err := m.bus.ForceSlaveAddress(addr); err != nil {
		return err
	}
	var data i2c.SMBusData
	data[0] = b
	return m.bus.Do(i2c.Write, offset, i2c.ByteData, &data)
}

// eepromChecksumOk verifies a SFF-8472 block checksum, the low byte of
// the sum of bytes [first, last).
func eepromChecksumOk(eeprom []byte, first, last, cc int) bool {
	var sum byte
	for i := first; i < last; i++ {
		sum += eeprom[i]
	}
	return sum == eeprom[cc]
}

// readAndValidateEeprom reads the module serial ID page and validates
// its checksums.  A failed read schedules bounded retries, since some
// modules answer late after insertion.
func (m *Manager) readAndValidateEeprom(ps *portState, isRetry bool) error {
	err := m.memRead(ps, moduleAddr, 0, ps.eeprom[:])
	if err == nil {
		ps.eepromBaseValid = eepromChecksumOk(ps.eeprom[:],
			0, eepromCcBase, eepromCcBase)
		ps.eepromExtValid = eepromChecksumOk(ps.eeprom[:],
			eepromCcBase+1, eepromCcExt, eepromCcExt)
		if !ps.eepromBaseValid {
			err = fmt.Errorf("xcvr: port %d module EEPROM base checksum mismatch",
				ps.cfg.Port)
		}
	}
	if err != nil {
		if !isRetry {
			ps.eepromReadRetries = maxEepromReadRetry
			ps.bo.Reset()
			ps.retryAfter = time.Now().Add(ps.bo.Duration())
		}
		return err
	}
	m.classify(ps)
	if Debug {
		log.Printf("xcvr: port %d module type %s cable length %d",
			ps.cfg.Port, ps.typ, ps.cableLength)
	}
	return nil
}

// classify derives the module type and cable length from the validated
// serial ID page.
func (m *Manager) classify(ps *portState) {
	ps.typ = TypeUnknown
	ps.cableLength = 0
	if !ps.eepromBaseValid {
		return
	}
	e := ps.eeprom[:]
	qsfp := ps.cfg.Intf != IntfSfpp
	dac := e[eepromCableTech]&(cableTechPassive|cableTechActive) != 0
	switch {
	case qsfp && dac:
		ps.typ = TypeQsfpDac
	case qsfp:
		ps.typ = TypeQsfpLaser
	case e[eepromCompliance1]&compliance1000BaseT != 0:
		ps.typ = Type1000BaseT
	case dac:
		ps.typ = TypeSfpDac
	default:
		ps.typ = TypeSfpLaser
	}
	if dac || ps.typ == Type1000BaseT {
		ps.cableLength = int(e[eepromLengthCopper])
	}
}

// isDualRate reports whether the module advertises both a 10G and a 1G
// compliance code, so the port's rate select lines must be driven.
func (m *Manager) isDualRate(ps *portState) bool {
	if !ps.eepromBaseValid {
		return false
	}
	return ps.eeprom[eepromCompliance10]&0xf0 != 0 &&
		ps.eeprom[eepromCompliance1]&0x0f != 0
}

func (m *Manager) is1000BaseT(ps *portState) bool {
	return ps.eepromBaseValid &&
		ps.eeprom[eepromCompliance1]&compliance1000BaseT != 0
}

const (
	phyRegBmcr = 0

	phyBmcrAnRestart = 1 << 9
	phyBmcrAnEnable  = 1 << 12
)

// phyEnableAutoNeg flips the autoneg enable of a copper module's PHY and
// restarts negotiation when enabling.
func (m *Manager) phyEnableAutoNeg(ps *portState, enable bool) error {
	if err := m.selectMux(ps); err != nil {
		return err
	}
	if err := m.bus.Open(ps.cfg.Bus); err != nil {
		return err
	}
	defer m.bus.Close()
	if err := m.bus.ForceSlaveAddress(phyAddr); err != nil {
		return err
	}
	var data i2c.SMBusData
	if err := m.bus.Do(i2c.Read, phyRegBmcr, i2c.WordData, &data); err != nil {
		return err
	}
	// The PHY registers are big endian on the wire, SMBus words are
	// little endian.
	bmcr := uint16(data[0])<<8 | uint16(data[1])
	if enable {
		bmcr |= phyBmcrAnEnable | phyBmcrAnRestart
	} else {
		bmcr &^= phyBmcrAnEnable
	}
	data[0] = byte(bmcr >> 8)
	data[1] = byte(bmcr)
	return m.bus.Do(i2c.Write, phyRegBmcr, i2c.WordData, &data)
}
