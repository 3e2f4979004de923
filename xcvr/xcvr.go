// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcvr supervises the SFP+/QSFP transceivers of an FM10000
// switch: module presence, EEPROM identification, rate selection and
// 1000BASE-T PHY autoneg toggling.  It consumes the autoneg engine's
// per-port queries and publishes per-port transceiver state to redis.
package xcvr

import (
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/gpio"
	"github.com/platinasystems/log"
	"github.com/platinasystems/redis/publisher"

	"github.com/platinasystems/fm10k/an"
)

// Debug enables verbose module state logging.
var Debug bool

const (
	maxEepromReadRetry = 4
	maxConfigRetry     = 4

	defaultPollPeriod = time.Second
)

// IntfType is the physical connector wired to a port.
type IntfType int

const (
	IntfNone IntfType = iota
	IntfSfpp
	IntfQsfpLane0
	IntfQsfpLane1
	IntfQsfpLane2
	IntfQsfpLane3
)

// PortConfig is the static platform wiring of one front panel port.
type PortConfig struct {
	Port int
	Intf IntfType

	// I2c addressing of the module's memory map, behind an optional
	// mux channel.
	Bus      int
	Addr     int
	MuxBus   int
	MuxAddr  int
	MuxValue int

	// Gpio pin names, resolved through gpio.Pins.
	PresentPin string
	IntrPin    string
}

// Config configures a Manager for one switch.
type Config struct {
	Switch     *an.Switch
	Ports      []PortConfig
	PollPeriod time.Duration
}

type portState struct {
	cfg PortConfig

	present   bool
	disabled  bool
	anEnabled bool
	ethMode   an.EthMode

	eeprom          [eepromCacheSize]byte
	eepromBaseValid bool
	eepromExtValid  bool
	typ             Type
	cableLength     int

	eepromReadRetries int
	configRetries     int
	retryAfter        time.Time
	bo                *backoff.Backoff
}

// pub is the publisher.Publisher surface the manager writes through.
type pub interface {
	Print(a ...interface{}) (int, error)
}

// Manager runs the per-switch transceiver supervision loop.
type Manager struct {
	cfg Config
	bus Bus
	pub pub

	// mu is the mgmt switch lock; the poll loop and the notification
	// entry points serialize on it.
	mu      sync.Mutex
	enabled bool
	pending bool
	force   bool

	ports []*portState

	stop chan struct{}
	wake chan struct{}
	intr chan struct{}
	done chan struct{}
}

// New builds a Manager.  Start must be called to run it.
func New(cfg Config, bus Bus) (*Manager, error) {
	if cfg.Switch == nil {
		return nil, fmt.Errorf("xcvr: nil switch")
	}
	if bus == nil {
		bus = new(smbus)
	}
	pub, err := publisher.New()
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:  cfg,
		bus:  bus,
		pub:  pub,
		stop: make(chan struct{}),
		wake: make(chan struct{}, 1),
		intr: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, pc := range cfg.Ports {
		m.ports = append(m.ports, &portState{
			cfg: pc,
			bo: &backoff.Backoff{
				Min:    50 * time.Millisecond,
				Max:    time.Second,
				Factor: 2,
			},
		})
	}
	return m, nil
}

// Start runs the supervision loop until Stop.
func (m *Manager) Start() {
	go m.loop()
}

func (m *Manager) Stop() {
	close(m.stop)
	<-m.done
}

// Enable configures the per-port presence and interrupt gpio pins and
// releases the loop to touch hardware; called once the switch is brought
// up.  The first pass after Enable publishes every port's state, changed
// or not.
func (m *Manager) Enable() {
	m.mu.Lock()
	for _, ps := range m.ports {
		for _, name := range []string{ps.cfg.PresentPin, ps.cfg.IntrPin} {
			if name == "" {
				continue
			}
			pin, found := gpio.Pins[name]
			if !found {
				log.Printf("xcvr: pin %s not found", name)
				continue
			}
			if err := pin.SetDirection(); err != nil {
				log.Printf("xcvr: pin %s set direction: %v",
					name, err)
			}
		}
	}
	m.enabled = true
	m.force = true
	m.mu.Unlock()
	m.Wake()
}

// Wake schedules an immediate polling pass.
func (m *Manager) Wake() {
	m.mu.Lock()
	m.pending = true
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// SignalInterrupt is called from the platform interrupt path when the
// module GPIO interrupt fires.
func (m *Manager) SignalInterrupt() {
	select {
	case m.intr <- struct{}{}:
	default:
	}
}

func (m *Manager) loop() {
	defer close(m.done)

	period := m.cfg.PollPeriod
	if period == 0 {
		period = defaultPollPeriod
	}
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		interrupt := false
		select {
		case <-m.stop:
			return
		case <-m.intr:
			interrupt = true
		case <-m.wake:
		case <-t.C:
		}

		m.mu.Lock()
		if !m.enabled {
			m.mu.Unlock()
			continue
		}
		force := m.force
		m.force = false
		if !interrupt || m.pending {
			m.pending = false
			m.retryEepromRead()
			m.retryConfig()
		}
		m.updateState(force)
		m.mu.Unlock()
	}
}

func (m *Manager) portState(port int) *portState {
	for _, ps := range m.ports {
		if ps.cfg.Port == port {
			return ps
		}
	}
	return nil
}

func (m *Manager) presentPin(ps *portState) (bool, bool) {
	pin, found := gpio.Pins[ps.cfg.PresentPin]
	if !found {
		return false, false
	}
	v, err := pin.Value()
	if err != nil {
		return false, false
	}
	// Module present pins are active low.
	return !v, true
}

// updateState scans presence and brings newly inserted modules up: read
// and validate the EEPROM, then configure rate selection and PHY autoneg.
// With force set, every port's state is published whether it changed or
// not; Enable requests one forced pass so the initial state reaches
// redis.
func (m *Manager) updateState(force bool) {
	for _, ps := range m.ports {
		if ps.cfg.Intf != IntfSfpp && ps.cfg.Intf != IntfQsfpLane0 {
			continue
		}
		present, valid := m.presentPin(ps)
		if !valid {
			if force {
				m.publish(ps)
			}
			continue
		}
		changed := present != ps.present
		if changed {
			if Debug {
				log.Printf("xcvr: port %d module presence changed to %t",
					ps.cfg.Port, present)
			}
			ps.present = present
			ps.typ = TypeNotPresent
			ps.cableLength = 0
			ps.eepromBaseValid = false
			ps.eepromExtValid = false
			ps.eepromReadRetries = 0
			for i := range ps.eeprom {
				ps.eeprom[i] = 0xff
			}
			if present {
				if err := m.readAndValidateEeprom(ps, false); err == nil {
					m.configure(ps, maxConfigRetry)
				}
			}
		}
		if changed || force {
			m.publish(ps)
		}
	}
}

// retryEepromRead drives the bounded, backoff paced EEPROM re-reads for
// modules that did not answer on insertion.
func (m *Manager) retryEepromRead() {
	now := time.Now()
	for _, ps := range m.ports {
		if ps.eepromReadRetries == 0 || now.Before(ps.retryAfter) {
			continue
		}
		ps.eepromReadRetries--
		if err := m.readAndValidateEeprom(ps, true); err != nil {
			if ps.eepromReadRetries == 0 {
				log.Printf("xcvr: port %d reading module EEPROM failed",
					ps.cfg.Port)
			} else {
				ps.retryAfter = now.Add(ps.bo.Duration())
			}
			continue
		}
		if Debug {
			log.Printf("xcvr: port %d module EEPROM read after %d tries",
				ps.cfg.Port,
				maxEepromReadRetry-ps.eepromReadRetries)
		}
		ps.eepromReadRetries = 0
		ps.bo.Reset()
		m.configure(ps, maxConfigRetry)
		m.publish(ps)
	}
}

func (m *Manager) retryConfig() {
	for _, ps := range m.ports {
		if !ps.eepromBaseValid || ps.configRetries == 0 {
			continue
		}
		ps.configRetries--
		if ps.cfg.Intf != IntfSfpp {
			continue
		}
		if err := m.configureSfpp(ps); err != nil {
			if ps.configRetries == 0 {
				log.Printf("xcvr: failed to configure port %d SFP+ module: %v",
					ps.cfg.Port, err)
			}
			continue
		}
		ps.configRetries = 0
	}
}

func (m *Manager) configure(ps *portState, retries int) {
	if ps.cfg.Intf != IntfSfpp {
		return
	}
	if err := m.configureSfpp(ps); err != nil {
		ps.configRetries = retries - 1
		return
	}
	ps.configRetries = 0
}

// configureSfpp applies module configuration after insertion or mode
// change: force dual rate modules to the port's rate and align a copper
// module's PHY autoneg with the port's autoneg mode.
func (m *Manager) configureSfpp(ps *portState) error {
	port, err := m.cfg.Switch.Port(ps.cfg.Port)
	if err != nil {
		return err
	}
	if Debug {
		log.Printf("xcvr: port %d config dual-rate %t 1000base-t %t an %t",
			ps.cfg.Port, m.isDualRate(ps), m.is1000BaseT(ps),
			port.AutonegEnabled())
	}
	if ps.disabled {
		return nil
	}

	if m.isDualRate(ps) {
		// SFF-8472 table 3.17 rate select; some modules have
		// separate rx and tx rate controls, writing both is
		// harmless on those that don't.
		data := byte(0x8)
		if m.isPort1G(ps) {
			data = 0x0
		}
		if err := m.memWrite(ps, diagAddr, 110, data); err != nil {
			return err
		}
		if err := m.memWrite(ps, diagAddr, 118, data); err != nil {
			return err
		}
	}

	if m.is1000BaseT(ps) {
		enable := port.AutonegEnabled()
		if ps.anEnabled != enable {
			if err := m.phyEnableAutoNeg(ps, enable); err != nil {
				return err
			}
			ps.anEnabled = enable
			if Debug {
				log.Printf("xcvr: port %d 1000base-t autoneg %t",
					ps.cfg.Port, enable)
			}
		}
	}
	return nil
}

// isPort1G reports whether the port's ethernet mode runs at 1G or below.
func (m *Manager) isPort1G(ps *portState) bool {
	switch ps.ethMode {
	case an.EthModeDisabled, an.EthModeSGMII, an.EthMode1000BaseX,
		an.EthMode1000BaseKX:
		return true
	}
	return false
}

// NotifyEthModeChange records a port's new ethernet mode and schedules
// reconfiguration of a present SFP+ module.
func (m *Manager) NotifyEthModeChange(port int, mode an.EthMode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps := m.portState(port)
	if ps == nil {
		return
	}
	if Debug {
		log.Printf("xcvr: port %d mode change from %s to %s",
			port, ps.ethMode, mode)
	}
	ps.ethMode = mode
	if ps.cfg.Intf == IntfSfpp && ps.present {
		ps.configRetries = maxConfigRetry
		m.pending = true
		select {
		case m.wake <- struct{}{}:
		default:
		}
	}
}

// EnableXcvr gates module configuration of a port.  A disabled port is
// still presence polled and identified but never written to.
func (m *Manager) EnableXcvr(port int, enable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps := m.portState(port)
	if ps == nil {
		return fmt.Errorf("xcvr: invalid port %d", port)
	}
	ps.disabled = !enable
	if enable && ps.present {
		ps.configRetries = maxConfigRetry
		m.pending = true
		select {
		case m.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// ConfigAutoNeg schedules an autoneg reconfiguration of the port's SFP+
// module, after the autoneg mode attribute changed.
func (m *Manager) ConfigAutoNeg(port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps := m.portState(port)
	if ps == nil {
		return fmt.Errorf("xcvr: invalid port %d", port)
	}
	ps.configRetries = maxConfigRetry
	m.pending = true
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// TransceiverType returns the identified module type and cable length of
// a port.
func (m *Manager) TransceiverType(port int) (Type, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps := m.portState(port)
	if ps == nil {
		return TypeUnknown, 0, fmt.Errorf("xcvr: invalid port %d", port)
	}
	return ps.typ, ps.cableLength, nil
}

func (m *Manager) publish(ps *portState) {
	port, err := m.cfg.Switch.Port(ps.cfg.Port)
	if err != nil {
		return
	}
	k := fmt.Sprint("port.", ps.cfg.Port, ".xcvr.")
	m.pub.Print(k+"present: ", ps.present)
	m.pub.Print(k+"type: ", ps.typ)
	m.pub.Print(k+"cable.length: ", ps.cableLength)
	m.pub.Print(k+"eth.mode: ", port.NegotiatedEthMode())
	m.pub.Print(k+"eee: ", port.EeeNegotiated())
}

// Dump formats the mgmt state of a port for debug.
func (m *Manager) Dump(port int) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps := m.portState(port)
	if ps == nil {
		return fmt.Sprintf("invalid port %d\n", port)
	}
	return fmt.Sprintf("ethMode        : %s\n"+
		"disabled       : %t\n"+
		"anEnabled      : %t\n"+
		"transceiverType: %s\n"+
		"cableLength    : %d\n"+
		"present        : %t\n"+
		"eepromBaseValid: %t\n"+
		"eepromExtValid : %t\n",
		ps.ethMode, ps.disabled, ps.anEnabled, ps.typ,
		ps.cableLength, ps.present,
		ps.eepromBaseValid, ps.eepromExtValid)
}
