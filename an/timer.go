// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package an

import (
	"fmt"

	"github.com/platinasystems/log"
)

const (
	// Link fail inhibit timer defaults, milliseconds.
	LinkInhibitTimerMs   = 500
	LinkInhibitTimerKxMs = 50

	// Legal link fail inhibit range.  1..511 keeps the hardware at 1 ms
	// granularity; the out-of-spec range up to 1023 falls into the 10 ms
	// timescale, so 512..1023 round down to a multiple of 10.
	linkInhibitTimeoutMax   = 511
	linkInhibitTimeoutDebug = 1023
)

// TimeScale quantizes a timeout to the hardware timer's {timescale,
// count} representation.  Scales run 2..7 with a tick of 10^(scale-2)
// time units; the first scale whose count fits under max wins.  A timeout
// too large even for scale 7 saturates rather than fails: the last
// computed pair is returned.  The third result is the timeout actually
// achieved, in the input's units.
func TimeScale(timeoutUsec, max uint) (timeScale, count, actual uint) {
	ts := uint(1)
	for timeScale = 2; timeScale <= 7; timeScale++ {
		count = timeoutUsec / ts
		ts *= 10
		if count < max {
			return timeScale, count, ts / 10 * count
		}
	}
	timeScale-- // saturated at 7
	return timeScale, count, ts / 10 * count
}

func (p *Port) linkInhibitMax() uint {
	if p.TimerAllowOutSpec {
		return linkInhibitTimeoutDebug
	}
	return linkInhibitTimeoutMax
}

// SetLinkInhibitTimer sets the Clause 73 link fail inhibit timer in
// milliseconds for the KR class modes.  Zero restores the default.  The
// stored value may differ from what the hardware achieves once quantized.
func (p *Port) SetLinkInhibitTimer(timeout uint) error {
	if timeout == 0 {
		p.LinkInhibitTimer = LinkInhibitTimerMs
		return nil
	}
	if max := p.linkInhibitMax(); timeout > max || timeout < 1 {
		if Debug {
			log.Printf("an: port %d invalid link timer timeout %d",
				p.ID, timeout)
		}
		return fmt.Errorf("%w: link inhibit timeout %d out of range 1..%d",
			ErrInvalidArgument, timeout, max)
	}
	p.LinkInhibitTimer = timeout
	return nil
}

// SetLinkInhibitTimerKx is SetLinkInhibitTimer for the KX/KX4 modes.
func (p *Port) SetLinkInhibitTimerKx(timeout uint) error {
	if timeout == 0 {
		p.LinkInhibitTimerKx = LinkInhibitTimerKxMs
		return nil
	}
	if max := p.linkInhibitMax(); timeout > max || timeout < 1 {
		if Debug {
			log.Printf("an: port %d invalid kx link timer timeout %d",
				p.ID, timeout)
		}
		return fmt.Errorf("%w: link inhibit timeout %d out of range 1..%d",
			ErrInvalidArgument, timeout, max)
	}
	p.LinkInhibitTimerKx = timeout
	return nil
}
