// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

// Package ads868x provides a driver for the TI ADS868x family of SPI
// successive approximation ADCs.
//
// The driver configures the input range and reference of the device, then
// returns raw conversion codes or voltages scaled to the configured range.
//
// Example of use:
//
//	c, err := spi.Default.ConnectCS(port, csPin)
//	if err != nil {
//		return err
//	}
//	adc, err := ads868x.New(c, ads868x.Bipolar2p5, ads868x.Internal, ads868x.InternalVref)
//	if err != nil {
//		return err
//	}
//	v, err := adc.ReadVoltage()
//
// The device returns the result of each command in the transfer following
// it, so register reads require two transfers, and each conversion read
// returns the code latched by the previous transfer.
package ads868x

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Transport performs full duplex transfers with the ADC.
//
// Each Tx asserts the chip select, shifts out w while shifting in r, and
// deasserts the chip select before returning.
// periph.io spi.Conn satisfies this interface.
type Transport interface {
	Tx(w, r []byte) error
}

// Deselector is implemented by transports that control the chip select line
// directly, so it can be driven idle before the device is configured.
type Deselector interface {
	Deselect() error
}

const (
	// DefaultSettle is the delay after writing a register before it is
	// read back.
	DefaultSettle = 10 * time.Millisecond

	// DefaultMaxAttempts is the number of write/verify cycles attempted
	// while configuring the range before giving up.
	DefaultMaxAttempts = 10
)

var (
	// ErrReferenceVoltage indicates the reference voltage is inconsistent
	// with the reference source.
	ErrReferenceVoltage = errors.New("invalid reference voltage")

	// ErrInvalidRange indicates a range outside the supported set.
	ErrInvalidRange = errors.New("invalid range")

	// ErrNotConverged indicates the device never acknowledged the range
	// configuration.
	ErrNotConverged = errors.New("range configuration not acknowledged")

	// ErrInvalidRegister indicates a register address outside the supported
	// set.
	ErrInvalidRegister = errors.New("invalid register")

	// ErrInvalidCommand indicates a command outside the supported set.
	ErrInvalidCommand = errors.New("invalid command")
)

// Device is an ADS868x that has been configured and is ready for reads.
type Device struct {
	mu          sync.Mutex
	t           Transport
	rng         Range
	ref         Reference
	vref        float64
	settle      time.Duration
	maxAttempts int
	log         zerolog.Logger
}

// Option modifies the construction of a Device.
type Option func(*Device)

// WithSettle sets the delay between writing and verifying the range.
func WithSettle(d time.Duration) Option {
	return func(adc *Device) {
		adc.settle = d
	}
}

// WithMaxAttempts sets the number of write/verify cycles attempted before
// New gives up with ErrNotConverged.
func WithMaxAttempts(n int) Option {
	return func(adc *Device) {
		if n > 0 {
			adc.maxAttempts = n
		}
	}
}

// WithLogger sets the logger used to report the configuration handshake.
func WithLogger(l zerolog.Logger) Option {
	return func(adc *Device) {
		adc.log = l
	}
}

// New configures the ADC range and reference, and verifies the configuration
// by reading it back.
//
// The vref must be InternalVref if the Internal reference is selected.
// Invalid configurations are rejected before the transport is touched.
// Errors from the transport are returned unaltered.
func New(t Transport, rng Range, ref Reference, vref float64, options ...Option) (*Device, error) {
	if err := checkConfig(rng, ref, vref); err != nil {
		return nil, err
	}
	adc := &Device{
		t:           t,
		rng:         rng,
		ref:         ref,
		vref:        vref,
		settle:      DefaultSettle,
		maxAttempts: DefaultMaxAttempts,
		log:         zerolog.Nop(),
	}
	for _, option := range options {
		option(adc)
	}
	if d, ok := t.(Deselector); ok {
		if err := d.Deselect(); err != nil {
			return nil, err
		}
	}
	if err := adc.configure(); err != nil {
		return nil, err
	}
	return adc, nil
}

func checkConfig(rng Range, ref Reference, vref float64) error {
	if !rng.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRange, rng)
	}
	switch ref {
	case Internal:
		if vref != InternalVref {
			return fmt.Errorf("%w: internal reference is %gV, not %gV",
				ErrReferenceVoltage, InternalVref, vref)
		}
	case External:
		if math.IsNaN(vref) || math.IsInf(vref, 0) || vref <= 0 {
			return fmt.Errorf("%w: %gV", ErrReferenceVoltage, vref)
		}
	default:
		return fmt.Errorf("%w: unknown %s", ErrReferenceVoltage, ref)
	}
	return nil
}

// configure writes the range select register until it reads back the
// requested value.
func (adc *Device) configure() error {
	want := uint16(adc.rng) | uint16(adc.ref)
	var got uint16
	for attempt := 1; attempt <= adc.maxAttempts; attempt++ {
		if _, err := adc.tx(Write, RangeSel, want); err != nil {
			return err
		}
		time.Sleep(adc.settle)
		var err error
		got, err = adc.readRegister(RangeSel)
		if err != nil {
			return err
		}
		time.Sleep(adc.settle)
		if got == want {
			adc.log.Info().
				Stringer("range", adc.rng).
				Stringer("reference", adc.ref).
				Float64("vref", adc.vref).
				Int("attempts", attempt).
				Msg("range configured")
			// leave the next response holding a conversion
			_, err = adc.tx(Nop, NoOp, 0)
			return err
		}
		adc.log.Debug().
			Int("attempt", attempt).
			Uint16("want", want).
			Uint16("got", got).
			Msg("range not acknowledged")
	}
	return fmt.Errorf("%w: after %d attempts, want 0x%04x, got 0x%04x",
		ErrNotConverged, adc.maxAttempts, want, got)
}

func checkRegister(reg Register) error {
	if !reg.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRegister, reg)
	}
	return nil
}

func (adc *Device) tx(cmd Command, reg Register, data uint16) (uint16, error) {
	w := Encode(cmd, reg, data)
	var r Frame
	if err := adc.t.Tx(w[:], r[:]); err != nil {
		return 0, err
	}
	return Decode(r), nil
}

// readRegister requests the register then collects it from the following
// transfer.
func (adc *Device) readRegister(reg Register) (uint16, error) {
	if _, err := adc.tx(ReadHWord, reg, 0); err != nil {
		return 0, err
	}
	return adc.tx(Nop, NoOp, 0)
}

// Command sends a single command frame to the device.
//
// The value returned is the response to the previous command, not this one.
//
// Commands that modify RangeSel are rejected with ErrInvalidRange as the
// range is fixed by New.
func (adc *Device) Command(cmd Command, reg Register, data uint16) (uint16, error) {
	if !cmd.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCommand, cmd)
	}
	if err := checkRegister(reg); err != nil {
		return 0, err
	}
	if reg == RangeSel && cmd.modifies() {
		return 0, fmt.Errorf("%w: %s is set by New", ErrInvalidRange, reg)
	}
	adc.mu.Lock()
	defer adc.mu.Unlock()
	return adc.tx(cmd, reg, data)
}

// ReadRegister returns the 16 bit content of a register.
func (adc *Device) ReadRegister(reg Register) (uint16, error) {
	if err := checkRegister(reg); err != nil {
		return 0, err
	}
	adc.mu.Lock()
	defer adc.mu.Unlock()
	return adc.readRegister(reg)
}

// WriteRegister writes a 16 bit value to a register.
//
// RangeSel cannot be written as the range is fixed by New.
func (adc *Device) WriteRegister(reg Register, v uint16) error {
	if err := checkRegister(reg); err != nil {
		return err
	}
	if reg == RangeSel {
		return fmt.Errorf("%w: %s is set by New", ErrInvalidRange, reg)
	}
	adc.mu.Lock()
	defer adc.mu.Unlock()
	_, err := adc.tx(Write, reg, v)
	return err
}

// ReadRaw returns the code from the most recent conversion.
func (adc *Device) ReadRaw() (uint16, error) {
	adc.mu.Lock()
	defer adc.mu.Unlock()
	return adc.tx(Nop, NoOp, 0)
}

// ReadVoltage returns the most recent conversion scaled to volts.
func (adc *Device) ReadVoltage() (float64, error) {
	code, err := adc.ReadRaw()
	if err != nil {
		return 0, err
	}
	return Convert(code, adc.rng, adc.vref)
}

// Range returns the configured input range.
func (adc *Device) Range() Range {
	return adc.rng
}

// Reference returns the configured reference source.
func (adc *Device) Reference() Reference {
	return adc.ref
}

// Vref returns the reference voltage used to scale conversions.
func (adc *Device) Vref() float64 {
	return adc.vref
}
