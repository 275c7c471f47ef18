// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

package spi

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ErrLength indicates the read and write buffers differ in length.
var ErrLength = errors.New("read and write buffers differ in length")

// SPI is a mode 0, MSB first, bit bashed SPI using 4 GPIO lines.
//
// The lines may be periph.io pins or gpiomem lines.
// It is not related to the SPI device drivers provided by Linux.
type SPI struct {
	mu sync.Mutex
	// time between clock edges (i.e. half the cycle time)
	tclk time.Duration
	sclk Output
	ssz  Output
	mosi Output
	miso Input
}

// Option specifies a construction option for the SPI.
type Option func(*SPI)

// WithTclk sets the clock period for the SPI.
//
// Note that this is the half-cycle period.
func WithTclk(tclk time.Duration) Option {
	return func(s *SPI) {
		s.tclk = tclk
	}
}

// New creates a SPI.
//
// The clock is driven low and the chip select high.
func New(sclk, ssz, mosi Output, miso Input, options ...Option) (*SPI, error) {
	s := &SPI{
		// default to 1MHz full cycle.
		tclk: 500 * time.Nanosecond,
		sclk: sclk,
		ssz:  ssz,
		mosi: mosi,
		miso: miso,
	}
	for _, option := range options {
		option(s)
	}
	// hold SPI reset until needed...
	if err := s.sclk.Out(gpio.Low); err != nil {
		return nil, err
	}
	if err := s.Deselect(); err != nil {
		return nil, err
	}
	return s, nil
}

// Deselect drives the chip select idle.
func (s *SPI) Deselect() error {
	return s.ssz.Out(gpio.High)
}

// Tx clocks out w while clocking in r, with the chip select asserted for
// the duration of the transfer.
func (s *SPI) Tx(w, r []byte) error {
	if len(w) != len(r) {
		return ErrLength
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ssz.Out(gpio.Low); err != nil {
		return err
	}
	err := s.transfer(w, r)
	if derr := s.Deselect(); err == nil {
		err = derr
	}
	return err
}

func (s *SPI) transfer(w, r []byte) error {
	for i, b := range w {
		var d byte
		for bit := 7; bit >= 0; bit-- {
			v, err := s.clock(gpio.Level(b>>uint(bit)&0x01 == 0x01))
			if err != nil {
				return err
			}
			d = d << 1
			if v {
				d = d | 0x01
			}
		}
		r[i] = d
	}
	return nil
}

// clock shifts one bit in each direction.
//
// Starts and ends with the clock low. The device changes Miso on the falling
// edge, and samples Mosi on the rising edge.
func (s *SPI) clock(out gpio.Level) (gpio.Level, error) {
	if err := s.mosi.Out(out); err != nil {
		return gpio.Low, err
	}
	time.Sleep(s.tclk)
	in := s.miso.Read()
	if err := s.sclk.Out(gpio.High); err != nil {
		return gpio.Low, err
	}
	time.Sleep(s.tclk)
	return in, s.sclk.Out(gpio.Low)
}
