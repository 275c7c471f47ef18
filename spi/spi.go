// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

// Package spi provides transports connecting an ADS868x to a host SPI bus.
//
// Two transports are provided, a ChipSelect wrapping a hardware SPI
// connection with a GPIO driven chip select, and a bit bashed SPI using
// four GPIO lines.
// Both assert the chip select for the duration of each transfer only.
package spi

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	periphspi "periph.io/x/conn/v3/spi"
)

// Output is a GPIO line driven by the host.
//
// periph.io gpio.PinOut and gpiomem.Line satisfy this interface.
type Output interface {
	Out(l gpio.Level) error
}

// Input is a GPIO line read by the host.
type Input interface {
	Read() gpio.Level
}

// Txer performs a full duplex transfer.
type Txer interface {
	Tx(w, r []byte) error
}

// Config is the bus configuration for a device.
//
// The configuration is applied once, when the port is connected.
type Config struct {
	Speed physic.Frequency
	Mode  periphspi.Mode
	Bits  int
}

// Default is the bus configuration for the ADS868x family:
// 16MHz, mode 0 (clock idle low, sample on rising edge), MSB first.
var Default = Config{
	Speed: 16 * physic.MegaHertz,
	Mode:  periphspi.Mode0,
	Bits:  8,
}

// Connect connects to the port with the chip select driven by the SPI
// controller.
func (c Config) Connect(p periphspi.Port) (periphspi.Conn, error) {
	return p.Connect(c.Speed, c.Mode, c.Bits)
}

// ConnectCS connects to the port with the chip select driven by the cs GPIO
// line rather than the SPI controller.
func (c Config) ConnectCS(p periphspi.Port, cs Output) (*ChipSelect, error) {
	conn, err := p.Connect(c.Speed, c.Mode|periphspi.NoCS, c.Bits)
	if err != nil {
		return nil, err
	}
	return NewChipSelect(conn, cs)
}

// ChipSelect is a SPI connection with the chip select driven by a GPIO line.
//
// The chip select is active low.
type ChipSelect struct {
	c  Txer
	cs Output
}

// NewChipSelect wraps the connection with a chip select line.
//
// The chip select is driven idle.
func NewChipSelect(c Txer, cs Output) (*ChipSelect, error) {
	s := &ChipSelect{c: c, cs: cs}
	if err := s.Deselect(); err != nil {
		return nil, err
	}
	return s, nil
}

// Deselect drives the chip select idle.
func (s *ChipSelect) Deselect() error {
	return s.cs.Out(gpio.High)
}

// Tx asserts the chip select, performs the transfer, and deasserts the chip
// select.
//
// The chip select is deasserted even if the transfer fails.
func (s *ChipSelect) Tx(w, r []byte) error {
	if err := s.cs.Out(gpio.Low); err != nil {
		return err
	}
	err := s.c.Tx(w, r)
	if derr := s.Deselect(); err == nil {
		err = derr
	}
	return err
}
