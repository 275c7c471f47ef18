// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

// Package ads868xtest provides a simulated ADS868x for testing code that
// drives the ADC without hardware.
package ads868xtest

import (
	"errors"
	"sync"

	"github.com/warthog618/ads868x"
)

// ErrFrameSize indicates a transfer that is not exactly one frame.
var ErrFrameSize = errors.New("transfer is not one frame")

// Chip simulates the register interface of an ADS868x.
//
// Like the real device, the response to each frame carries the result of the
// previous frame.
// Chip implements ads868x.Transport and ads868x.Deselector.
type Chip struct {
	mu        sync.Mutex
	regs      map[ads868x.Register]uint16
	code      func() uint16
	ackAfter  int
	failOn    int
	failErr   error
	out       ads868x.Frame
	txs       int
	frames    []ads868x.Frame
	deselects int
}

// Option modifies the construction of a Chip.
type Option func(*Chip)

// WithCode sets the conversion code returned by Nop.
func WithCode(code uint16) Option {
	return func(c *Chip) {
		c.code = func() uint16 { return code }
	}
}

// WithCodes sets a function that provides the conversion code returned by
// each Nop.
func WithCodes(f func() uint16) Option {
	return func(c *Chip) {
		c.code = f
	}
}

// WithAckAfter causes writes to RangeSel to be ignored until the nth write.
//
// A negative n causes all RangeSel writes to be ignored.
func WithAckAfter(n int) Option {
	return func(c *Chip) {
		c.ackAfter = n
	}
}

// WithFault causes the nth transfer, counting from 1, to fail with err.
func WithFault(n int, err error) Option {
	return func(c *Chip) {
		c.failOn = n
		c.failErr = err
	}
}

// New creates a Chip with all registers cleared.
func New(options ...Option) *Chip {
	c := &Chip{
		regs: make(map[ads868x.Register]uint16),
		code: func() uint16 { return 0 },
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Tx performs a single frame transfer.
func (c *Chip) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(w) != ads868x.FrameSize || len(r) != ads868x.FrameSize {
		return ErrFrameSize
	}
	c.txs++
	if c.txs == c.failOn {
		return c.failErr
	}
	var f ads868x.Frame
	copy(f[:], w)
	c.frames = append(c.frames, f)
	copy(r, c.out[:])
	c.out = c.exec(f)
	return nil
}

func (c *Chip) exec(f ads868x.Frame) ads868x.Frame {
	cmd := ads868x.Command(f[0])
	reg := ads868x.Register(f[1])
	data := uint16(f[2])<<8 | uint16(f[3])
	switch cmd {
	case ads868x.Nop:
		code := c.code()
		return ads868x.Frame{byte(code >> 8), byte(code)}
	case ads868x.ReadHWord:
		v := c.regs[reg]
		return ads868x.Frame{byte(v >> 8), byte(v)}
	case ads868x.Read:
		return ads868x.Frame{byte(c.regs[reg])}
	case ads868x.Write:
		c.write(reg, data)
	case ads868x.WriteMSB:
		c.write(reg, c.regs[reg]&0x00ff|data&0xff00)
	case ads868x.WriteLSB:
		c.write(reg, c.regs[reg]&0xff00|data&0x00ff)
	case ads868x.ClearHWord:
		c.write(reg, c.regs[reg]&^data)
	case ads868x.SetHWord:
		c.write(reg, c.regs[reg]|data)
	}
	return ads868x.Frame{}
}

func (c *Chip) write(reg ads868x.Register, v uint16) {
	if reg == ads868x.RangeSel {
		n := c.writes(reg)
		if c.ackAfter < 0 || n < c.ackAfter {
			return
		}
	}
	c.regs[reg] = v
}

// writes counts the frames that modify reg, including the current one.
func (c *Chip) writes(reg ads868x.Register) int {
	n := 0
	for _, f := range c.frames {
		if ads868x.Register(f[1]) != reg {
			continue
		}
		switch ads868x.Command(f[0]) {
		case ads868x.Write, ads868x.WriteMSB, ads868x.WriteLSB,
			ads868x.ClearHWord, ads868x.SetHWord:
			n++
		}
	}
	return n
}

// Deselect records the chip select being driven idle.
func (c *Chip) Deselect() error {
	c.mu.Lock()
	c.deselects++
	c.mu.Unlock()
	return nil
}

// Deselects returns the number of times Deselect has been called.
func (c *Chip) Deselects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deselects
}

// Frames returns the frames received, in order.
func (c *Chip) Frames() []ads868x.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	ff := make([]ads868x.Frame, len(c.frames))
	copy(ff, c.frames)
	return ff
}

// Writes returns the number of frames that have modified reg.
func (c *Chip) Writes(reg ads868x.Register) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes(reg)
}

// Register returns the current content of reg.
func (c *Chip) Register(reg ads868x.Register) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[reg]
}

// SetRegister sets the content of reg, bypassing the RangeSel write delay.
func (c *Chip) SetRegister(reg ads868x.Register, v uint16) {
	c.mu.Lock()
	c.regs[reg] = v
	c.mu.Unlock()
}
