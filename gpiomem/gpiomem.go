// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

// Package gpiomem provides GPIO lines on the Raspberry Pi via the memory
// mapped GPIO registers in /dev/gpiomem.
//
// Lines are used to drive the chip select of an ADC, or all four lines of a
// bit bashed SPI bus.
//
// Example of use:
//
//	gpiomem.Open()
//	defer gpiomem.Close()
//
//	cs, err := gpiomem.NewLine(gpiomem.GPIO8)
//	cs.Out(gpio.High)
//	cs.Output()
//
// The package uses the BCM GPIO numbers, not the J8 header pin numbers.
package gpiomem

import (
	"errors"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/gpio"
)

// Arrays for 8 / 32 bit access to memory and a semaphore for write locking
var (
	// The memlock covers read/modify/write access to the mem block.
	// Individual reads and writes can skip the lock on the assumption that
	// concurrent register writes are atomic. e.g. Read and Out.
	memlock sync.Mutex
	mem     []uint32
	mem8    []byte
)

const (
	memLength = 4096

	modeMask uint32 = 7 // line mode is 3 bits wide
)

var (
	// ErrAlreadyOpen indicates the mem is already open.
	ErrAlreadyOpen = errors.New("already open")

	// ErrNotOpen indicates the mem has not been opened.
	ErrNotOpen = errors.New("not open")

	// ErrInvalidLine indicates the line offset is outside the GPIO bank.
	ErrInvalidLine = errors.New("invalid line")
)

// Open memory maps the GPIO registers from /dev/gpiomem.
func Open() error {
	memlock.Lock()
	defer memlock.Unlock()
	if len(mem) != 0 {
		return ErrAlreadyOpen
	}
	file, err := os.OpenFile("/dev/gpiomem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return err
	}
	defer file.Close()
	m, err := unix.Mmap(int(file.Fd()), 0, memLength,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	mem8 = m
	mem = unsafe.Slice((*uint32)(unsafe.Pointer(&m[0])), len(m)/4)
	return nil
}

// Close unmaps the GPIO registers.
//
// Lines are unusable after Close.
func Close() error {
	memlock.Lock()
	defer memlock.Unlock()
	if len(mem) == 0 {
		return ErrNotOpen
	}
	mem = nil
	err := unix.Munmap(mem8)
	mem8 = nil
	return err
}

// Mode is the function of a line.
type Mode int

// Line modes.
const (
	Input Mode = iota
	Output
)

// GPIO lines on the J8 header commonly used for SPI.
const (
	GPIO7  = 7  // SPI0 CE1
	GPIO8  = 8  // SPI0 CE0
	GPIO9  = 9  // SPI0 MISO
	GPIO10 = 10 // SPI0 MOSI
	GPIO11 = 11 // SPI0 SCLK
	// MaxLine is one more than the highest line on the J8 header.
	MaxLine = 28
)

// Line is a single GPIO line.
type Line struct {
	offset   int
	fsel     int
	levelReg int
	clearReg int
	setReg   int
	mask     uint32
}

// NewLine creates a line for the BCM GPIO number.
func NewLine(offset int) (*Line, error) {
	if offset < 0 || offset >= MaxLine {
		return nil, ErrInvalidLine
	}
	if len(mem) == 0 {
		return nil, ErrNotOpen
	}
	// all J8 lines are in the first bank
	bank := offset / 32
	return &Line{
		offset:   offset,
		fsel:     offset / 10,
		levelReg: 13 + bank,
		clearReg: 10 + bank,
		setReg:   7 + bank,
		mask:     uint32(1) << uint(offset&0x1f),
	}, nil
}

// Offset returns the BCM GPIO number of the line.
func (l *Line) Offset() int {
	return l.offset
}

// Input sets the line as an input.
func (l *Line) Input() error {
	return l.SetMode(Input)
}

// Output sets the line as an output.
func (l *Line) Output() error {
	return l.SetMode(Output)
}

// SetMode sets the line Mode.
func (l *Line) SetMode(mode Mode) error {
	// shift for line mode field within fsel register.
	modeShift := uint(l.offset%10) * 3
	memlock.Lock()
	defer memlock.Unlock()
	if len(mem) == 0 {
		return ErrNotOpen
	}
	mem[l.fsel] = mem[l.fsel]&^(modeMask<<modeShift) | uint32(mode)<<modeShift
	return nil
}

// Mode returns the mode of the line.
func (l *Line) Mode() Mode {
	if len(mem) == 0 {
		return Input
	}
	modeShift := uint(l.offset%10) * 3
	return Mode(mem[l.fsel] >> modeShift & modeMask)
}

// Out sets the level of the line.
//
// The level is latched even if the line is an input, so it may be set
// before switching to Output to prevent glitches.
func (l *Line) Out(v gpio.Level) error {
	if len(mem) == 0 {
		return ErrNotOpen
	}
	if v == gpio.Low {
		mem[l.clearReg] = l.mask
	} else {
		mem[l.setReg] = l.mask
	}
	return nil
}

// Read returns the level of the line.
func (l *Line) Read() gpio.Level {
	if len(mem) == 0 {
		return gpio.Low
	}
	return gpio.Level(mem[l.levelReg]&l.mask != 0)
}
