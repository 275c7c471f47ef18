// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

package ads868x

import (
	"fmt"
	"strings"
)

// Register identifies a control or status register within the ADC.
//
// Registers are 32 bits wide and addressed in bytes, so the half-word
// commands address the low or high half of a register.
type Register uint8

// Registers of the ADS868x.
const (
	NoOp           Register = 0x00 // read current conversion
	DeviceID       Register = 0x02 // device ID, bits 23-16
	RstPwrCtl      Register = 0x04 // reset and power control
	RstPwrCtlHi    Register = 0x05
	SDICtl         Register = 0x08 // SDI data input control
	SDOCtl         Register = 0x0c // SDO-x data output control
	SDOCtlHi       Register = 0x0d
	DataOutCtl     Register = 0x10 // output data control
	DataOutCtlHi   Register = 0x11
	RangeSel       Register = 0x14 // input range selection
	Alarm          Register = 0x20 // alarm output
	AlarmHi        Register = 0x21
	AlarmHighTh    Register = 0x24 // alarm high threshold and hysteresis
	AlarmHighThHi  Register = 0x25
	AlarmHighThTop Register = 0x27
	AlarmLowTh     Register = 0x28 // alarm low threshold
	AlarmLowThHi   Register = 0x29
)

var registerNames = map[Register]string{
	NoOp:           "noop",
	DeviceID:       "device-id",
	RstPwrCtl:      "rst-pwrctl",
	RstPwrCtlHi:    "rst-pwrctl-hi",
	SDICtl:         "sdi-ctl",
	SDOCtl:         "sdo-ctl",
	SDOCtlHi:       "sdo-ctl-hi",
	DataOutCtl:     "dataout-ctl",
	DataOutCtlHi:   "dataout-ctl-hi",
	RangeSel:       "range-sel",
	Alarm:          "alarm",
	AlarmHi:        "alarm-hi",
	AlarmHighTh:    "alarm-h-th",
	AlarmHighThHi:  "alarm-h-th-hi",
	AlarmHighThTop: "alarm-h-th-top",
	AlarmLowTh:     "alarm-l-th",
	AlarmLowThHi:   "alarm-l-th-hi",
}

// Valid returns true if the register is a known ADS868x register.
func (r Register) Valid() bool {
	_, ok := registerNames[r]
	return ok
}

func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return n
	}
	return fmt.Sprintf("register(0x%02x)", uint8(r))
}

// ParseRegister converts a register name, as returned by String, into the
// corresponding Register.
func ParseRegister(s string) (Register, error) {
	s = strings.ToLower(s)
	for r, n := range registerNames {
		if n == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown register '%s'", s)
}

// Command is the opcode in the first byte of a frame.
type Command uint8

// Commands supported by the ADS868x.
const (
	// Nop reads the current conversion.
	Nop Command = 0x00
	// ClearHWord clears the register bits that are set in the data.
	ClearHWord Command = 0xc0
	// ReadHWord requests the 16 bit content of a register.
	ReadHWord Command = 0xc8
	// Read requests the 8 bit content of a register.
	Read Command = 0x48
	// Write writes 16 bits to a register.
	Write Command = 0xd0
	// WriteMSB writes the MS byte of the data to a register.
	WriteMSB Command = 0xd2
	// WriteLSB writes the LS byte of the data to a register.
	WriteLSB Command = 0xd4
	// SetHWord sets the register bits that are set in the data.
	SetHWord Command = 0xd8
)

var commandNames = map[Command]string{
	Nop:        "nop",
	ClearHWord: "clear",
	ReadHWord:  "read16",
	Read:       "read8",
	Write:      "write",
	WriteMSB:   "write-msb",
	WriteLSB:   "write-lsb",
	SetHWord:   "set",
}

// Valid returns true if the command is a known ADS868x command.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// modifies returns true if the command alters the addressed register.
func (c Command) modifies() bool {
	switch c {
	case Write, WriteMSB, WriteLSB, ClearHWord, SetHWord:
		return true
	}
	return false
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("command(0x%02x)", uint8(c))
}

// ParseCommand converts a command name, as returned by String, into the
// corresponding Command.
func ParseCommand(s string) (Command, error) {
	s = strings.ToLower(s)
	for c, n := range commandNames {
		if n == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown command '%s'", s)
}

// FrameSize is the number of bytes exchanged in each transfer.
const FrameSize = 4

// Frame is the unit of exchange with the ADC.
//
// The same frame is sent to, and received from, the device as SPI is full
// duplex.
type Frame [FrameSize]byte

// Encode builds the frame for a command.
func Encode(cmd Command, reg Register, data uint16) Frame {
	return Frame{byte(cmd), byte(reg), byte(data >> 8), byte(data)}
}

// Decode returns the 16 bit value returned in a response frame.
//
// The device returns the result of the previous command, so the content of a
// register requested by one frame is only visible in the response to the
// next.
func Decode(rx Frame) uint16 {
	return uint16(rx[0])<<8 | uint16(rx[1])
}

func (f Frame) String() string {
	return fmt.Sprintf("%02x %02x %02x%02x", f[0], f[1], f[2], f[3])
}
