// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

package ads868x

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allCommands  = []Command{Nop, ClearHWord, ReadHWord, Read, Write, WriteMSB, WriteLSB, SetHWord}
	allRegisters = []Register{
		NoOp, DeviceID, RstPwrCtl, RstPwrCtlHi, SDICtl, SDOCtl, SDOCtlHi,
		DataOutCtl, DataOutCtlHi, RangeSel, Alarm, AlarmHi, AlarmHighTh,
		AlarmHighThHi, AlarmHighThTop, AlarmLowTh, AlarmLowThHi,
	}
)

func TestEncode(t *testing.T) {
	patterns := []struct {
		name string
		cmd  Command
		reg  Register
		data uint16
		f    Frame
	}{
		{"nop", Nop, NoOp, 0, Frame{0x00, 0x00, 0x00, 0x00}},
		{"write range", Write, RangeSel, 0x0081, Frame{0xd0, 0x14, 0x00, 0x81}},
		{"read range", ReadHWord, RangeSel, 0, Frame{0xc8, 0x14, 0x00, 0x00}},
		{"set", SetHWord, SDOCtl, 0xa55a, Frame{0xd8, 0x0c, 0xa5, 0x5a}},
		{"max data", Write, AlarmLowThHi, 0xffff, Frame{0xd0, 0x29, 0xff, 0xff}},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			assert.Equal(t, p.f, Encode(p.cmd, p.reg, p.data))
		}
		t.Run(p.name, tf)
	}
}

func TestDecode(t *testing.T) {
	assert.Equal(t, uint16(0x0000), Decode(Frame{}))
	assert.Equal(t, uint16(0xafc8), Decode(Frame{0xaf, 0xc8, 0x12, 0x34}))
	assert.Equal(t, uint16(0xffff), Decode(Frame{0xff, 0xff, 0x00, 0x00}))
}

// echo returns the previous frame, mimicking the device lag.
type echo struct {
	last Frame
}

func (e *echo) Tx(w, r []byte) error {
	copy(r, e.last[:])
	copy(e.last[:], w)
	return nil
}

func TestLaggedRoundTrip(t *testing.T) {
	e := &echo{}
	dd := []uint16{0x0000, 0x0001, 0x00ff, 0x8000, 0xffff}
	for _, cmd := range allCommands {
		for _, reg := range allRegisters {
			for _, d := range dd {
				w := Encode(cmd, reg, d)
				var r Frame
				require.Nil(t, e.Tx(w[:], r[:]))
				next := Encode(Nop, NoOp, 0)
				require.Nil(t, e.Tx(next[:], r[:]))
				assert.Equal(t, w, r)
				assert.Equal(t, uint16(cmd)<<8|uint16(reg), Decode(r))
				assert.Equal(t, d, uint16(r[2])<<8|uint16(r[3]))
			}
		}
	}
}

func TestRegisterNames(t *testing.T) {
	for _, reg := range allRegisters {
		assert.True(t, reg.Valid(), reg)
		r, err := ParseRegister(reg.String())
		assert.Nil(t, err)
		assert.Equal(t, reg, r)
	}
	r, err := ParseRegister("RANGE-SEL")
	assert.Nil(t, err)
	assert.Equal(t, RangeSel, r)
	assert.False(t, Register(0x01).Valid())
	assert.Equal(t, "register(0x01)", Register(0x01).String())
	_, err = ParseRegister("bogus")
	assert.NotNil(t, err)
}

func TestCommandNames(t *testing.T) {
	for _, cmd := range allCommands {
		assert.True(t, cmd.Valid(), cmd)
		c, err := ParseCommand(cmd.String())
		assert.Nil(t, err)
		assert.Equal(t, cmd, c)
	}
	assert.False(t, Command(0x01).Valid())
	assert.Equal(t, "command(0x01)", Command(0x01).String())
	_, err := ParseCommand("bogus")
	assert.NotNil(t, err)
}

func TestFrameString(t *testing.T) {
	assert.Equal(t, "d0 14 0081", Encode(Write, RangeSel, 0x81).String())
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Encode(Write, RangeSel, uint16(i))
	}
}

func BenchmarkDecode(b *testing.B) {
	f := Frame{0x12, 0x34, 0x56, 0x78}
	for i := 0; i < b.N; i++ {
		_ = Decode(f)
	}
}
