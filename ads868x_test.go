// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

package ads868x_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/ads868x"
	"github.com/warthog618/ads868x/ads868xtest"
)

func newDevice(t *testing.T, c *ads868xtest.Chip, rng ads868x.Range, ref ads868x.Reference, vref float64,
	options ...ads868x.Option) *ads868x.Device {
	t.Helper()
	options = append([]ads868x.Option{ads868x.WithSettle(0)}, options...)
	adc, err := ads868x.New(c, rng, ref, vref, options...)
	require.Nil(t, err)
	require.NotNil(t, adc)
	return adc
}

func TestNew(t *testing.T) {
	c := ads868xtest.New()
	adc := newDevice(t, c, ads868x.Bipolar2p5, ads868x.External, 5.0)
	assert.Equal(t, ads868x.Bipolar2p5, adc.Range())
	assert.Equal(t, ads868x.External, adc.Reference())
	assert.Equal(t, 5.0, adc.Vref())
	assert.Equal(t, 1, c.Deselects())
	assert.Equal(t, uint16(0x0081), c.Register(ads868x.RangeSel))
	ff := c.Frames()
	expected := []ads868x.Frame{
		ads868x.Encode(ads868x.Write, ads868x.RangeSel, 0x0081),
		ads868x.Encode(ads868x.ReadHWord, ads868x.RangeSel, 0),
		ads868x.Encode(ads868x.Nop, ads868x.NoOp, 0),
		ads868x.Encode(ads868x.Nop, ads868x.NoOp, 0),
	}
	assert.Equal(t, expected, ff)
}

func TestNewInternalReference(t *testing.T) {
	c := ads868xtest.New()
	newDevice(t, c, ads868x.Unipolar1p25, ads868x.Internal, ads868x.InternalVref)
	assert.Equal(t, uint16(0x000b), c.Register(ads868x.RangeSel))
}

func TestNewReferenceVoltageMismatch(t *testing.T) {
	for _, vref := range []float64{0, 2.5, 4.095, 4.097, 5.0} {
		c := ads868xtest.New()
		adc, err := ads868x.New(c, ads868x.Bipolar3, ads868x.Internal, vref, ads868x.WithSettle(0))
		assert.ErrorIs(t, err, ads868x.ErrReferenceVoltage, vref)
		assert.Nil(t, adc)
		assert.Empty(t, c.Frames())
		assert.Zero(t, c.Deselects())
	}
}

func TestNewExternalReferenceVoltage(t *testing.T) {
	for _, vref := range []float64{0, -1.0} {
		c := ads868xtest.New()
		adc, err := ads868x.New(c, ads868x.Bipolar3, ads868x.External, vref, ads868x.WithSettle(0))
		assert.ErrorIs(t, err, ads868x.ErrReferenceVoltage, vref)
		assert.Nil(t, adc)
		assert.Empty(t, c.Frames())
	}
}

func TestNewInvalidRange(t *testing.T) {
	c := ads868xtest.New()
	adc, err := ads868x.New(c, ads868x.Range(0x5), ads868x.Internal, ads868x.InternalVref)
	assert.ErrorIs(t, err, ads868x.ErrInvalidRange)
	assert.Nil(t, adc)
	assert.Empty(t, c.Frames())
}

func TestNewInvalidReference(t *testing.T) {
	c := ads868xtest.New()
	adc, err := ads868x.New(c, ads868x.Bipolar3, ads868x.Reference(0x40), 5.0)
	assert.ErrorIs(t, err, ads868x.ErrReferenceVoltage)
	assert.Nil(t, adc)
	assert.Empty(t, c.Frames())
}

func TestNewRetry(t *testing.T) {
	c := ads868xtest.New(ads868xtest.WithAckAfter(3))
	newDevice(t, c, ads868x.Unipolar2p5, ads868x.External, 4.5)
	assert.Equal(t, 3, c.Writes(ads868x.RangeSel))
	ff := c.Frames()
	// 3 cycles of write, read, nop, then the trailing nop.
	require.Len(t, ff, 3*3+1)
	nop := ads868x.Encode(ads868x.Nop, ads868x.NoOp, 0)
	for i := 0; i < 3; i++ {
		assert.Equal(t, ads868x.Encode(ads868x.Write, ads868x.RangeSel, 0x0089), ff[i*3])
		assert.Equal(t, ads868x.Encode(ads868x.ReadHWord, ads868x.RangeSel, 0), ff[i*3+1])
		assert.Equal(t, nop, ff[i*3+2])
	}
	assert.Equal(t, nop, ff[9])
}

func TestNewNotConverged(t *testing.T) {
	c := ads868xtest.New(ads868xtest.WithAckAfter(-1))
	adc, err := ads868x.New(c, ads868x.Bipolar1p5, ads868x.External, 3.3,
		ads868x.WithSettle(0), ads868x.WithMaxAttempts(4))
	assert.ErrorIs(t, err, ads868x.ErrNotConverged)
	assert.Nil(t, adc)
	assert.Equal(t, 4, c.Writes(ads868x.RangeSel))
	assert.Len(t, c.Frames(), 4*3)

	c = ads868xtest.New(ads868xtest.WithAckAfter(-1))
	_, err = ads868x.New(c, ads868x.Bipolar1p5, ads868x.External, 3.3, ads868x.WithSettle(0))
	assert.ErrorIs(t, err, ads868x.ErrNotConverged)
	assert.Equal(t, ads868x.DefaultMaxAttempts, c.Writes(ads868x.RangeSel))
}

func TestNewTransportFault(t *testing.T) {
	fault := errors.New("bus fault")
	for n := 1; n <= 4; n++ {
		c := ads868xtest.New(ads868xtest.WithFault(n, fault))
		adc, err := ads868x.New(c, ads868x.Bipolar3, ads868x.Internal, ads868x.InternalVref,
			ads868x.WithSettle(0))
		assert.Equal(t, fault, err, n)
		assert.Nil(t, adc)
		// no retry after a transport fault
		assert.Len(t, c.Frames(), n-1)
	}
}

func TestReadRaw(t *testing.T) {
	code := uint16(0x1234)
	c := ads868xtest.New(ads868xtest.WithCode(code))
	adc := newDevice(t, c, ads868x.Bipolar3, ads868x.Internal, ads868x.InternalVref)
	n := len(c.Frames())
	v, err := adc.ReadRaw()
	assert.Nil(t, err)
	assert.Equal(t, code, v)
	v, err = adc.ReadRaw()
	assert.Nil(t, err)
	assert.Equal(t, code, v)
	assert.Len(t, c.Frames(), n+2)
}

func TestReadVoltage(t *testing.T) {
	patterns := []struct {
		name string
		rng  ads868x.Range
		ref  ads868x.Reference
		vref float64
		code uint16
		v    float64
	}{
		{"bipolar", ads868x.Bipolar2p5, ads868x.Internal, 4.096, 45000, 3.8226},
		{"bipolar zero", ads868x.Bipolar0p625, ads868x.External, 2.5, 32768, 0},
		{"unipolar zero", ads868x.Unipolar1p5, ads868x.External, 5.0, 0, 0},
		{"unipolar full", ads868x.Unipolar3, ads868x.External, 5.0, 65535, 15.0},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			c := ads868xtest.New(ads868xtest.WithCode(p.code))
			adc := newDevice(t, c, p.rng, p.ref, p.vref)
			v, err := adc.ReadVoltage()
			assert.Nil(t, err)
			assert.InDelta(t, p.v, v, 0.0001)
		}
		t.Run(p.name, tf)
	}
}

func TestReadFault(t *testing.T) {
	fault := errors.New("bus fault")
	// handshake with immediate ack takes 4 transfers
	c := ads868xtest.New(ads868xtest.WithFault(5, fault))
	adc := newDevice(t, c, ads868x.Bipolar3, ads868x.Internal, ads868x.InternalVref)
	v, err := adc.ReadVoltage()
	assert.Equal(t, fault, err)
	assert.Equal(t, 0.0, v)
}

func TestReadRegister(t *testing.T) {
	c := ads868xtest.New(ads868xtest.WithCode(0xbeef))
	adc := newDevice(t, c, ads868x.Bipolar3, ads868x.Internal, ads868x.InternalVref)
	c.SetRegister(ads868x.DeviceID, 0x0a5a)
	v, err := adc.ReadRegister(ads868x.DeviceID)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x0a5a), v)
	v, err = adc.ReadRegister(ads868x.RangeSel)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x0000), v)
}

func TestWriteRegister(t *testing.T) {
	c := ads868xtest.New()
	adc := newDevice(t, c, ads868x.Bipolar3, ads868x.Internal, ads868x.InternalVref)
	err := adc.WriteRegister(ads868x.SDOCtl, 0x1234)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x1234), c.Register(ads868x.SDOCtl))
	v, err := adc.ReadRegister(ads868x.SDOCtl)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x1234), v)
}

func TestCommand(t *testing.T) {
	c := ads868xtest.New(ads868xtest.WithCode(0x4321))
	adc := newDevice(t, c, ads868x.Bipolar3, ads868x.Internal, ads868x.InternalVref)
	c.SetRegister(ads868x.DataOutCtl, 0x00f0)

	// trailing nop of the handshake leaves a conversion in the response
	v, err := adc.Command(ads868x.SetHWord, ads868x.DataOutCtl, 0x000f)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x4321), v)
	v, err = adc.Command(ads868x.ReadHWord, ads868x.DataOutCtl, 0)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0), v)
	v, err = adc.Command(ads868x.ClearHWord, ads868x.DataOutCtl, 0x0030)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x00ff), v)
	assert.Equal(t, uint16(0x00cf), c.Register(ads868x.DataOutCtl))
}

func TestInvalidRegister(t *testing.T) {
	c := ads868xtest.New()
	adc := newDevice(t, c, ads868x.Bipolar3, ads868x.Internal, ads868x.InternalVref)
	n := len(c.Frames())

	_, err := adc.Command(ads868x.Write, ads868x.Register(0x77), 0x1234)
	assert.ErrorIs(t, err, ads868x.ErrInvalidRegister)
	err = adc.WriteRegister(ads868x.Register(0x01), 0xffff)
	assert.ErrorIs(t, err, ads868x.ErrInvalidRegister)
	_, err = adc.ReadRegister(ads868x.Register(0xff))
	assert.ErrorIs(t, err, ads868x.ErrInvalidRegister)
	assert.Len(t, c.Frames(), n)
}

func TestInvalidCommand(t *testing.T) {
	c := ads868xtest.New()
	adc := newDevice(t, c, ads868x.Bipolar3, ads868x.Internal, ads868x.InternalVref)
	n := len(c.Frames())

	_, err := adc.Command(ads868x.Command(0x99), ads868x.Register(0x77), 0x1234)
	assert.ErrorIs(t, err, ads868x.ErrInvalidCommand)
	_, err = adc.Command(ads868x.Command(0x99), ads868x.SDOCtl, 0x1234)
	assert.ErrorIs(t, err, ads868x.ErrInvalidCommand)
	assert.Len(t, c.Frames(), n)
}

func TestRangeSelLocked(t *testing.T) {
	c := ads868xtest.New()
	adc := newDevice(t, c, ads868x.Unipolar3, ads868x.Internal, ads868x.InternalVref)
	n := len(c.Frames())

	err := adc.WriteRegister(ads868x.RangeSel, 0x0000)
	assert.ErrorIs(t, err, ads868x.ErrInvalidRange)
	for _, cmd := range []ads868x.Command{
		ads868x.Write, ads868x.WriteMSB, ads868x.WriteLSB,
		ads868x.ClearHWord, ads868x.SetHWord,
	} {
		_, err = adc.Command(cmd, ads868x.RangeSel, 0x0003)
		assert.ErrorIs(t, err, ads868x.ErrInvalidRange, cmd.String())
	}
	assert.Len(t, c.Frames(), n)
	assert.Equal(t, uint16(0x0008), c.Register(ads868x.RangeSel))

	// reads are still permitted
	v, err := adc.ReadRegister(ads868x.RangeSel)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x0008), v)
}
