// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

package ads868x

import (
	"fmt"
	"strings"
)

// Range selects the input span, as a multiple of the reference voltage.
//
// The value is written to the RANGE_SEL register, so the encoding matches
// the RANGE_SEL[3:0] field.
type Range uint16

// Input ranges.
const (
	Bipolar3     Range = 0x0 // ±3 * Vref
	Bipolar2p5   Range = 0x1 // ±2.5 * Vref
	Bipolar1p5   Range = 0x2 // ±1.5 * Vref
	Bipolar1p25  Range = 0x3 // ±1.25 * Vref
	Bipolar0p625 Range = 0x4 // ±0.625 * Vref
	Unipolar3    Range = 0x8 // 0 to 3 * Vref
	Unipolar2p5  Range = 0x9 // 0 to 2.5 * Vref
	Unipolar1p5  Range = 0xa // 0 to 1.5 * Vref
	Unipolar1p25 Range = 0xb // 0 to 1.25 * Vref
)

type rangeInfo struct {
	name       string
	multiplier float64
	bipolar    bool
}

var ranges = map[Range]rangeInfo{
	Bipolar3:     {"pm3", 3, true},
	Bipolar2p5:   {"pm2.5", 2.5, true},
	Bipolar1p5:   {"pm1.5", 1.5, true},
	Bipolar1p25:  {"pm1.25", 1.25, true},
	Bipolar0p625: {"pm0.625", 0.625, true},
	Unipolar3:    {"p3", 3, false},
	Unipolar2p5:  {"p2.5", 2.5, false},
	Unipolar1p5:  {"p1.5", 1.5, false},
	Unipolar1p25: {"p1.25", 1.25, false},
}

// Valid returns true if the range is one of the supported input ranges.
func (r Range) Valid() bool {
	_, ok := ranges[r]
	return ok
}

// Bipolar returns true if the range spans both polarities.
func (r Range) Bipolar() bool {
	return ranges[r].bipolar
}

// Multiplier returns the multiple of the reference voltage spanned by the
// range.
func (r Range) Multiplier() (float64, error) {
	ri, ok := ranges[r]
	if !ok {
		return 0, ErrInvalidRange
	}
	return ri.multiplier, nil
}

func (r Range) String() string {
	if ri, ok := ranges[r]; ok {
		return ri.name
	}
	return fmt.Sprintf("range(0x%x)", uint16(r))
}

// ParseRange converts a range name, such as "pm2.5" or "p1.25", into the
// corresponding Range.
func ParseRange(s string) (Range, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Replace(s, "±", "pm", 1)
	for r, ri := range ranges {
		if ri.name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: '%s'", ErrInvalidRange, s)
}

// Reference selects the source of the reference voltage.
//
// The value is ORed with the Range when written to RANGE_SEL.
type Reference uint16

// Reference sources.
const (
	Internal Reference = 0x0000
	External Reference = 0x0080
)

// InternalVref is the voltage of the internal reference.
const InternalVref = 4.096

func (r Reference) String() string {
	switch r {
	case Internal:
		return "internal"
	case External:
		return "external"
	default:
		return fmt.Sprintf("reference(0x%04x)", uint16(r))
	}
}

// ParseReference converts "internal" or "external" into the corresponding
// Reference.
func ParseReference(s string) (Reference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "internal", "int":
		return Internal, nil
	case "external", "ext":
		return External, nil
	}
	return 0, fmt.Errorf("unknown reference '%s'", s)
}

const (
	fullScale   = 65535.0
	bipolarZero = 32768
)

// Convert converts a raw conversion code into a voltage for the given range
// and reference voltage.
//
// Bipolar codes are offset binary, centred on 32768.
// An invalid range returns 0 and ErrInvalidRange, and the 0 must not be
// treated as a reading.
func Convert(code uint16, r Range, vref float64) (float64, error) {
	m, err := r.Multiplier()
	if err != nil {
		return 0, err
	}
	scale := vref * m / fullScale
	v := float64(code)
	if r.Bipolar() {
		v -= bipolarZero
		scale *= 2
	}
	return v * scale, nil
}
