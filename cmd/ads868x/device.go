// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/warthog618/ads868x"
	"github.com/warthog618/ads868x/ads868xtest"
	"github.com/warthog618/ads868x/gpiomem"
	"github.com/warthog618/ads868x/spi"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// settings are the device settings resolved from the config.
type settings struct {
	Backend   string
	Range     ads868x.Range
	Reference ads868x.Reference
	Vref      float64
	Attempts  int
	Settle    time.Duration
}

func loadSettings() (s settings, err error) {
	s.Backend = cfg.MustGet("backend").String()
	if s.Range, err = ads868x.ParseRange(cfg.MustGet("range").String()); err != nil {
		return
	}
	if s.Reference, err = ads868x.ParseReference(cfg.MustGet("reference").String()); err != nil {
		return
	}
	if s.Vref, err = strconv.ParseFloat(cfg.MustGet("vref").String(), 64); err != nil {
		return s, fmt.Errorf("can't parse vref: %w", err)
	}
	if s.Attempts, err = strconv.Atoi(cfg.MustGet("attempts").String()); err != nil {
		return s, fmt.Errorf("can't parse attempts: %w", err)
	}
	if s.Settle, err = time.ParseDuration(cfg.MustGet("settle").String()); err != nil {
		return s, fmt.Errorf("can't parse settle: %w", err)
	}
	return s, nil
}

// openDevice connects to the bus selected by the backend and configures the
// ADC.
//
// The returned close function releases the bus.
func openDevice() (*ads868x.Device, func(), error) {
	s, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	var t ads868x.Transport
	var closer func()
	switch s.Backend {
	case "spidev":
		t, closer, err = openSpidev()
	case "gpiomem":
		t, closer, err = openGpiomem()
	case "sim":
		t, closer = openSim()
	default:
		err = fmt.Errorf("unknown backend '%s'", s.Backend)
	}
	if err != nil {
		return nil, nil, err
	}
	log.Debug().
		Str("backend", s.Backend).
		Stringer("range", s.Range).
		Stringer("reference", s.Reference).
		Float64("vref", s.Vref).
		Msg("configuring ADC")
	adc, err := ads868x.New(t, s.Range, s.Reference, s.Vref,
		ads868x.WithMaxAttempts(s.Attempts),
		ads868x.WithSettle(s.Settle),
		ads868x.WithLogger(log))
	if err != nil {
		closer()
		return nil, nil, err
	}
	return adc, closer, nil
}

func openSpidev() (ads868x.Transport, func(), error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	p, err := spireg.Open(cfg.MustGet("port").String())
	if err != nil {
		return nil, nil, err
	}
	closer := func() { p.Close() }
	csName := cfg.MustGet("cs").String()
	if csName == "" {
		c, err := spi.Default.Connect(p)
		if err != nil {
			closer()
			return nil, nil, err
		}
		return c, closer, nil
	}
	cs := gpioreg.ByName(csName)
	if cs == nil {
		closer()
		return nil, nil, fmt.Errorf("unknown chip select '%s'", csName)
	}
	c, err := spi.Default.ConnectCS(p, cs)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return c, closer, nil
}

func openGpiomem() (t ads868x.Transport, closer func(), err error) {
	tclk, err := time.ParseDuration(cfg.MustGet("tclk").String())
	if err != nil {
		return nil, nil, fmt.Errorf("can't parse tclk: %w", err)
	}
	if err = gpiomem.Open(); err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			gpiomem.Close()
		}
	}()
	var lines [4]*gpiomem.Line
	for i, name := range []string{"clk", "cs", "mosi", "miso"} {
		offset, perr := gpiomemOffset(name)
		if perr != nil {
			return nil, nil, perr
		}
		if lines[i], err = gpiomem.NewLine(offset); err != nil {
			return nil, nil, fmt.Errorf("%s line %d: %w", name, offset, err)
		}
	}
	clk, cs, mosi, miso := lines[0], lines[1], lines[2], lines[3]
	// latch idle levels before enabling the outputs
	initial := map[*gpiomem.Line]gpio.Level{clk: gpio.Low, cs: gpio.High, mosi: gpio.Low}
	for l, v := range initial {
		if err = l.Out(v); err != nil {
			return nil, nil, err
		}
		if err = l.Output(); err != nil {
			return nil, nil, err
		}
	}
	if err = miso.Input(); err != nil {
		return nil, nil, err
	}
	s, err := spi.New(clk, cs, mosi, miso, spi.WithTclk(tclk))
	if err != nil {
		return nil, nil, err
	}
	closer = func() {
		for l := range initial {
			l.Input()
		}
		gpiomem.Close()
	}
	return s, closer, nil
}

// gpiomemOffset returns the BCM number configured for the named line.
//
// The cs key has no default as spidev expects a GPIO name, so gpiomem falls
// back to CE0.
func gpiomemOffset(name string) (int, error) {
	v := cfg.MustGet(name).String()
	if v == "" && name == "cs" {
		return gpiomem.GPIO8, nil
	}
	offset, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("can't parse %s line: %w", name, err)
	}
	return offset, nil
}

func openSim() (ads868x.Transport, func()) {
	// ramp across the full code range
	code := uint16(0)
	c := ads868xtest.New(ads868xtest.WithCodes(func() uint16 {
		code += 0x0101
		return code
	}))
	return c, func() {}
}
