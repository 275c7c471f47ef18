// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/warthog618/ads868x"
	"github.com/warthog618/ads868x/spi"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// This example reads an ADS868x connected to the first SPI port of the host,
// using the chip select provided by the port. The range and port can be
// altered via configuration (env, flag or config file).
// The range is written and verified before the first reading so the
// returned voltages are always scaled to the range actually in effect.
func main() {
	cfg := loadConfig()
	if _, err := host.Init(); err != nil {
		panic(err)
	}
	p, err := spireg.Open(cfg.MustGet("port").String())
	if err != nil {
		panic(err)
	}
	defer p.Close()
	c, err := spi.Default.Connect(p)
	if err != nil {
		panic(err)
	}
	rng, err := ads868x.ParseRange(cfg.MustGet("range").String())
	if err != nil {
		panic(err)
	}
	adc, err := ads868x.New(c, rng, ads868x.Internal, ads868x.InternalVref)
	if err != nil {
		panic(err)
	}
	period := cfg.MustGet("period").Duration()
	for i := 0; i < int(cfg.MustGet("count").Int()); i++ {
		if i > 0 {
			time.Sleep(period)
		}
		v, err := adc.ReadVoltage()
		if err != nil {
			panic(err)
		}
		fmt.Printf("%s: %.4fV\n", adc.Range(), v)
	}
}

func loadConfig() *config.Config {
	defaultConfig := map[string]interface{}{
		"port":   "",
		"range":  "pm3",
		"count":  10,
		"period": "100ms",
	}
	def := dict.New(dict.WithMap(defaultConfig))
	flags := []pflag.Flag{
		{Short: 'c', Name: "config-file"},
	}
	// highest priority sources first - flags override environment
	cfg := config.New(
		pflag.New(pflag.WithFlags(flags)),
		env.New(env.WithEnvPrefix("ADS868X_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "ads868x.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust)
	return cfg
}
