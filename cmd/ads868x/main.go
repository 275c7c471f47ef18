// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
)

var version = "undefined"

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config-file", "c", "", "JSON configuration file")
	pf.StringP("backend", "b", "", "bus backend [spidev|gpiomem|sim]")
	pf.StringP("port", "p", "", "SPI port name (spidev)")
	pf.String("cs", "", "chip select line (spidev: GPIO name, gpiomem: BCM number)")
	pf.String("clk", "", "clock line BCM number (gpiomem)")
	pf.String("mosi", "", "MOSI line BCM number (gpiomem)")
	pf.String("miso", "", "MISO line BCM number (gpiomem)")
	pf.String("tclk", "", "bit bash half clock period (gpiomem)")
	pf.StringP("range", "r", "", "input range [pm3|pm2.5|pm1.5|pm1.25|pm0.625|p3|p2.5|p1.5|p1.25]")
	pf.String("reference", "", "reference source [internal|external]")
	pf.String("vref", "", "reference voltage")
	pf.String("attempts", "", "range configuration attempts")
	pf.String("settle", "", "range configuration settling delay")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log the range configuration")
}

var (
	rootCmd = &cobra.Command{
		Use:               "ads868x",
		Short:             "ads868x is a utility to read an ADS868x ADC",
		PersistentPreRunE: setup,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
		Version: version,
	}
	verbose bool
	log     zerolog.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logErr(cmd *cobra.Command, err error) {
	log.Error().Err(err).Msgf("ads868x %s", cmd.Name())
}

func setup(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
	cfg = loadConfig(cmd)
	return nil
}

var defaultConfig = map[string]interface{}{
	"backend":   "spidev",
	"port":      "",
	"cs":        "",
	"clk":       "11",
	"mosi":      "10",
	"miso":      "9",
	"tclk":      "500ns",
	"range":     "pm3",
	"reference": "internal",
	"vref":      "4.096",
	"attempts":  "10",
	"settle":    "10ms",
}

// loadConfig layers the flags set on the command line over the environment,
// the config file and the defaults.
func loadConfig(cmd *cobra.Command) *config.Config {
	flags := map[string]interface{}{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == "verbose" {
			return
		}
		flags[strings.ReplaceAll(f.Name, "-", ".")] = f.Value.String()
	})
	def := dict.New(dict.WithMap(defaultConfig))
	// highest priority sources first - flags override environment
	c := config.New(
		dict.New(dict.WithMap(flags)),
		env.New(env.WithEnvPrefix("ADS868X_")),
		config.WithDefault(def))
	c.Append(
		blob.NewConfigFile(c, "config.file", "ads868x.json", json.NewDecoder()))
	return c.GetConfig("", config.WithMust)
}
