// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/ads868x"
)

func init() {
	readCmd.Flags().UintVarP(&readOpts.Count, "count", "n", 1, "number of readings, 0 to read until interrupted")
	readCmd.Flags().DurationVarP(&readOpts.Interval, "interval", "i", time.Second, "time between readings")
	readCmd.Flags().BoolVar(&readOpts.Raw, "raw", false, "display the raw conversion code")
	readCmd.SetHelpTemplate(readCmd.HelpTemplate() + extendedReadHelp)
	rootCmd.AddCommand(readCmd)
}

var extendedReadHelp = `
Readings are the most recent conversion, and are not triggered.
Voltages are scaled to the configured range and reference voltage.
`

var (
	readCmd = &cobra.Command{
		Use:     "read",
		Short:   "Read the ADC",
		Args:    cobra.NoArgs,
		RunE:    read,
		Example: "  ads868x read -r pm2.5 -n 10 -i 100ms",
	}
	readOpts = struct {
		Count    uint
		Interval time.Duration
		Raw      bool
	}{}
)

func read(cmd *cobra.Command, args []string) error {
	adc, closer, err := openDevice()
	if err != nil {
		logErr(cmd, err)
		return err
	}
	defer closer()
	// capture exit signals to ensure the bus is released on exit.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	for n := uint(0); readOpts.Count == 0 || n < readOpts.Count; n++ {
		if n > 0 {
			select {
			case <-time.After(readOpts.Interval):
			case <-quit:
				return nil
			}
		}
		if err := readOnce(cmd.OutOrStdout(), adc, readOpts.Raw); err != nil {
			logErr(cmd, err)
			return err
		}
	}
	return nil
}

func readOnce(w io.Writer, adc *ads868x.Device, raw bool) error {
	if raw {
		code, err := adc.ReadRaw()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "0x%04x\n", code)
		return nil
	}
	v, err := adc.ReadVoltage()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%.6f\n", v)
	return nil
}
