// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warthog618/ads868x"
)

func init() {
	regCmd.SetHelpTemplate(regCmd.HelpTemplate() + extendedRegHelp())
	cmdCmd.SetHelpTemplate(cmdCmd.HelpTemplate() + extendedCmdHelp())
	regCmd.AddCommand(regGetCmd)
	regCmd.AddCommand(regSetCmd)
	rootCmd.AddCommand(regCmd)
	rootCmd.AddCommand(cmdCmd)
}

var (
	regCmd = &cobra.Command{
		Use:   "reg",
		Short: "Read or write a register",
	}
	regGetCmd = &cobra.Command{
		Use:     "get <register>",
		Short:   "Read the 16 bit value of a register",
		Args:    cobra.ExactArgs(1),
		RunE:    regGet,
		Example: "  ads868x reg get range-sel",
	}
	regSetCmd = &cobra.Command{
		Use:     "set <register> <value>",
		Short:   "Write a 16 bit value to a register",
		Args:    cobra.ExactArgs(2),
		RunE:    regSet,
		Example: "  ads868x reg set sdo-ctl 0x0000",
	}
	cmdCmd = &cobra.Command{
		Use:     "cmd <command> <register> [data]",
		Short:   "Send a single command frame",
		Long:    "Send a command frame and print the response, which is the result of the previous command.",
		Args:    cobra.RangeArgs(2, 3),
		RunE:    command,
		Example: "  ads868x cmd set dataout-ctl 0x0100",
	}
)

func extendedRegHelp() string {
	names := []string{}
	for r := 0; r < 0x100; r++ {
		if ads868x.Register(r).Valid() {
			names = append(names, ads868x.Register(r).String())
		}
	}
	return fmt.Sprintf("\nRegisters:\n  %s\n", strings.Join(names, ", "))
}

func extendedCmdHelp() string {
	names := []string{}
	for c := 0; c < 0x100; c++ {
		if ads868x.Command(c).Valid() {
			names = append(names, ads868x.Command(c).String())
		}
	}
	sort.Strings(names)
	return fmt.Sprintf("\nCommands:\n  %s\n%s", strings.Join(names, ", "), extendedRegHelp())
}

func regGet(cmd *cobra.Command, args []string) error {
	reg, err := ads868x.ParseRegister(args[0])
	if err != nil {
		return err
	}
	adc, closer, err := openDevice()
	if err != nil {
		logErr(cmd, err)
		return err
	}
	defer closer()
	v, err := adc.ReadRegister(reg)
	if err != nil {
		logErr(cmd, err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: 0x%04x\n", reg, v)
	return nil
}

func regSet(cmd *cobra.Command, args []string) error {
	reg, err := ads868x.ParseRegister(args[0])
	if err != nil {
		return err
	}
	v, err := parseData(args[1])
	if err != nil {
		return err
	}
	adc, closer, err := openDevice()
	if err != nil {
		logErr(cmd, err)
		return err
	}
	defer closer()
	if err = adc.WriteRegister(reg, v); err != nil {
		logErr(cmd, err)
	}
	return err
}

func command(cmd *cobra.Command, args []string) error {
	c, err := ads868x.ParseCommand(args[0])
	if err != nil {
		return err
	}
	reg, err := ads868x.ParseRegister(args[1])
	if err != nil {
		return err
	}
	var data uint16
	if len(args) > 2 {
		if data, err = parseData(args[2]); err != nil {
			return err
		}
	}
	adc, closer, err := openDevice()
	if err != nil {
		logErr(cmd, err)
		return err
	}
	defer closer()
	v, err := adc.Command(c, reg, data)
	if err != nil {
		logErr(cmd, err)
		return err
	}
	log.Debug().
		Stringer("frame", ads868x.Encode(c, reg, data)).
		Msg("sent")
	fmt.Fprintf(cmd.OutOrStdout(), "0x%04x\n", v)
	return nil
}

// parseData parses a 16 bit value in decimal, or hex with a 0x prefix.
func parseData(arg string) (uint16, error) {
	v, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("can't parse value '%s'", arg)
	}
	return uint16(v), nil
}
