// SPDX-License-Identifier: MIT
//
// Copyright © 2024 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"github.com/l0nax/go-spew/spew"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the resolved device configuration",
	Long:  "Display the device configuration after applying flags, environment, config file and defaults.",
	Args:  cobra.NoArgs,
	RunE:  showConfig,
}

var pprint = spew.ConfigState{
	Indent:                  "\t",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func showConfig(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		logErr(cmd, err)
		return err
	}
	pprint.Fdump(cmd.OutOrStdout(), s)
	return nil
}
