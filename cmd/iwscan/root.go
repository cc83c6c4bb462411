package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for iwscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iwscan",
		Short: "Scan and report nearby wireless access points",
		Long: `iwscan scans wireless interfaces with iwlist and reports the access points in range.

A fresh scan needs root privileges. iwscan first tries a privileged scan
through sudo and falls back to the results the kernel has cached, retrying
until the kernel has some.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("mask-addresses", false,
		"Mask the device half of hardware addresses in log output")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewParseCmd())
	cmd.AddCommand(NewInterfacesCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
