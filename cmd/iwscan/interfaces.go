package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/iwscan/internal/iface"
	"github.com/spf13/cobra"
)

// NewInterfacesCmd creates the interfaces command.
func NewInterfacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interfaces",
		Short: "List wireless interfaces",
		Long: `Interfaces lists the wireless interfaces the kernel reports over nl80211.
These are the interfaces "iwscan scan" uses when none are given and the
configuration file lists none.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOutput, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return listInterfaces(cmd.OutOrStdout(), iface.NewLister(), jsonOutput)
		},
	}

	cmd.Flags().BoolP("json", "j", false, "Output interfaces in JSON format")

	return cmd
}

// listInterfaces writes the interfaces found by lister.
func listInterfaces(out io.Writer, lister iface.Lister, jsonOutput bool) error {
	ifaces, err := lister.List()
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ifaces)
	}

	fmt.Fprintf(out, "Wireless interfaces (%d):\n\n", len(ifaces))
	fmt.Fprintf(out, "  %-16s  %-17s  %-12s  %s\n", "NAME", "ADDRESS", "TYPE", "PHY")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 56))
	for _, it := range ifaces {
		addr := it.HardwareAddr
		if addr == "" {
			addr = "-"
		}
		fmt.Fprintf(out, "  %-16s  %-17s  %-12s  %d\n", it.Name, addr, it.Type, it.PHY)
	}

	return nil
}
