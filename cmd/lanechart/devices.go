package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guidoenr/lanechart/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := audio.ListDevices()
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n=== Audio Devices ===\n\n")
		for _, dev := range devices {
			fmt.Fprintf(out, "- %s\n", dev)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
