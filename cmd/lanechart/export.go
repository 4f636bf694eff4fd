package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/guidoenr/lanechart/internal/chart"
)

var exportMIDI string

var exportCmd = &cobra.Command{
	Use:   "export CHART.json",
	Short: "Export a chart as a Standard MIDI File",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportMIDI == "" {
			return errors.New("--midi is required")
		}
		c, err := chart.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := chart.WriteMIDIFile(exportMIDI, c); err != nil {
			return err
		}
		logger.Printf("wrote %d notes to %s", len(c.Notes), exportMIDI)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMIDI, "midi", "", "Output .mid path")
	rootCmd.AddCommand(exportCmd)
}
