package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guidoenr/lanechart/internal/params"
)

var presetsOpts struct {
	show string
	save string
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List parameter presets, or print and save one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if presetsOpts.show == "" && presetsOpts.save == "" {
			fmt.Fprintln(out, strings.Join(params.PresetNames(), "\n"))
			return nil
		}

		p, err := params.Preset(presetsOpts.show)
		if err != nil {
			return err
		}
		if presetsOpts.save != "" {
			return params.Save(presetsOpts.save, p)
		}
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	},
}

func init() {
	presetsCmd.Flags().StringVar(&presetsOpts.show, "show", "", "Print the values of this preset")
	presetsCmd.Flags().StringVar(&presetsOpts.save, "save", "", "Write the --show preset to a parameter file for editing")
	rootCmd.AddCommand(presetsCmd)
}
