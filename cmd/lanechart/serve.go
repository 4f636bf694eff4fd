package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/guidoenr/lanechart/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chart analysis service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cfg.Parameters(); err != nil {
			return err
		}
		srv := web.NewServer(cfg, log.New(os.Stderr, "[web] ", log.LstdFlags))
		return srv.Start(cmd.Context())
	},
}

func init() {
	addAnalysisFlags(serveCmd)
	serveCmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "Listen port")
	serveCmd.Flags().IntVar(&cfg.MaxJobs, "max-jobs", cfg.MaxJobs, "Analyses run at once; later uploads wait queued")
	serveCmd.Flags().IntVar(&cfg.MaxUploadMB, "max-upload-mb", cfg.MaxUploadMB, "Largest accepted upload in MiB")
	rootCmd.AddCommand(serveCmd)
}
