package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL    string
	configPath   string
	noAutoStart  bool
	outputFormat string
	rootCmd      = &cobra.Command{
		Use:   "mediafetch",
		Short: "mediafetch CLI - submit and follow media downloads",
		Long: `A command-line client for the mediafetch server: submit downloads, follow
their progress live, browse finished files and run diagnostics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !validOutput(outputFormat) {
				return fmt.Errorf("invalid --output %q (table, json, yaml)", outputFormat)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file passed to an auto-started server")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputTable, "Output format: table, json, yaml")

	rootCmd.AddCommand(
		submitCmd,
		statusCmd,
		watchCmd,
		cancelCmd,
		tasksCmd,
		taskCmd,
		statsCmd,
		filesCmd,
		diagCmd,
		clearCacheCmd,
		updateExtractorCmd,
		logsCmd,
	)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := newServerLauncher(serverURL, configPath).ensure(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func client() *apiClient {
	ensureServer()
	return newAPIClient(serverURL)
}

func stdout() *printer {
	return &printer{format: outputFormat, out: os.Stdout}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
