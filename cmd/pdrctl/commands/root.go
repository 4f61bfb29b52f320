// Package commands implements the pdrctl inspector CLI: read-oriented
// commands against a running pdrhubd's debug API, plus local
// change-event tooling for exercising the wire codec.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"

	// apiBase is the debug API base URL.
	apiBase string
)

var rootCmd = &cobra.Command{
	Use:   "pdrctl",
	Short: "pdrctl - pdrhub inspector",
	Long: `pdrctl inspects a running pdrhubd through its debug API: repository
aggregates, the record index, terminus sync state. It can also compose
and inject PDR repository change events for development.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		rootCmd.PrintErrf("Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "http://localhost:8090", "pdrhubd debug API base URL")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(terminiCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(eventCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pdrctl %s\n", Version)
	},
}

// getJSON fetches path from the debug API and decodes the response.
func getJSON(path string, out any) error {
	resp, err := http.Get(apiBase + path)
	if err != nil {
		return fmt.Errorf("debug API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("debug API answered %s: %s", resp.Status, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
