// Command dashctl renders a pongboard dashboard in the terminal against a
// running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
	lang      string
)

var rootCmd = &cobra.Command{
	Use:   "dashctl",
	Short: "pongboard terminal client",
	Long:  "Sign in, record matches and render the pongboard dashboard from the command line.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PONGBOARD_SERVER", "http://localhost:8080"), "pongboard server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("PONGBOARD_TOKEN"), "session token printed by 'dashctl login'")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", envOr("PONGBOARD_LANG", "en"), "display language (en, ko, ja)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(recordCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
