package main

import (
	"fmt"

	"github.com/lutefd/pongboard/internal/client"
	"github.com/spf13/cobra"
)

var loginHouse string

var loginCmd = &cobra.Command{
	Use:   "login <intra_id>",
	Short: "Sign in a test account and print its session token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginHouse, "house", "", "house for a new account (GR, RA, SL, HU)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	res, err := client.New(serverURL).Login(cmd.Context(), args[0], loginHouse)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "signed in as %s (%s)\n", res.Nickname, res.House)
	fmt.Fprintln(cmd.OutOrStdout(), res.Token)
	return nil
}
