package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyverse-de/terrain-cli/internal/cli"
	"github.com/cyverse-de/terrain-cli/internal/credential"
)

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "authenticate and cache a credential for the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient(cmd)
			if err != nil {
				return err
			}
			token, err := client.Login(cmd.Context())
			if err != nil {
				return err
			}
			user, _ := credential.Subject(token)
			fmt.Fprintf(cmd.OutOrStdout(), "logged in to %s as %s\n", client.Environment(), user)
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "show who the cached credential belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient(cmd)
			if err != nil {
				return err
			}
			token, err := client.Token(cmd.Context())
			if err != nil {
				return err
			}

			id := cli.Identity{Environment: client.Environment()}
			id.Username, _ = credential.Subject(token)
			if exp, ok := credential.ExpiresAt(token); ok {
				id.ExpiresAt = &exp
			}
			return cli.NewPrinter(cmd.OutOrStdout(), jsonMode).Identity(id)
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "output JSON")
	return cmd
}
