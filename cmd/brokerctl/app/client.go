package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"identity-broker/internal/auth"
	"identity-broker/internal/client"
	"identity-broker/internal/logger"
)

type clientCreateFlags struct {
	Name         string
	RedirectURLs []string
	Origins      []string
}

func newClientCmd(flags *DatabaseFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage registered client applications",
	}
	cmd.AddCommand(newClientCreateCmd(flags), newClientShowCmd(flags))
	return cmd
}

func newClientCreateCmd(flags *DatabaseFlags) *cobra.Command {
	var create clientCreateFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a client and print its secret",
		Long: `Register a client application allowed to receive tokens.

Redirect URLs are matched byte for byte, so register every exact URL the
application will send. The client secret is printed once and cannot be
recovered afterwards.

Examples:
	$ brokerctl client create --name shop --redirect-url https://shop.example.com/cb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			reg := client.NewRegistry(client.NewSQLStore(d))
			c, err := reg.Register(cmd.Context(), create.Name, create.Origins, create.RedirectURLs)
			if err != nil {
				return err
			}
			logger.Info("client registered", map[string]any{"client_id": c.PublicID})

			return writeJSON(cmd.OutOrStdout(), struct {
				*client.Client
				Secret string `json:"clientSecret"`
			}{Client: c, Secret: c.Secret})
		},
	}
	cmd.Flags().StringVar(&create.Name, "name", "", "display name of the application")
	cmd.Flags().StringArrayVar(&create.RedirectURLs, "redirect-url", nil, "allowed redirect URL (repeatable)")
	cmd.Flags().StringArrayVar(&create.Origins, "origin", nil, "allowed origin (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("redirect-url")
	return cmd
}

func newClientShowCmd(flags *DatabaseFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show PUBLIC_ID",
		Short: "Print a registered client without its secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			c, err := client.NewRegistry(client.NewSQLStore(d)).Lookup(cmd.Context(), args[0])
			if errors.Is(err, auth.ErrUnknownClient) {
				return fmt.Errorf("no client with id %q", args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), c)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
