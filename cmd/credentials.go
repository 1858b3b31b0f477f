package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/teetime-sniper/internal/config"
	"github.com/example/teetime-sniper/internal/credentials"
)

func newCredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cred",
		Short: "Manage stored booking-site credentials",
	}
	cmd.AddCommand(newCredSetCmd())
	return cmd
}

func newCredSetCmd() *cobra.Command {
	var name, username, password string
	c := &cobra.Command{
		Use:   "set",
		Short: "Store (or replace) encrypted login credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			aead, err := newAEAD(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			err = credentials.NewRepo(d, aead).Set(ctx, credentials.Credentials{
				Name:     name,
				Username: username,
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "stored credentials %q\n", name)
			return nil
		},
	}
	c.Flags().StringVar(&name, "name", "", "credentials name")
	c.Flags().StringVar(&username, "username", "", "login username")
	c.Flags().StringVar(&password, "password", "", "login password")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
