package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved project configuration",
	Long: `Print where the configuration comes from and the values dsql resolves
from it, environment included. Passwords are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, factory, err := loadProject()
		if err != nil {
			return err
		}
		status, err := factory.Status()
		if err != nil {
			return err
		}
		dialect, err := cfg.Database.ResolveDialect()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Project: %s", status)
		if status == "not_initialized" {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Driver:      %s (%s)\n", cfg.Database.Driver, cfg.Database.DriverName())
		fmt.Fprintf(w, "Dialect:     %s\n", dialect.Name())
		fmt.Fprintf(w, "Connection:  %s\n", maskPassword(cfg.Database.ConnectionString))
		fmt.Fprintf(w, "Commit:      %v\n", cfg.Defaults.Commit)
		fmt.Fprintf(w, "Dry run:     %v\n", cfg.Defaults.DryRun)
		fmt.Fprintf(w, "Journal:     %v\n", cfg.Journal.Enabled)
		fmt.Fprintf(w, "Statements:  %v\n", cfg.Statements.Paths)
		fmt.Fprintf(w, "Server:      %s\n", cfg.Server.Addr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// maskPassword hides the password of URL-shaped connection strings.
func maskPassword(conn string) string {
	u, err := url.Parse(conn)
	if err != nil || u.User == nil {
		return conn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
