package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tuannm99/soliddb/internal/engine"
)

func init() {
	rootCmd.AddCommand(listCmd, execCmd, configCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the databases in the data dir",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := engine.ListDatabases(afero.NewOsFs(), cfg.Storage.Workdir)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var execDatabase string

var execCmd = &cobra.Command{
	Use:   "exec [statement]",
	Short: "Runs one statement and exits",
	Long: `Runs one statement and exits. With --db the database is selected first.
The database is saved before the command returns.`,
	Example: `  soliddb exec --db shop "SELECT * FROM users WHERE id=1"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		s := newSession()
		defer func() {
			if cerr := s.Close(); err == nil {
				err = cerr
			}
		}()

		out := cmd.OutOrStdout()
		if execDatabase != "" {
			if _, err := s.Exec("USE " + execDatabase); err != nil {
				return err
			}
		}
		res, err := s.Exec(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printResult(out, res)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the effective configuration as yaml",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	execCmd.Flags().StringVar(&execDatabase, "db", "", "database to use")
}
