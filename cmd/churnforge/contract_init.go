package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/churnforge/internal/config"
	"github.com/jonathan/churnforge/internal/contract"
)

func newContractInitCmd(opts *globalOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "contract-init",
		Short: "Write the default data contract",
		Long:  "Write the default data contract (target Churn, at least 5 columns, target values 0/1) as JSON. An existing contract is overwritten.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts, func(cfg *config.Config) {
				if cmd.Flags().Changed("path") {
					cfg.ContractPath = path
				}
			})
			if err != nil {
				return err
			}

			c, err := contract.Init(cfg.ContractPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "[Contract] Wrote: %s\n", cfg.ContractPath)
			if opts.verbose {
				_, _ = fmt.Fprintf(out, "  target_column: %s\n  min_columns: %d\n  allowed_target_values: %v\n  required_columns: %v\n",
					c.TargetColumn, c.MinColumns, c.AllowedTargetValues, c.RequiredColumns)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", config.DefaultContractPath, "Where to write the contract")
	return cmd
}
