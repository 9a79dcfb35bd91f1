package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/churnforge/internal/config"
	"github.com/jonathan/churnforge/internal/contract"
	"github.com/jonathan/churnforge/internal/observability"
	"github.com/jonathan/churnforge/internal/table"
	"github.com/jonathan/churnforge/internal/target"
)

func newContractValidateCmd(opts *globalOptions) *cobra.Command {
	var dataPath, contractPath, reportPath string

	cmd := &cobra.Command{
		Use:   "contract-validate",
		Short: "Check a dataset against the data contract",
		Long: `Normalize the dataset's target column, check it against the data contract and write a JSON report.

Exits 1 when the dataset violates the contract or the contract is missing.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts, func(cfg *config.Config) {
				if cmd.Flags().Changed("data") {
					cfg.DataPath = dataPath
				}
				if cmd.Flags().Changed("contract") {
					cfg.ContractPath = contractPath
				}
				if cmd.Flags().Changed("report") {
					cfg.ReportPath = reportPath
				}
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			raw, err := table.ReadCSV(cfg.DataPath)
			if err != nil {
				return datasetError(err)
			}
			normalized, err := target.Normalize(raw, target.DefaultColumn)
			if err != nil {
				return err
			}

			c, err := contract.Load(cfg.ContractPath)
			if err != nil {
				if errors.Is(err, contract.ErrContractMissing) {
					return &exitError{code: exitFailure, err: fmt.Errorf("missing contract at %s, run `churnforge contract-init` first", cfg.ContractPath)}
				}
				return err
			}

			report := contract.Validate(normalized, c)
			if err := contract.WriteReport(cfg.ReportPath, report); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "[Contract] Validation success=%t. Report: %s\n", report.Success, cfg.ReportPath)
			for _, e := range report.Errors {
				_, _ = fmt.Fprintf(out, "  - %s\n", e)
			}
			if opts.verbose {
				observability.NewPrinter(out).PrintReport(&report)
			}

			if !report.Success {
				return &exitError{code: exitFailure}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", config.DefaultDataPath, "Path to the raw churn CSV")
	cmd.Flags().StringVar(&contractPath, "contract", config.DefaultContractPath, "Path to the data contract")
	cmd.Flags().StringVar(&reportPath, "report", config.DefaultReportPath, "Where to write the validation report")
	return cmd
}

// datasetError adds the expected dataset location to a missing-file error.
func datasetError(err error) error {
	var notFound *table.DatasetNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w (place the churn CSV there or pass --data)", err)
	}
	return err
}
