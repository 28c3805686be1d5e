package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simaogato/finops-backend/internal/adapter/ofx"
	"github.com/simaogato/finops-backend/internal/domain"
)

func importOFXCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-ofx <file>",
		Short: "Import bank statement transactions as cash in and cash out records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			records, err := ofx.NewImporter(log).Parse(cmd.Context(), f)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			counts := make(map[domain.Ledger]int)
			for i := range records {
				if err := a.records.Save(cmd.Context(), &records[i]); err != nil {
					return fmt.Errorf("failed to save record %s: %w", records[i].ID, err)
				}
				counts[records[i].Ledger]++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records (%d cash in, %d cash out)\n",
				len(records), counts[domain.LedgerCashIn], counts[domain.LedgerCashOut])
			return nil
		},
	}
}
