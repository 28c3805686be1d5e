package main

import (
	"github.com/spf13/cobra"
)

func ageCmd() *cobra.Command {
	var (
		file         string
		date         string
		ledger       string
		bucket       string
		counterparty string
		status       string
		search       string
		flagged      bool
	)

	cmd := &cobra.Command{
		Use:   "age",
		Short: "Classify records into aging buckets and filter them",
		Long: `Classify records into aging buckets at a reference date, filter them and print
the filtered rows, totals and bucket distribution as JSON.

Records are read from --file, or from the configured store when no file is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			criteria := map[string]interface{}{
				"bucket":       bucket,
				"counterparty": counterparty,
				"status":       status,
				"search":       search,
			}
			if cmd.Flags().Changed("include-flagged") {
				criteria["include_flagged"] = flagged
			}

			fields := map[string]interface{}{
				"reference_date": referenceDate(date),
				"ledger":         ledger,
				"criteria":       criteria,
			}
			if file != "" {
				records, err := readRecords(file)
				if err != nil {
					return err
				}
				fields["records"] = records
			}

			req, err := newRequest(fields)
			if err != nil {
				return err
			}

			resp, err := a.server.ClassifyAndFilter(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON records file")
	cmd.Flags().StringVar(&date, "date", "", "reference date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&ledger, "ledger", "receivable", "ledger to read from the store (receivable, payable)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "only records in this bucket, e.g. 31-60")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "only records of this counterparty")
	cmd.Flags().StringVar(&status, "status", "", "only records with this display status")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive search over id and counterparty")
	cmd.Flags().BoolVar(&flagged, "include-flagged", true, "include disputed and on-hold records")

	return cmd
}
