package main

import (
	"github.com/spf13/cobra"
)

func remindCmd() *cobra.Command {
	var (
		file     string
		date     string
		dispatch bool
	)

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run one reminder cycle over the overdue receivables",
		Long: `Evaluate the automation rules against every overdue receivable, advance the
reminder cadence and, with --dispatch, hand due reminders to the dispatcher.

Records are read from --file, or from the configured store when no file is given.
Use a persistent store (sqlite3, postgres or redis) to keep the reminder history between runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			fields := map[string]interface{}{
				"reference_date": referenceDate(date),
				"dispatch":       dispatch,
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

			resp, err := a.server.RunReminderCycle(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON records file")
	cmd.Flags().StringVar(&date, "date", "", "reference date, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&dispatch, "dispatch", false, "hand due reminders to the dispatcher")

	return cmd
}
