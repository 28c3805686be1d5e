package main

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func applyPaymentCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "apply-payment <record-id>...",
		Short: "Apply a customer payment to open receivables",
		Long: `Allocate a payment across the given receivables, oldest due date first.
Each record's open balance is reduced and a fully covered record is marked paid.
Any amount left over is reported as unapplied.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := decimal.NewFromString(amount)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ids := make([]interface{}, 0, len(args))
			for _, id := range args {
				ids = append(ids, id)
			}

			req, err := newRequest(map[string]interface{}{
				"amount":     total.String(),
				"record_ids": ids,
			})
			if err != nil {
				return err
			}

			resp, err := a.server.ApplyPayment(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "payment amount")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
