package main

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List, save and delete automation rules",
		Long: `Manage the "IF field operator threshold THEN action" rules the reminder cycle evaluates.
Rules live in the configured store; changes apply from the next cycle.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesSaveCmd())
	cmd.AddCommand(rulesDeleteCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every automation rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := newRequest(map[string]interface{}{})
			if err != nil {
				return err
			}

			resp, err := a.server.ListRules(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
}

func rulesSaveCmd() *cobra.Command {
	var (
		id        string
		field     string
		operator  string
		threshold string
		action    string
		disabled  bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or replace an automation rule",
		Example: `  finops rules save --field daysOverdue --operator ">=" --threshold 14 --action send_reminder
  finops rules save --id rule-default-at-risk --field daysOverdue --operator ">" --threshold 30 --action mark_at_risk --disabled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := decimal.NewFromString(threshold)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := newRequest(map[string]interface{}{
				"rule": map[string]interface{}{
					"id":        id,
					"field":     field,
					"operator":  operator,
					"threshold": value.String(),
					"action":    action,
					"enabled":   !disabled,
				},
			})
			if err != nil {
				return err
			}

			resp, err := a.server.SaveRule(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "rule id, generated when empty; an existing id is replaced")
	cmd.Flags().StringVar(&field, "field", "daysOverdue", "record field (daysOverdue, amount, riskScore)")
	cmd.Flags().StringVar(&operator, "operator", ">", "comparison (>, >=, <)")
	cmd.Flags().StringVar(&threshold, "threshold", "", "threshold the field is compared with")
	cmd.Flags().StringVar(&action, "action", "", "action (mark_at_risk, send_reminder, escalate)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "save the rule switched off")
	_ = cmd.MarkFlagRequired("threshold")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete an automation rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := newRequest(map[string]interface{}{"id": args[0]})
			if err != nil {
				return err
			}

			resp, err := a.server.DeleteRule(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
}
