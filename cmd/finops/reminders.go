package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var historyHeader = []string{
	"Invoice Number",
	"Client Name",
	"Amount",
	"Due Date",
	"Status",
	"Channel",
	"Attempt Count",
	"Last Attempt",
}

// historyRow is one entry of a ListReminderHistory response
type historyRow struct {
	RecordID         string          `json:"record_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          string          `json:"due_date"`
	Status           string          `json:"status"`
	Channel          string          `json:"channel"`
	AttemptCount     int             `json:"attempt_count"`
	LastAttemptDate  string          `json:"last_attempt_date"`
}

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Inspect the reminder history",
	}

	cmd.AddCommand(remindersHistoryCmd())
	cmd.AddCommand(remindersExportCmd())
	return cmd
}

func remindersHistoryCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the reminder history, optionally searched by invoice or client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := listHistory(cmd, query)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search invoice numbers and client names")
	return cmd
}

func remindersExportCmd() *cobra.Command {
	var (
		query  string
		output string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the reminder history as CSV",
		Long: `Write the sent and failed reminders as CSV, one row per attempt.
With --all every snapshot is written, including scheduled and not yet sent ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := listHistory(cmd, query)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			written, err := writeHistoryCSV(w, resp, all)
			if err != nil {
				return err
			}
			log.Info().Int("rows", written).Str("output", output).Msg("Reminder history exported")
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search invoice numbers and client names")
	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write (default stdout)")
	cmd.Flags().BoolVar(&all, "all", false, "include scheduled and not sent snapshots")
	return cmd
}

func listHistory(cmd *cobra.Command, query string) (*structpb.Struct, error) {
	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	req, err := newRequest(map[string]interface{}{"query": query})
	if err != nil {
		return nil, err
	}
	return a.server.ListReminderHistory(cmd.Context(), req)
}

// writeHistoryCSV writes the entries of a ListReminderHistory response as CSV and returns the row count
// Unless all is set only sent and failed attempts are written.
func writeHistoryCSV(w io.Writer, resp *structpb.Struct, all bool) (int, error) {
	data, err := protojson.Marshal(resp)
	if err != nil {
		return 0, fmt.Errorf("failed to decode history: %w", err)
	}
	var doc struct {
		Entries []historyRow `json:"entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("failed to decode history: %w", err)
	}

	out := csv.NewWriter(w)
	if err := out.Write(historyHeader); err != nil {
		return 0, err
	}

	written := 0
	for _, row := range doc.Entries {
		if !all && row.Status != "sent" && row.Status != "failed" {
			continue
		}

		lastAttempt := "N/A"
		if len(row.LastAttemptDate) >= len(dateLayout) {
			lastAttempt = row.LastAttemptDate[:len(dateLayout)]
		}

		if err := out.Write([]string{
			row.RecordID,
			row.CounterpartyName,
			row.Amount.StringFixed(2),
			row.DueDate,
			row.Status,
			row.Channel,
			strconv.Itoa(row.AttemptCount),
			lastAttempt,
		}); err != nil {
			return written, err
		}
		written++
	}

	out.Flush()
	return written, out.Error()
}
