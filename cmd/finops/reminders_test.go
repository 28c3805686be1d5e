package main

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func historyResponse(t *testing.T) *structpb.Struct {
	t.Helper()
	resp, err := structpb.NewStruct(map[string]interface{}{
		"entries": []interface{}{
			map[string]interface{}{
				"record_id": "INV-1", "counterparty_name": "Acme Corp", "amount": "1000",
				"due_date": "2026-01-01", "status": "scheduled", "channel": "email", "attempt_count": 0,
			},
			map[string]interface{}{
				"record_id": "INV-1", "counterparty_name": "Acme Corp", "amount": "1000",
				"due_date": "2026-01-01", "status": "sent", "channel": "email", "attempt_count": 1,
				"last_attempt_date": "2026-02-10T09:00:00Z",
			},
			map[string]interface{}{
				"record_id": "INV-2", "counterparty_name": "Globex, Inc.", "amount": "500.5",
				"due_date": "2026-02-05", "status": "failed", "channel": "sms", "attempt_count": 3,
				"last_attempt_date": "2026-02-12T10:30:00Z",
			},
		},
	})
	require.NoError(t, err)
	return resp
}

func TestWriteHistoryCSV(t *testing.T) {
	var buf bytes.Buffer

	written, err := writeHistoryCSV(&buf, historyResponse(t), false)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, historyHeader, rows[0])
	assert.Equal(t, []string{"INV-1", "Acme Corp", "1000.00", "2026-01-01", "sent", "email", "1", "2026-02-10"}, rows[1])
	// Commas in client names stay inside one quoted cell
	assert.Equal(t, []string{"INV-2", "Globex, Inc.", "500.50", "2026-02-05", "failed", "sms", "3", "2026-02-12"}, rows[2])
}

func TestWriteHistoryCSV_All(t *testing.T) {
	var buf bytes.Buffer

	written, err := writeHistoryCSV(&buf, historyResponse(t), true)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "scheduled", rows[1][4])
	assert.Equal(t, "N/A", rows[1][7])
}

func TestWriteHistoryCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	resp, err := structpb.NewStruct(map[string]interface{}{"entries": []interface{}{}})
	require.NoError(t, err)

	written, err := writeHistoryCSV(&buf, resp, false)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, "Invoice Number,Client Name,Amount,Due Date,Status,Channel,Attempt Count,Last Attempt\n", buf.String())
}
