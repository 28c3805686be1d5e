package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadRecords(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Array", `[{"id": "INV-1", "amount": "10"}, {"id": "INV-2", "amount": 20}]`},
		{"Object", `{"records": [{"id": "INV-1", "amount": "10"}, {"id": "INV-2", "amount": 20}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := readRecords(writeFile(t, tt.body))
			require.NoError(t, err)
			require.Len(t, records, 2)

			req, err := newRequest(map[string]interface{}{"records": records})
			require.NoError(t, err)
			assert.Len(t, req.Fields["records"].GetListValue().GetValues(), 2)
		})
	}
}

func TestReadRecords_Errors(t *testing.T) {
	_, err := readRecords(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = readRecords(writeFile(t, `not json`))
	assert.Error(t, err)
}

func TestReferenceDate(t *testing.T) {
	assert.Equal(t, "2026-02-10", referenceDate("2026-02-10"))
	assert.Len(t, referenceDate(""), len(dateLayout))
}
