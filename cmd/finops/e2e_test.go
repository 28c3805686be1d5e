//go:build integration

package main

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/simaogato/finops-backend/internal/adapter/grpc"
	"github.com/simaogato/finops-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/finops-backend/internal/domain"
)

// These tests run against a live `finops serve` backed by the same postgres database:
//
//	FINOPS_STORE_DRIVER=postgres FINOPS_STORE_DSN=... finops serve
//	go test -tags integration ./cmd/finops/...
var (
	db       *sqlstore.DB
	grpcConn *grpc.ClientConn
	recordID string // Overdue receivable created for this run
)

// TestMain sets up the test environment
func TestMain(m *testing.M) {
	ctx := context.Background()

	// 1. Connect to Database
	var err error
	db, err = sqlstore.Open(sqlstore.DriverPostgres, getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	if err := db.Migrate(ctx); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}

	// 2. Connect to gRPC Server
	grpcConn, err = grpc.NewClient(getGRPCAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}

	// 3. Self-Healing Setup: a reminder rule and a fresh overdue receivable
	if err := setupFixtures(ctx); err != nil {
		panic(fmt.Sprintf("Failed to setup fixtures: %v", err))
	}

	code := m.Run()

	grpcConn.Close()
	db.Close()
	os.Exit(code)
}

func setupFixtures(ctx context.Context) error {
	rule := &domain.AutomationRule{
		ID:        "rule-e2e-remind",
		Field:     domain.FieldDaysOverdue,
		Operator:  domain.OperatorGreaterEqual,
		Threshold: decimal.NewFromInt(1),
		Action:    domain.ActionSendReminder,
		Enabled:   true,
	}
	if err := sqlstore.NewRuleRepository(db).Save(ctx, rule); err != nil {
		return fmt.Errorf("failed to save reminder rule: %w", err)
	}

	today := domain.Day(time.Now().UTC())
	recordID = "E2E-" + uuid.NewString()
	record := &domain.FinancialRecord{
		ID:               recordID,
		CounterpartyName: "Acme Corp",
		IssueDate:        today.AddDate(0, 0, -70),
		DueDate:          today.AddDate(0, 0, -40),
		Amount:           decimal.RequireFromString("1250.00"),
		Status:           domain.StatusOpen,
		SourceSystem:     "Invoice Center",
		Ledger:           domain.LedgerReceivable,
	}
	if err := sqlstore.NewRecordRepository(db).Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save receivable: %w", err)
	}

	return nil
}

// getAuthContext returns a context with authorization metadata
func getAuthContext() context.Context {
	md := metadata.New(map[string]string{
		"authorization": getEnv("API_TOKEN", "dev-token"),
	})
	return metadata.NewOutgoingContext(context.Background(), md)
}

// getDBConnectionString returns the database connection string from environment or defaults
func getDBConnectionString() string {
	if dsn := os.Getenv("FINOPS_STORE_DSN"); dsn != "" {
		return dsn
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "finops"),
	)
}

// getGRPCAddress returns the gRPC server address from environment or defaults
func getGRPCAddress() string {
	return getEnv("GRPC_ADDRESS", "localhost:8080")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func call(t *testing.T, ctx context.Context, method, body string) (map[string]interface{}, error) {
	t.Helper()

	req := new(structpb.Struct)
	require.NoError(t, protojson.Unmarshal([]byte(body), req))

	resp := new(structpb.Struct)
	if err := grpcConn.Invoke(ctx, "/"+grpcadapter.ServiceName+"/"+method, req, resp); err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

func countRows(t *testing.T, query string) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRowContext(context.Background(), query, recordID).Scan(&count))
	return count
}

// TestEndToEndFlow tests the complete collections flow: cycle -> outcome -> follow-up -> overview
func TestEndToEndFlow(t *testing.T) {
	ctx := getAuthContext()
	today := time.Now().UTC().Format(dateLayout)

	// Step A: Unauthenticated calls are rejected
	_, err := call(t, context.Background(), "GetOverview", fmt.Sprintf(`{"reference_date": %q}`, today))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	// Step B: First cycle opens and schedules the reminder, and escalates once
	cycle, err := call(t, ctx, "RunReminderCycle", fmt.Sprintf(`{"reference_date": %q}`, today))
	require.NoError(t, err, "RunReminderCycle should succeed")
	assert.Contains(t, cycle["escalated"], recordID)

	attemptsQuery := `SELECT COUNT(*) FROM reminder_attempts WHERE record_id = $1`
	assert.Equal(t, 2, countRows(t, attemptsQuery), "not_sent and scheduled snapshots should be stored")
	assert.Equal(t, 1, countRows(t, `SELECT COUNT(*) FROM escalations WHERE record_id = $1`))

	// Step C: A second cycle is a no-op for this record
	cycle, err = call(t, ctx, "RunReminderCycle", fmt.Sprintf(`{"reference_date": %q}`, today))
	require.NoError(t, err)
	assert.NotContains(t, cycle["escalated"], recordID)
	assert.Equal(t, 2, countRows(t, attemptsQuery))

	// Step D: The provider reports the send
	outcome, err := call(t, ctx, "ReportReminderOutcome", fmt.Sprintf(`{"record_id": %q, "outcome": "sent"}`, recordID))
	require.NoError(t, err, "ReportReminderOutcome should succeed")
	attempt := outcome["attempt"].(map[string]interface{})
	assert.Equal(t, "sent", attempt["status"])
	assert.Equal(t, float64(1), attempt["attempt_count"])

	// Step E: The next cycle schedules the follow-up
	_, err = call(t, ctx, "RunReminderCycle", fmt.Sprintf(`{"reference_date": %q}`, today))
	require.NoError(t, err)
	assert.Equal(t, 4, countRows(t, attemptsQuery))

	var latestStatus string
	err = db.QueryRowContext(context.Background(),
		`SELECT status FROM reminder_attempts WHERE record_id = $1 ORDER BY seq DESC LIMIT 1`, recordID,
	).Scan(&latestStatus)
	require.NoError(t, err)
	assert.Equal(t, "scheduled", latestStatus)

	// Step F: The record shows up in the overview
	overview, err := call(t, ctx, "GetOverview", fmt.Sprintf(`{"reference_date": %q}`, today))
	require.NoError(t, err, "GetOverview should succeed")
	receivables := overview["receivables"].(map[string]interface{})
	aggregate := receivables["aggregate"].(map[string]interface{})
	assert.GreaterOrEqual(t, aggregate["count"].(float64), float64(1))
}
