package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AgingBucket is a derived days-past-due range label such as "31-60"
type AgingBucket string

const (
	Bucket0To30  AgingBucket = "0-30"
	Bucket31To60 AgingBucket = "31-60"
	Bucket61To90 AgingBucket = "61-90"
	Bucket90Plus AgingBucket = "90+"

	// BucketAll in a FilterCriteria means "no bucket constraint"
	BucketAll AgingBucket = "all"
)

// Boundaries are the inclusive upper day limits of every bucket except the last.
// [30, 60, 90] yields 0-30, 31-60, 61-90 and 90+.
type Boundaries []int

// DefaultBoundaries returns the standard 30/60/90 aging boundaries
func DefaultBoundaries() Boundaries {
	return Boundaries{30, 60, 90}
}

// Validate ensures the boundaries are non-empty, positive and strictly increasing
func (b Boundaries) Validate() error {
	if len(b) == 0 {
		return &ConfigurationError{Subject: "boundaries", Reason: "at least one boundary is required"}
	}
	if b[0] <= 0 {
		return &ConfigurationError{Subject: "boundaries", Reason: "first boundary must be positive"}
	}
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] {
			return &ConfigurationError{Subject: "boundaries", Reason: "must be strictly increasing"}
		}
	}
	return nil
}

// Labels returns every bucket label in ascending order
func (b Boundaries) Labels() []AgingBucket {
	labels := make([]AgingBucket, 0, len(b)+1)
	for i := range b {
		labels = append(labels, b.label(i))
	}
	return append(labels, b.label(len(b)))
}

// Index returns the position of the bucket holding daysPastDue.
// Negative input is clamped to zero. Assumes b is valid.
func (b Boundaries) Index(daysPastDue int) int {
	if daysPastDue < 0 {
		daysPastDue = 0
	}
	for i, limit := range b {
		if daysPastDue <= limit {
			return i
		}
	}
	return len(b)
}

// Bucket returns the label of the bucket holding daysPastDue. Assumes b is valid.
func (b Boundaries) Bucket(daysPastDue int) AgingBucket {
	return b.label(b.Index(daysPastDue))
}

func (b Boundaries) label(i int) AgingBucket {
	switch {
	case i == len(b):
		return AgingBucket(strconv.Itoa(b[len(b)-1]) + "+")
	case i == 0:
		return AgingBucket("0-" + strconv.Itoa(b[0]))
	default:
		return AgingBucket(strconv.Itoa(b[i-1]+1) + "-" + strconv.Itoa(b[i]))
	}
}

// ClassifiedRecord is a record annotated with its derived aging data
type ClassifiedRecord struct {
	FinancialRecord
	DaysPastDue   int
	Bucket        AgingBucket
	DisplayStatus Status
}

// FilterCriteria holds the optional filter options of a list page.
// Empty strings, "all" and a nil IncludeFlagged all mean "no constraint".
type FilterCriteria struct {
	Bucket         AgingBucket
	Counterparty   string
	Status         Status
	IncludeFlagged *bool // false excludes disputed/on-hold records
	SearchText     string
}

// BucketConstrained reports whether the criteria restrict the bucket
func (c FilterCriteria) BucketConstrained() bool {
	return c.Bucket != "" && c.Bucket != BucketAll
}

// CounterpartyConstrained reports whether the criteria restrict the counterparty
func (c FilterCriteria) CounterpartyConstrained() bool {
	return c.Counterparty != "" && !strings.EqualFold(c.Counterparty, "all")
}

// StatusConstrained reports whether the criteria restrict the status
func (c FilterCriteria) StatusConstrained() bool {
	return c.Status != "" && c.Status != "all"
}

// Bool returns a pointer to b, for optional filter flags
func Bool(b bool) *bool {
	return &b
}

// AggregateResult holds totals derived from a filtered record set
type AggregateResult struct {
	TotalAmount   decimal.Decimal
	OverdueAmount decimal.Decimal
	FlaggedAmount decimal.Decimal
	Count         int
}

// SkippedRecord is a diagnostic for a record excluded by validation
type SkippedRecord struct {
	RecordID string
	Err      error
}
