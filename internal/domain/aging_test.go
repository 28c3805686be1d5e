package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundaries_Validate(t *testing.T) {
	tests := []struct {
		name       string
		boundaries Boundaries
		wantErr    bool
	}{
		{name: "default", boundaries: DefaultBoundaries(), wantErr: false},
		{name: "single boundary", boundaries: Boundaries{45}, wantErr: false},
		{name: "empty", boundaries: Boundaries{}, wantErr: true},
		{name: "zero first boundary", boundaries: Boundaries{0, 30}, wantErr: true},
		{name: "equal neighbours", boundaries: Boundaries{30, 30, 90}, wantErr: true},
		{name: "decreasing", boundaries: Boundaries{60, 30}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.boundaries.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfiguration))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBoundaries_Labels(t *testing.T) {
	assert.Equal(t,
		[]AgingBucket{Bucket0To30, Bucket31To60, Bucket61To90, Bucket90Plus},
		DefaultBoundaries().Labels(),
	)
	assert.Equal(t, []AgingBucket{"0-15", "16-45", "45+"}, Boundaries{15, 45}.Labels())
}

func TestBoundaries_Bucket(t *testing.T) {
	b := DefaultBoundaries()

	assert.Equal(t, Bucket0To30, b.Bucket(-3))
	assert.Equal(t, Bucket0To30, b.Bucket(0))
	assert.Equal(t, Bucket0To30, b.Bucket(30))
	assert.Equal(t, Bucket31To60, b.Bucket(31))
	assert.Equal(t, Bucket61To90, b.Bucket(90))
	assert.Equal(t, Bucket90Plus, b.Bucket(91))
}

func TestBoundaries_IndexIsMonotonic(t *testing.T) {
	sets := []Boundaries{DefaultBoundaries(), {7}, {1, 2, 3}, {10, 100, 1000}}

	for _, b := range sets {
		prev := 0
		for days := 0; days <= 1200; days++ {
			idx := b.Index(days)
			assert.GreaterOrEqual(t, idx, prev, "bucket index must not decrease")
			assert.LessOrEqual(t, idx, len(b))
			prev = idx
		}
	}
}

func TestFilterCriteria_Constraints(t *testing.T) {
	none := FilterCriteria{Bucket: BucketAll, Counterparty: "all", Status: "all"}
	assert.False(t, none.BucketConstrained())
	assert.False(t, none.CounterpartyConstrained())
	assert.False(t, none.StatusConstrained())

	some := FilterCriteria{Bucket: Bucket31To60, Counterparty: "Acme Corp", Status: StatusOverdue}
	assert.True(t, some.BucketConstrained())
	assert.True(t, some.CounterpartyConstrained())
	assert.True(t, some.StatusConstrained())
}
