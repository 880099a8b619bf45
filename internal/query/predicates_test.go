package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"spendwise/internal/apperror"
	"spendwise/internal/models"
)

func TestBuildPredicatesEmpty(t *testing.T) {
	predicates, err := BuildPredicates(FilterParams{})
	require.NoError(t, err)
	assert.Empty(t, predicates)

	predicates, err = BuildPredicates(FilterParams{Categories: []string{"", "  "}})
	require.NoError(t, err)
	assert.Empty(t, predicates)
}

func TestBuildPredicatesOnePerDimension(t *testing.T) {
	predicates, err := BuildPredicates(FilterParams{
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-31T23:59:59Z",
		MinAmount:  "5",
		MaxAmount:  "99.5",
		Categories: []string{"food", "rent", "food"},
	})
	require.NoError(t, err)
	require.Len(t, predicates, 3)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "date", predicates[0].Field())
	assert.Equal(t, bson.M{"$gte": from, "$lte": to}, predicates[0].Condition())

	assert.Equal(t, "amount", predicates[1].Field())
	assert.Equal(t, bson.M{"$gte": 5.0, "$lte": 99.5}, predicates[1].Condition())

	assert.Equal(t, "category", predicates[2].Field())
	assert.Equal(t, bson.M{"$in": []string{"food", "rent"}}, predicates[2].Condition())
}

func TestBuildPredicatesOpenBounds(t *testing.T) {
	predicates, err := BuildPredicates(FilterParams{EndDate: "2024-01-05", MinAmount: "20"})
	require.NoError(t, err)
	require.Len(t, predicates, 2)

	dr := predicates[0].(DateRange)
	assert.Nil(t, dr.From)
	require.NotNil(t, dr.To)
	assert.Equal(t, bson.M{"$lte": *dr.To}, dr.Condition())

	ar := predicates[1].(AmountRange)
	assert.Nil(t, ar.Max)
	assert.Equal(t, bson.M{"$gte": 20.0}, ar.Condition())
}

func TestBuildPredicatesIsDeterministic(t *testing.T) {
	params := FilterParams{StartDate: "2024-02-01T10:00:00", MaxAmount: "10", Categories: []string{"b", "a"}}
	first, err := BuildPredicates(params)
	require.NoError(t, err)
	second, err := BuildPredicates(params)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildPredicatesRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name   string
		params FilterParams
		msg    string
	}{
		{"start date", FilterParams{StartDate: "yesterday"}, "invalid start_date"},
		{"end date", FilterParams{EndDate: "2024-13-01"}, "invalid end_date"},
		{"min amount", FilterParams{MinAmount: "ten"}, "invalid min_amount"},
		{"max amount", FilterParams{MaxAmount: "NaN"}, "invalid max_amount"},
		{"infinite amount", FilterParams{MinAmount: "Inf"}, "invalid min_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPredicates(tt.params)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.ValidationError))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseDateLayouts(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
	}{
		{"2024-01-05", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-01-05T08:30:00", time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)},
		{"2024-01-05T08:30:00.123456", time.Date(2024, 1, 5, 8, 30, 0, 123000000, time.UTC)},
		{"2024-01-05T08:30:00+02:00", time.Date(2024, 1, 5, 6, 30, 0, 0, time.UTC)},
		{" 2024-01-05T08:30:00.5Z ", time.Date(2024, 1, 5, 8, 30, 0, 500000000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseDate("05/01/2024")
	assert.Error(t, err)
}

func TestPredicateMatches(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	from, to := day(2), day(4)
	minAmount, maxAmount := 10.0, 20.0

	dr := DateRange{From: &from, To: &to}
	assert.False(t, dr.Matches(models.Expense{Date: day(1)}))
	assert.True(t, dr.Matches(models.Expense{Date: day(2)}))
	assert.True(t, dr.Matches(models.Expense{Date: day(4)}))
	assert.False(t, dr.Matches(models.Expense{Date: day(5)}))
	assert.True(t, DateRange{To: &to}.Matches(models.Expense{}), "the zero time is before any upper bound")
	assert.False(t, DateRange{From: &from}.Matches(models.Expense{}))

	ar := AmountRange{Min: &minAmount, Max: &maxAmount}
	assert.False(t, ar.Matches(models.Expense{Amount: 9.99}))
	assert.True(t, ar.Matches(models.Expense{Amount: 10}))
	assert.True(t, ar.Matches(models.Expense{Amount: 20}))
	assert.False(t, ar.Matches(models.Expense{Amount: 20.01}))

	cs := CategorySet{Names: []string{"food", "rent"}}
	assert.True(t, cs.Matches(models.Expense{Category: "rent"}))
	assert.False(t, cs.Matches(models.Expense{Category: "Food"}))
}
