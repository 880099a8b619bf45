// Package query turns optional expense filter, sort and pagination
// parameters into a plan that selects exactly one page of one user's
// expenses. Building predicates and plans is pure; execution belongs to the
// repositories.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"spendwise/internal/apperror"
	"spendwise/internal/models"
)

// Predicate is a single-field condition over an expense.
type Predicate interface {
	// Field is the expense field the predicate constrains.
	Field() string
	// Condition is the document-store form of the predicate, applied to Field.
	Condition() bson.M
	// Matches evaluates the predicate in process.
	Matches(e models.Expense) bool
}

// FilterParams holds the raw, independently optional filter inputs.
type FilterParams struct {
	StartDate  string
	EndDate    string
	MinAmount  string
	MaxAmount  string
	Categories []string
}

// DateRange keeps expenses dated within [From, To]. Either bound may be nil.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (d DateRange) Field() string { return "date" }

func (d DateRange) Condition() bson.M {
	cond := bson.M{}
	if d.From != nil {
		cond["$gte"] = *d.From
	}
	if d.To != nil {
		cond["$lte"] = *d.To
	}
	return cond
}

// Matches treats the zero time as an ordinary date, as the store does.
func (d DateRange) Matches(e models.Expense) bool {
	if d.From != nil && e.Date.Before(*d.From) {
		return false
	}
	if d.To != nil && e.Date.After(*d.To) {
		return false
	}
	return true
}

// AmountRange keeps expenses whose amount lies within [Min, Max].
type AmountRange struct {
	Min *float64
	Max *float64
}

func (a AmountRange) Field() string { return "amount" }

func (a AmountRange) Condition() bson.M {
	cond := bson.M{}
	if a.Min != nil {
		cond["$gte"] = *a.Min
	}
	if a.Max != nil {
		cond["$lte"] = *a.Max
	}
	return cond
}

func (a AmountRange) Matches(e models.Expense) bool {
	if a.Min != nil && e.Amount < *a.Min {
		return false
	}
	if a.Max != nil && e.Amount > *a.Max {
		return false
	}
	return true
}

// CategorySet keeps expenses filed under any of Names. Matching is exact.
type CategorySet struct {
	Names []string
}

func (c CategorySet) Field() string { return "category" }

func (c CategorySet) Condition() bson.M {
	return bson.M{"$in": c.Names}
}

func (c CategorySet) Matches(e models.Expense) bool {
	for _, name := range c.Names {
		if e.Category == name {
			return true
		}
	}
	return false
}

// BuildPredicates produces at most one predicate per filter dimension, in
// the order date, amount, category. Dimensions without any input are
// omitted, so empty params yield an empty set.
func BuildPredicates(params FilterParams) ([]Predicate, error) {
	var predicates []Predicate

	start, end := strings.TrimSpace(params.StartDate), strings.TrimSpace(params.EndDate)
	if start != "" || end != "" {
		var dr DateRange
		if start != "" {
			t, err := ParseDate(start)
			if err != nil {
				return nil, apperror.NewValidationError("invalid start_date", err)
			}
			dr.From = &t
		}
		if end != "" {
			t, err := ParseDate(end)
			if err != nil {
				return nil, apperror.NewValidationError("invalid end_date", err)
			}
			dr.To = &t
		}
		predicates = append(predicates, dr)
	}

	minStr, maxStr := strings.TrimSpace(params.MinAmount), strings.TrimSpace(params.MaxAmount)
	if minStr != "" || maxStr != "" {
		var ar AmountRange
		if minStr != "" {
			v, err := parseAmount(minStr)
			if err != nil {
				return nil, apperror.NewValidationError("invalid min_amount", err)
			}
			ar.Min = &v
		}
		if maxStr != "" {
			v, err := parseAmount(maxStr)
			if err != nil {
				return nil, apperror.NewValidationError("invalid max_amount", err)
			}
			ar.Max = &v
		}
		predicates = append(predicates, ar)
	}

	if names := uniqueNames(params.Categories); len(names) > 0 {
		predicates = append(predicates, CategorySet{Names: names})
	}

	return predicates, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC3339 timestamps, naive ISO-8601 timestamps and plain
// dates. Values without a zone are read as UTC. The result is truncated to
// the store's millisecond precision.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date or timestamp", value)
}

func parseAmount(value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", value)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", value)
	}
	return v, nil
}

func uniqueNames(names []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
