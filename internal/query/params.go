package query

import (
	"net/url"
	"strconv"
	"strings"

	"spendwise/internal/apperror"
)

// ParseValues reads the expense listing query string: page, limit,
// start_date, end_date, min_amount, max_amount, repeated category, sort_by
// and order. Missing values take their defaults; present but non-numeric
// page or limit values are rejected.
func ParseValues(values url.Values) (FilterParams, ListParams, error) {
	filters := FilterParams{
		StartDate:  values.Get("start_date"),
		EndDate:    values.Get("end_date"),
		MinAmount:  values.Get("min_amount"),
		MaxAmount:  values.Get("max_amount"),
		Categories: values["category"],
	}

	list := DefaultListParams()
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return FilterParams{}, ListParams{}, apperror.NewValidationError("invalid page: must be an integer", err)
		}
		list.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return FilterParams{}, ListParams{}, apperror.NewValidationError("invalid limit: must be an integer", err)
		}
		list.Limit = limit
	}
	if v := strings.TrimSpace(values.Get("sort_by")); v != "" {
		list.SortBy = v
	}
	list.Order = values.Get("order")

	return filters, list, nil
}
