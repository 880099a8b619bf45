package query

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spendwise/internal/apperror"
	"spendwise/internal/models"
)

const (
	DefaultPage      = 1
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultSortField = "date"

	expensesField       = "expenses"
	missingSortKeyField = "_sort_key_missing"
)

type SortOrder int

const (
	Ascending  SortOrder = 1
	Descending SortOrder = -1
)

func (o SortOrder) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

// ParseSortOrder accepts "asc" or "desc" in any case; empty means descending.
func ParseSortOrder(value string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "desc":
		return Descending, nil
	case "asc":
		return Ascending, nil
	default:
		return 0, apperror.NewValidationError(fmt.Sprintf("invalid order %q: must be 'asc' or 'desc'", value), nil)
	}
}

var sortFields = map[string]string{
	"date":        "date",
	"amount":      "amount",
	"category":    "category",
	"description": "description",
	"_id":         "_id",
	"id":          "_id",
}

// ListParams carries sort and pagination input. Page is 1-based.
type ListParams struct {
	Page   int
	Limit  int
	SortBy string
	Order  string
}

func DefaultListParams() ListParams {
	return ListParams{Page: DefaultPage, Limit: DefaultLimit, SortBy: DefaultSortField}
}

// Plan fully determines one page of one user's expenses.
type Plan struct {
	UserID     primitive.ObjectID
	Predicates []Predicate
	SortField  string
	Order      SortOrder
	Skip       int64
	Limit      int64
}

// NewPlan validates the pagination and sort input and combines it with the
// predicates. The owner scope is always part of the plan.
func NewPlan(userID primitive.ObjectID, predicates []Predicate, params ListParams) (*Plan, error) {
	if userID.IsZero() {
		return nil, apperror.NewAuthError("missing user identity", nil)
	}
	if params.Page < 1 {
		return nil, apperror.NewValidationError(fmt.Sprintf("invalid page %d: must be 1 or greater", params.Page), nil)
	}
	if params.Limit < 1 || params.Limit > MaxLimit {
		return nil, apperror.NewValidationError(fmt.Sprintf("invalid limit %d: must be between 1 and %d", params.Limit, MaxLimit), nil)
	}

	if int64(params.Page-1) > math.MaxInt64/int64(params.Limit) {
		return nil, apperror.NewValidationError(fmt.Sprintf("invalid page %d: offset overflows for limit %d", params.Page, params.Limit), nil)
	}

	sortBy := strings.TrimSpace(params.SortBy)
	if sortBy == "" {
		sortBy = DefaultSortField
	}
	field, ok := sortFields[sortBy]
	if !ok {
		return nil, apperror.NewValidationError(fmt.Sprintf("invalid sort_by %q: must be one of date, amount, category, description, _id", params.SortBy), nil)
	}

	order, err := ParseSortOrder(params.Order)
	if err != nil {
		return nil, err
	}

	return &Plan{
		UserID:     userID,
		Predicates: predicates,
		SortField:  field,
		Order:      order,
		Skip:       int64(params.Page-1) * int64(params.Limit),
		Limit:      int64(params.Limit),
	}, nil
}

// Offset is the number of matching records skipped before the page.
func (p *Plan) Offset() int64 {
	return p.Skip
}

// MatchStage is the conjunction applied to unwound expenses: the owner
// scope followed by every predicate, each scoped to the embedded expense.
func (p *Plan) MatchStage() bson.D {
	match := bson.D{{Key: "_id", Value: p.UserID}}
	for _, pred := range p.Predicates {
		match = append(match, bson.E{Key: expensesField + "." + pred.Field(), Value: pred.Condition()})
	}
	return match
}

// SortStage orders records that lack the sort key last, then by the
// requested key and direction, then by expense id ascending.
func (p *Plan) SortStage() bson.D {
	sortKey := expensesField + "." + p.SortField
	keys := bson.D{
		{Key: missingSortKeyField, Value: 1},
		{Key: sortKey, Value: int(p.Order)},
	}
	if p.SortField != "_id" {
		keys = append(keys, bson.E{Key: expensesField + "._id", Value: 1})
	}
	return keys
}

// Pipeline renders the plan as an aggregation over the users collection.
func (p *Plan) Pipeline() mongo.Pipeline {
	sortKey := "$" + expensesField + "." + p.SortField
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: p.UserID}}}},
		{{Key: "$unwind", Value: "$" + expensesField}},
		{{Key: "$match", Value: p.MatchStage()}},
		{{Key: "$addFields", Value: bson.D{{Key: missingSortKeyField, Value: bson.D{
			{Key: "$eq", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{sortKey, nil}}}, nil}},
		}}}}},
		{{Key: "$sort", Value: p.SortStage()}},
		{{Key: "$skip", Value: p.Skip}},
		{{Key: "$limit", Value: p.Limit}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$" + expensesField}}}},
	}
}

// Apply evaluates the plan over one user's expenses in process. The caller
// is responsible for passing only the planned user's records.
func (p *Plan) Apply(expenses []models.Expense) []models.Expense {
	matched := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if p.matches(e) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return p.less(matched[i], matched[j])
	})

	total := int64(len(matched))
	start := min(p.Skip, total)
	end := min(start+p.Limit, total)
	return matched[start:end]
}

func (p *Plan) matches(e models.Expense) bool {
	for _, pred := range p.Predicates {
		if !pred.Matches(e) {
			return false
		}
	}
	return true
}

func (p *Plan) less(a, b models.Expense) bool {
	aMissing, bMissing := p.missingSortKey(a), p.missingSortKey(b)
	if aMissing != bMissing {
		return bMissing
	}
	if c := p.compare(a, b); c != 0 {
		if p.Order == Ascending {
			return c < 0
		}
		return c > 0
	}
	return a.ID < b.ID
}

// missingSortKey mirrors which fields the store omits: only an empty
// description is left out of the document.
func (p *Plan) missingSortKey(e models.Expense) bool {
	return p.SortField == "description" && e.Description == ""
}

func (p *Plan) compare(a, b models.Expense) int {
	switch p.SortField {
	case "date":
		return a.Date.Compare(b.Date)
	case "amount":
		switch {
		case a.Amount < b.Amount:
			return -1
		case a.Amount > b.Amount:
			return 1
		}
		return 0
	case "category":
		return strings.Compare(a.Category, b.Category)
	case "description":
		return strings.Compare(a.Description, b.Description)
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

func (p *Plan) MarshalZerologObject(e *zerolog.Event) {
	fields := make([]string, 0, len(p.Predicates))
	for _, pred := range p.Predicates {
		fields = append(fields, pred.Field())
	}
	e.Str("user_id", p.UserID.Hex()).
		Strs("filters", fields).
		Str("sort_by", p.SortField).
		Str("order", p.Order.String()).
		Int64("skip", p.Skip).
		Int64("limit", p.Limit)
}
