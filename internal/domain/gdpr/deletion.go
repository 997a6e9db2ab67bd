package gdpr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeletionStatus is the overall result of an erasure request
type DeletionStatus string

const (
	DeletionCompleted DeletionStatus = "COMPLETED"
	DeletionFailed    DeletionStatus = "FAILED"
)

// OutcomeKind tells deleted records apart from anonymized ones
type OutcomeKind string

const (
	OutcomeDeleted    OutcomeKind = "DELETED"
	OutcomeAnonymized OutcomeKind = "ANONYMIZED"
	OutcomeUnchanged  OutcomeKind = "UNCHANGED"
)

// Aggregates touched by erasure, in step order
const (
	AggregateProfile  = "profile"
	AggregateWishlist = "wishlist"
	AggregateCarts    = "carts"
	AggregateReviews  = "reviews"
	AggregateOrders   = "orders"
	AggregateActivity = "activity"
)

// DefaultOrderRetentionYears is how long anonymized orders are kept for accounting
const DefaultOrderRetentionYears = 7

// AggregateOutcome is what one erasure step did
type AggregateOutcome struct {
	Aggregate string      `json:"aggregate"`
	Kind      OutcomeKind `json:"kind"`
	Affected  int64       `json:"affected"`
}

// Deleted reports a hard delete of n records. Zero records is UNCHANGED.
func Deleted(aggregate string, n int64) AggregateOutcome {
	return newOutcome(aggregate, OutcomeDeleted, n)
}

// Anonymized reports n records whose personal fields were cleared. Zero records is UNCHANGED.
func Anonymized(aggregate string, n int64) AggregateOutcome {
	return newOutcome(aggregate, OutcomeAnonymized, n)
}

func newOutcome(aggregate string, kind OutcomeKind, n int64) AggregateOutcome {
	if n == 0 {
		kind = OutcomeUnchanged
	}
	return AggregateOutcome{Aggregate: aggregate, Kind: kind, Affected: n}
}

// Action renders the outcome as a human readable action line
func (o AggregateOutcome) Action() string {
	switch o.Kind {
	case OutcomeDeleted:
		return fmt.Sprintf("Deleted %d %s record(s)", o.Affected, o.Aggregate)
	case OutcomeAnonymized:
		return fmt.Sprintf("Anonymized %d %s record(s)", o.Affected, o.Aggregate)
	default:
		return fmt.Sprintf("No %s data to process", o.Aggregate)
	}
}

// DeletionResult reports an erasure run
type DeletionResult struct {
	UserID      uuid.UUID          `json:"userId"`
	Status      DeletionStatus     `json:"status"`
	GDPRArticle string             `json:"gdprArticle"`
	Actions     []string           `json:"actions"`
	Outcomes    []AggregateOutcome `json:"outcomes"`
	Error       string             `json:"error,omitempty"`
	CompletedAt time.Time          `json:"completedAt"`
}

// NewDeletionResult starts an empty result
func NewDeletionResult(userID uuid.UUID) *DeletionResult {
	return &DeletionResult{
		UserID:      userID,
		GDPRArticle: ArticleErasure,
		Actions:     make([]string, 0, 6),
		Outcomes:    make([]AggregateOutcome, 0, 6),
	}
}

// Record appends a finished step
func (r *DeletionResult) Record(o AggregateOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Actions = append(r.Actions, o.Action())
}

// Complete marks the run finished
func (r *DeletionResult) Complete(at time.Time) {
	r.Status = DeletionCompleted
	r.CompletedAt = utc(at)
}

// Fail marks the run failed at the given step
func (r *DeletionResult) Fail(aggregate string, err error, at time.Time) {
	r.Status = DeletionFailed
	r.Error = fmt.Sprintf("%s: %v", aggregate, err)
	r.Actions = append(r.Actions, fmt.Sprintf("Failed to process %s data", aggregate))
	r.CompletedAt = utc(at)
}

// TotalAffected sums affected records over all steps
func (r *DeletionResult) TotalAffected() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.Affected
	}
	return n
}

// DeletionEligibility tells whether a user can be erased right now
type DeletionEligibility struct {
	UserID          uuid.UUID `json:"userId"`
	Eligible        bool      `json:"eligible"`
	BlockingReasons []string  `json:"blockingReasons"`
	Info            []string  `json:"info"`
}

// NewDeletionEligibility evaluates eligibility from the number of open orders
func NewDeletionEligibility(userID uuid.UUID, activeOrders int64, retentionYears int) *DeletionEligibility {
	e := &DeletionEligibility{
		UserID:          userID,
		Eligible:        activeOrders == 0,
		BlockingReasons: make([]string, 0, 1),
		Info: []string{
			fmt.Sprintf("Order records are retained in anonymized form for %d years for accounting and legal obligations", retentionYears),
		},
	}
	if activeOrders > 0 {
		e.BlockingReasons = append(e.BlockingReasons,
			fmt.Sprintf("User has %d open order(s) that must be delivered or cancelled first", activeOrders))
	}
	return e
}
