// Package upload runs the two-phase upload of reviewed test cases: create
// one work item per case, then link everything created into the target
// suite with a single batched call.
//
// The creation phase stops at the first failure and leaves already-created
// work items in place. There is no rollback: partially uploaded cases are
// visible in the tracker and the caller reports which ones, so a rerun can
// start from the remainder.
package upload

import (
	"context"
	"fmt"

	"github.com/testgenius/testgenius/internal/logging"
	"github.com/testgenius/testgenius/internal/testcase"
)

// Creator is the tracker surface the transaction needs. *azure.Client
// satisfies it.
type Creator interface {
	CreateTestCase(ctx context.Context, tc testcase.TestCase) (int, error)
	AddToSuite(ctx context.Context, planID, suiteID int, workItemIDs []int) error
}

// Result reports what one transaction achieved. CreatedIDs is populated
// even on failure so callers can report partial progress.
type Result struct {
	// CreatedIDs are the work item ids created, in input order.
	CreatedIDs []int

	// FailedIndex is the position of the case whose creation failed, or -1.
	// Cases after it were never attempted.
	FailedIndex int
	FailedErr   error

	// Linked reports whether the suite link call succeeded. LinkErr is set
	// when the work items exist but could not be linked; they remain
	// linkable by hand.
	Linked  bool
	LinkErr error
}

// Err returns the transaction's failure, if any.
func (r *Result) Err() error {
	if r.FailedErr != nil {
		return r.FailedErr
	}
	return r.LinkErr
}

// Transaction uploads one reviewed batch into one plan and suite.
type Transaction struct {
	creator Creator
	planID  int
	suiteID int
}

// NewTransaction creates a Transaction. Plan and suite ids must be positive.
func NewTransaction(creator Creator, planID, suiteID int) (*Transaction, error) {
	if creator == nil {
		return nil, fmt.Errorf("creator is required")
	}
	if planID <= 0 {
		return nil, &testcase.ValidationError{Field: "test_plan_id", Message: "must be a positive integer"}
	}
	if suiteID <= 0 {
		return nil, &testcase.ValidationError{Field: "test_suite_id", Message: "must be a positive integer"}
	}
	return &Transaction{creator: creator, planID: planID, suiteID: suiteID}, nil
}

// Run executes the transaction. Cases are created strictly in input order;
// the first creation failure stops the phase. The link call runs only when
// every case was created, and links all of them at once.
func (t *Transaction) Run(ctx context.Context, cases []testcase.TestCase) *Result {
	res := &Result{FailedIndex: -1}

	if len(cases) == 0 {
		res.FailedErr = &testcase.ValidationError{Field: "test_cases", Message: "must not be empty"}
		return res
	}

	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			res.FailedIndex = i
			res.FailedErr = err
			return res
		}

		id, err := t.creator.CreateTestCase(ctx, tc)
		if err != nil {
			res.FailedIndex = i
			res.FailedErr = fmt.Errorf("failed to create test case %d of %d (%q): %w", i+1, len(cases), tc.Title, err)
			logging.Warn("upload stopped", "created", len(res.CreatedIDs), "failed_index", i, "error", err)
			return res
		}
		res.CreatedIDs = append(res.CreatedIDs, id)
	}

	if err := t.creator.AddToSuite(ctx, t.planID, t.suiteID, res.CreatedIDs); err != nil {
		res.LinkErr = fmt.Errorf("created %d test cases but failed to link them to suite %d: %w", len(res.CreatedIDs), t.suiteID, err)
		logging.Warn("suite link failed", "created", len(res.CreatedIDs), "suite", t.suiteID, "error", err)
		return res
	}

	res.Linked = true
	logging.Info("upload complete", "created", len(res.CreatedIDs), "plan", t.planID, "suite", t.suiteID)
	return res
}
