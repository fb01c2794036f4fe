package projections

import (
	"context"

	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	"frsm/internal/domain/training"
)

// PendingApprovalsQuery carries the approval page filters.
type PendingApprovalsQuery struct {
	TrainingID string
	Search     string
}

// PendingApprovalsDeps holds dependencies for the approvals query.
type PendingApprovalsDeps struct {
	Trainings     TrainingReader
	Registrations RegistrationReader
}

// ApprovalCounts are the workflow counters on the approvals page.
type ApprovalCounts struct {
	Completed int
	Verified  int // verified and awaiting a certificate
	Certified int
}

// PendingApprovals is the admin approvals page.
type PendingApprovals struct {
	Pending   []registrationStore.Record
	Trainings []training.Training // filter options
	Counts    ApprovalCounts
}

// QueryPendingApprovals lists completions that are verified and not yet certified,
// newest verification first.
func QueryPendingApprovals(ctx context.Context, q PendingApprovalsQuery, deps PendingApprovalsDeps) (PendingApprovals, error) {
	var res PendingApprovals
	var err error

	res.Pending, err = deps.Registrations.ListRecords(ctx, registrationStore.ListFilter{
		TrainingID: q.TrainingID,
		Search:     q.Search,
		Stage:      registrationStore.StageAwaitingCertificate,
		OrderBy:    registrationStore.OrderVerifiedDesc,
	})
	if err != nil {
		return res, err
	}

	res.Trainings, err = deps.Trainings.List(ctx, trainingStore.ListFilter{})
	if err != nil {
		return res, err
	}

	counters := []struct {
		dst   *int
		stage string
	}{
		{&res.Counts.Completed, registrationStore.StageCompletedAny},
		{&res.Counts.Verified, registrationStore.StageAwaitingCertificate},
		{&res.Counts.Certified, registrationStore.StageCertified},
	}
	for _, c := range counters {
		if *c.dst, err = deps.Registrations.Count(ctx, registrationStore.ListFilter{Stage: c.stage}); err != nil {
			return res, err
		}
	}
	return res, nil
}
