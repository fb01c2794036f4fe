package projections

import (
	"context"

	registrationStore "frsm/internal/adapters/storage/registration"
	"frsm/internal/application/listutil"
)

// Record status filters on the training records page.
var RecordStatusFilters = []string{
	registrationStore.StageCertified,
	registrationStore.StageCompleted,
	registrationStore.StageInProgress,
	registrationStore.StageRegistered,
	registrationStore.StageCancelled,
}

// TrainingRecordsQuery carries the training records filters.
type TrainingRecordsQuery struct {
	Status      string // one of RecordStatusFilters, or empty
	VolunteerID string
	TrainingID  string
	Search      string
	Page        listutil.PageParams
}

// TrainingRecordsDeps holds dependencies for the training records query.
type TrainingRecordsDeps struct {
	Registrations RegistrationReader
}

// RecordStats counts registrations per status filter.
type RecordStats struct {
	Total      int
	Certified  int
	Completed  int
	InProgress int
	Registered int
	Cancelled  int
}

// TrainingRecords is one page of the admin training records list.
type TrainingRecords struct {
	Records []registrationStore.Record
	Page    listutil.PageInfo
	Stats   RecordStats
}

// QueryTrainingRecords lists every registration, newest first.
// PRE: Status is empty or one of RecordStatusFilters
// POST: Records hold at most Page.PerPage rows; stats ignore the page filters
func QueryTrainingRecords(ctx context.Context, q TrainingRecordsQuery, deps TrainingRecordsDeps) (TrainingRecords, error) {
	var res TrainingRecords
	filter := registrationStore.ListFilter{
		VolunteerID: q.VolunteerID,
		TrainingID:  q.TrainingID,
		Search:      q.Search,
		Stage:       q.Status,
		OrderBy:     registrationStore.OrderRegistrationDesc,
	}

	total, err := deps.Registrations.Count(ctx, filter)
	if err != nil {
		return res, err
	}
	res.Page = listutil.Paginate(q.Page, total)
	filter.Limit = res.Page.PerPage
	filter.Offset = res.Page.Offset()

	if res.Records, err = deps.Registrations.ListRecords(ctx, filter); err != nil {
		return res, err
	}

	counters := []struct {
		dst   *int
		stage string
	}{
		{&res.Stats.Total, ""},
		{&res.Stats.Certified, registrationStore.StageCertified},
		{&res.Stats.Completed, registrationStore.StageCompleted},
		{&res.Stats.InProgress, registrationStore.StageInProgress},
		{&res.Stats.Registered, registrationStore.StageRegistered},
		{&res.Stats.Cancelled, registrationStore.StageCancelled},
	}
	for _, c := range counters {
		if *c.dst, err = deps.Registrations.Count(ctx, registrationStore.ListFilter{Stage: c.stage}); err != nil {
			return res, err
		}
	}
	return res, nil
}
