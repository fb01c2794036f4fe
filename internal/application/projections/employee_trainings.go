package projections

import (
	"context"

	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	"frsm/internal/domain/training"
)

// EmployeeTrainingsQuery carries the employee training list filters.
type EmployeeTrainingsQuery struct {
	Status string
	Search string
}

// EmployeeTrainingsDeps holds dependencies for the employee training queries.
type EmployeeTrainingsDeps struct {
	Trainings     TrainingReader
	Registrations RegistrationReader
}

// TrainingStats counts trainings by status.
type TrainingStats struct {
	Upcoming  int
	Ongoing   int
	Completed int
}

// EmployeeTrainings is the employee training overview.
type EmployeeTrainings struct {
	Trainings []trainingStore.Summary
	Stats     TrainingStats
}

// QueryEmployeeTrainings lists trainings with registered and completed counts.
func QueryEmployeeTrainings(ctx context.Context, q EmployeeTrainingsQuery, deps EmployeeTrainingsDeps) (EmployeeTrainings, error) {
	var res EmployeeTrainings
	filter := trainingStore.ListFilter{Search: q.Search}
	if q.Status != "" {
		filter.Statuses = []string{q.Status}
	}
	var err error
	if res.Trainings, err = deps.Trainings.ListSummaries(ctx, filter); err != nil {
		return res, err
	}
	counts, err := deps.Trainings.CountByStatus(ctx)
	if err != nil {
		return res, err
	}
	res.Stats = TrainingStats{
		Upcoming:  counts[training.StatusScheduled],
		Ongoing:   counts[training.StatusOngoing],
		Completed: counts[training.StatusCompleted],
	}
	return res, nil
}

// CompletionsToSubmit is the employee submit page: completed trainings with
// unsubmitted completions, and the completed volunteers of the selected training.
type CompletionsToSubmit struct {
	Trainings  []trainingStore.Summary
	Selected   *training.Training
	Volunteers []registrationStore.Record
}

// QueryCompletionsToSubmit loads the employee submit page. trainingID may be empty.
// PRE: trainingID, when set, names an existing training
// POST: Volunteers hold completed, non-cancelled registrations of the selected training
func QueryCompletionsToSubmit(ctx context.Context, trainingID string, deps EmployeeTrainingsDeps) (CompletionsToSubmit, error) {
	var res CompletionsToSubmit
	var err error
	res.Trainings, err = deps.Trainings.ListSummaries(ctx, trainingStore.ListFilter{
		Statuses:                []string{training.StatusCompleted},
		WithCompletionsToSubmit: true,
	})
	if err != nil {
		return res, err
	}
	if trainingID == "" {
		return res, nil
	}

	t, err := deps.Trainings.GetByID(ctx, trainingID)
	if err != nil {
		return res, err
	}
	res.Selected = &t
	res.Volunteers, err = QueryTrainingVolunteers(ctx, trainingID, deps.Registrations)
	return res, err
}

// QueryTrainingVolunteers lists volunteers who completed a training, by name.
func QueryTrainingVolunteers(ctx context.Context, trainingID string, regs RegistrationReader) ([]registrationStore.Record, error) {
	return regs.ListRecords(ctx, registrationStore.ListFilter{
		TrainingID: trainingID,
		Stage:      registrationStore.StageCompletedAny,
		OrderBy:    registrationStore.OrderVolunteerName,
	})
}

// Participant is one line of a training's participant list.
type Participant struct {
	registrationStore.Record
	Label string
}

// QueryTrainingParticipants lists the non-cancelled registrations of a training with
// their most advanced workflow label.
func QueryTrainingParticipants(ctx context.Context, trainingID string, regs RegistrationReader) ([]Participant, error) {
	records, err := regs.ListRecords(ctx, registrationStore.ListFilter{
		TrainingID: trainingID,
		Stage:      registrationStore.StageActive,
		OrderBy:    registrationStore.OrderVolunteerName,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Participant, 0, len(records))
	for _, rec := range records {
		out = append(out, Participant{Record: rec, Label: rec.Registration.ParticipantLabel()})
	}
	return out, nil
}
