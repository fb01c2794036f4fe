package projections

import (
	"context"
	"time"

	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	volunteerStore "frsm/internal/adapters/storage/volunteer"
	"frsm/internal/domain/training"
	"frsm/internal/domain/volunteer"
)

// recentAssignments is how many recent assignments the assign page lists.
const recentAssignments = 10

// AssignPageDeps holds dependencies for the assign page query.
type AssignPageDeps struct {
	Trainings     TrainingReader
	Registrations RegistrationReader
	Volunteers    VolunteerReader
}

// AssignableVolunteer is an approved volunteer with their active training count.
type AssignableVolunteer struct {
	Volunteer       volunteer.Volunteer
	ActiveTrainings int
}

// AssignableTraining is an open training with its free slots (-1 when unlimited).
type AssignableTraining struct {
	Training       training.Training
	AvailableSlots int
}

// AssignPageStats are the counters shown above the assign form.
type AssignPageStats struct {
	Volunteers         int
	AvailableTrainings int
	Assignments        int
}

// AssignPage is everything the admin assign page renders.
type AssignPage struct {
	Volunteers []AssignableVolunteer
	Trainings  []AssignableTraining
	Recent     []registrationStore.Record
	Stats      AssignPageStats
}

// QueryAssignPage loads the admin assign page.
// PRE: today is the current date
// POST: Trainings are scheduled or ongoing and have not ended before today
func QueryAssignPage(ctx context.Context, today time.Time, deps AssignPageDeps) (AssignPage, error) {
	var page AssignPage

	vols, err := deps.Volunteers.List(ctx, volunteerStore.ListFilter{ApplicationStatus: volunteer.ApplicationApproved})
	if err != nil {
		return page, err
	}
	for _, v := range vols {
		counts, err := deps.Volunteers.TrainingCounts(ctx, v.ID)
		if err != nil {
			return page, err
		}
		page.Volunteers = append(page.Volunteers, AssignableVolunteer{Volunteer: v, ActiveTrainings: counts.Registered})
	}

	ts, err := deps.Trainings.List(ctx, trainingStore.ListFilter{
		Statuses:      []string{training.StatusScheduled, training.StatusOngoing},
		EndsOnOrAfter: training.DateOf(today),
	})
	if err != nil {
		return page, err
	}
	for _, t := range ts {
		page.Trainings = append(page.Trainings, AssignableTraining{Training: t, AvailableSlots: t.AvailableSlots()})
	}

	page.Recent, err = deps.Registrations.ListRecords(ctx, registrationStore.ListFilter{
		Stage:   registrationStore.StageAssigned,
		OrderBy: registrationStore.OrderApprovedDesc,
		Limit:   recentAssignments,
	})
	if err != nil {
		return page, err
	}
	assignments, err := deps.Registrations.Count(ctx, registrationStore.ListFilter{Stage: registrationStore.StageAssigned})
	if err != nil {
		return page, err
	}

	page.Stats = AssignPageStats{
		Volunteers:         len(page.Volunteers),
		AvailableTrainings: len(page.Trainings),
		Assignments:        assignments,
	}
	return page, nil
}
