package assign

import (
	"context"
	"fmt"
	"math/rand"

	"triageapi/internal/model"
	"triageapi/internal/repository"
)

// candidateWindow caps how many doctors are considered per assignment to
// bound query cost.
const candidateWindow = 50

// Resolver binds an available doctor to a high-priority patient at most once.
//
// Selection is uniform-random among available doctors in the patient's
// recommended department. This spreads load across the department; it stands
// in for a real load-aware scheduler. Persistence goes through a single
// conditional update keyed on "no doctor assigned yet", so concurrent
// qualifying uploads for the same patient produce exactly one winner.
type Resolver struct {
	patients repository.PatientRepository
	doctors  repository.DoctorRepository
	pick     func(n int) int
}

// NewResolver creates a Resolver over the patient and doctor repositories.
func NewResolver(patients repository.PatientRepository, doctors repository.DoctorRepository) *Resolver {
	return &Resolver{
		patients: patients,
		doctors:  doctors,
		pick:     rand.Intn,
	}
}

// Resolve selects and persists a doctor for the patient.
//
// Outcomes:
//   - (doctor, nil): this call assigned the doctor.
//   - (nil, nil): no candidate was available, or another caller assigned
//     first. Both are normal; the patient can be retried by a later sweep.
//   - (nil, err): the persistence layer failed; the caller decides whether
//     that is fatal (for document intake it is not).
func (r *Resolver) Resolve(ctx context.Context, patient *model.Patient) (*model.Doctor, error) {
	candidates, err := r.doctors.ListAvailableByDepartment(ctx, patient.RecommendedDepartment, candidateWindow)
	if err != nil {
		return nil, fmt.Errorf("list candidate doctors: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	chosen := candidates[r.pick(len(candidates))]

	won, err := r.patients.AssignDoctor(ctx, patient.ID, chosen.ID)
	if err != nil {
		return nil, fmt.Errorf("assign doctor: %w", err)
	}
	if !won {
		// Lost the race: the patient already has a doctor. Silent no-op.
		return nil, nil
	}
	return &chosen, nil
}
