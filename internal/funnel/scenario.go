package funnel

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/AngelCh415/funnel_go/internal/models"
)

var now = func() time.Time { return time.Now().UTC() }

// NewScenario creates revision 1 of a scenario. Empty input fields take the
// default values.
func NewScenario(name string, in models.FunnelInputs) models.Scenario {
	in = in.Merge(DefaultInputs())
	if name == "" {
		name = "Cenário"
	}
	t := now()
	return models.Scenario{
		ID:           uuid.New().String(),
		Name:         name,
		Revision:     1,
		Inputs:       in,
		Calculations: Compute(in),
		CreatedAt:    t,
		UpdatedAt:    t,
	}
}

// Edit returns the next revision with one field replaced. Invalid numeric text
// is accepted and leaves the calculations empty.
func Edit(sc models.Scenario, field, value string) (models.Scenario, error) {
	in, err := sc.Inputs.With(field, value)
	if err != nil {
		return sc, eris.Wrapf(err, "edit scenario %s: field %q", sc.ID, field)
	}
	next := sc
	next.Inputs = in
	next.Revision++
	next.Calculations = Compute(in)
	next.UpdatedAt = now()
	return next, nil
}

// Replace swaps the whole input set in one revision.
func Replace(sc models.Scenario, in models.FunnelInputs) models.Scenario {
	next := sc
	next.Inputs = in
	next.Revision++
	next.Calculations = Compute(in)
	next.UpdatedAt = now()
	return next
}
