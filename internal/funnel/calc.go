// Package funnel derives stage volumes and business metrics from the eight
// text inputs of a marketing funnel scenario.
package funnel

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AngelCh415/funnel_go/internal/models"
)

var ErrParse = errors.New("funnel: invalid number")

// FieldError reports which input could not be parsed.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("funnel: field %s: invalid number %q", e.Field, e.Value)
}

func (e *FieldError) Unwrap() error { return ErrParse }

// Snapshot is the parsed numeric view of FunnelInputs.
type Snapshot struct {
	Spend              float64
	CPM                float64
	CTR                float64
	ConversaoLp        float64
	TaxaAgendamento    float64
	TaxaComparecimento float64
	TaxaConversaoFinal float64
	TicketMedio        float64
}

func DefaultInputs() models.FunnelInputs {
	return models.FunnelInputs{
		Investimento:       "1000",
		CPM:                "10",
		CTR:                "1",
		ConversaoLp:        "5",
		TaxaAgendamento:    "50",
		TaxaComparecimento: "70",
		TaxaConversaoFinal: "20",
		TicketMedio:        "500",
	}
}

// Parse converts every field to float64. The first field that is not a finite
// number is returned as a *FieldError.
func Parse(in models.FunnelInputs) (Snapshot, error) {
	var s Snapshot
	dst := []*float64{
		&s.Spend, &s.CPM, &s.CTR, &s.ConversaoLp,
		&s.TaxaAgendamento, &s.TaxaComparecimento, &s.TaxaConversaoFinal, &s.TicketMedio,
	}
	for i, field := range models.InputFields {
		raw, _ := in.Get(field)
		v, err := parseNumber(raw)
		if err != nil {
			return Snapshot{}, &FieldError{Field: field, Value: raw}
		}
		*dst[i] = v
	}
	return s, nil
}

// parseNumber accepts decimal notation only; hex floats are rejected.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(strings.TrimLeft(s, "+-")), "0x") {
		return 0, ErrParse
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrParse
	}
	return v, nil
}

// Compute returns the derived metrics, or the empty result when any input
// fails to parse. cpm=0 is left unguarded and yields +Inf impressions.
func Compute(in models.FunnelInputs) models.Calculations {
	s, err := Parse(in)
	if err != nil {
		return models.Calculations{}
	}
	return models.Defined(Derive(s))
}

func Derive(s Snapshot) models.DerivedMetrics {
	var d models.DerivedMetrics
	d.Impressions = (s.Spend / s.CPM) * 1000
	d.Clicks = d.Impressions * (s.CTR / 100)
	d.Leads = d.Clicks * (s.ConversaoLp / 100)
	d.Bookings = d.Leads * (s.TaxaAgendamento / 100)
	d.Attendances = d.Bookings * (s.TaxaComparecimento / 100)
	d.Sales = d.Attendances * (s.TaxaConversaoFinal / 100)
	d.Revenue = d.Sales * s.TicketMedio

	// el ROI depende de revenue > 0, no de spend ni de sales
	if d.Revenue > 0 {
		d.ROI = ((d.Revenue - s.Spend) / s.Spend) * 100
	}
	if d.Leads > 0 {
		d.CostPerLead = s.Spend / d.Leads
	}
	if d.Bookings > 0 {
		d.CostPerBooking = s.Spend / d.Bookings
	}
	if d.Sales > 0 {
		d.CostPerSale = s.Spend / d.Sales
	}
	return d
}
