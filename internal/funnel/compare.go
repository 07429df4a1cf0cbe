package funnel

import (
	"math"

	"github.com/AngelCh415/funnel_go/internal/models"
)

type namedValue struct {
	name string
	get  func(models.DerivedMetrics) float64
}

var compared = []namedValue{
	{"impressions", func(m models.DerivedMetrics) float64 { return m.Impressions }},
	{"clicks", func(m models.DerivedMetrics) float64 { return m.Clicks }},
	{"leads", func(m models.DerivedMetrics) float64 { return m.Leads }},
	{"bookings", func(m models.DerivedMetrics) float64 { return m.Bookings }},
	{"attendances", func(m models.DerivedMetrics) float64 { return m.Attendances }},
	{"sales", func(m models.DerivedMetrics) float64 { return m.Sales }},
	{"revenue", func(m models.DerivedMetrics) float64 { return m.Revenue }},
	{"roi", func(m models.DerivedMetrics) float64 { return m.ROI }},
	{"costPerLead", func(m models.DerivedMetrics) float64 { return m.CostPerLead }},
	{"costPerBooking", func(m models.DerivedMetrics) float64 { return m.CostPerBooking }},
	{"costPerSale", func(m models.DerivedMetrics) float64 { return m.CostPerSale }},
}

// Compare lists alt-minus-base deltas per metric. If either side has no
// calculation the comparison is not comparable and carries no deltas.
func Compare(base, alt models.Scenario) models.Comparison {
	out := models.Comparison{BaseID: base.ID, AltID: alt.ID, Deltas: []models.MetricDelta{}}
	bm, okB := base.Calculations.Metrics()
	am, okA := alt.Calculations.Metrics()
	if !okB || !okA {
		return out
	}
	out.Comparable = true
	for _, nv := range compared {
		b, a := nv.get(bm), nv.get(am)
		d := models.MetricDelta{Metric: nv.name, Base: b, Alt: a, Delta: a - b}
		if b != 0 {
			if p := (a - b) / math.Abs(b) * 100; !math.IsInf(p, 0) && !math.IsNaN(p) {
				d.Percent = &p
			}
		}
		out.Deltas = append(out.Deltas, d)
	}
	return out
}
