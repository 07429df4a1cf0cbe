package models

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

var ErrUnknownField = errors.New("unknown funnel field")

// Claves de FunnelInputs, en el orden del formulario.
const (
	FieldInvestimento       = "investimento"
	FieldCPM                = "cpm"
	FieldCTR                = "ctr"
	FieldConversaoLp        = "conversaoLp"
	FieldTaxaAgendamento    = "taxaAgendamento"
	FieldTaxaComparecimento = "taxaComparecimento"
	FieldTaxaConversaoFinal = "taxaConversaoFinal"
	FieldTicketMedio        = "ticketMedio"
)

var InputFields = []string{
	FieldInvestimento,
	FieldCPM,
	FieldCTR,
	FieldConversaoLp,
	FieldTaxaAgendamento,
	FieldTaxaComparecimento,
	FieldTaxaConversaoFinal,
	FieldTicketMedio,
}

// FunnelInputs holds the raw text of each form field. Values are parsed only
// when a calculation runs, so half-typed edits never fail.
type FunnelInputs struct {
	Investimento       string `json:"investimento"`
	CPM                string `json:"cpm"`
	CTR                string `json:"ctr"`
	ConversaoLp        string `json:"conversaoLp"`
	TaxaAgendamento    string `json:"taxaAgendamento"`
	TaxaComparecimento string `json:"taxaComparecimento"`
	TaxaConversaoFinal string `json:"taxaConversaoFinal"`
	TicketMedio        string `json:"ticketMedio"`
}

func (in FunnelInputs) ptr(field string) *string {
	switch field {
	case FieldInvestimento:
		return &in.Investimento
	case FieldCPM:
		return &in.CPM
	case FieldCTR:
		return &in.CTR
	case FieldConversaoLp:
		return &in.ConversaoLp
	case FieldTaxaAgendamento:
		return &in.TaxaAgendamento
	case FieldTaxaComparecimento:
		return &in.TaxaComparecimento
	case FieldTaxaConversaoFinal:
		return &in.TaxaConversaoFinal
	case FieldTicketMedio:
		return &in.TicketMedio
	}
	return nil
}

func (in FunnelInputs) Get(field string) (string, error) {
	p := in.ptr(field)
	if p == nil {
		return "", ErrUnknownField
	}
	return *p, nil
}

// With returns a copy of in with one field replaced.
func (in FunnelInputs) With(field, value string) (FunnelInputs, error) {
	out := in
	switch field {
	case FieldInvestimento:
		out.Investimento = value
	case FieldCPM:
		out.CPM = value
	case FieldCTR:
		out.CTR = value
	case FieldConversaoLp:
		out.ConversaoLp = value
	case FieldTaxaAgendamento:
		out.TaxaAgendamento = value
	case FieldTaxaComparecimento:
		out.TaxaComparecimento = value
	case FieldTaxaConversaoFinal:
		out.TaxaConversaoFinal = value
	case FieldTicketMedio:
		out.TicketMedio = value
	default:
		return in, ErrUnknownField
	}
	return out, nil
}

// Merge fills empty fields of in from def.
func (in FunnelInputs) Merge(def FunnelInputs) FunnelInputs {
	out := in
	for _, f := range InputFields {
		if v, _ := out.Get(f); v == "" {
			d, _ := def.Get(f)
			out, _ = out.With(f, d)
		}
	}
	return out
}

type DerivedMetrics struct {
	Impressions    float64
	Clicks         float64
	Leads          float64
	Bookings       float64
	Attendances    float64
	Sales          float64
	Revenue        float64
	ROI            float64
	CostPerLead    float64
	CostPerBooking float64
	CostPerSale    float64
}

// MarshalJSON writes non-finite values as null; con cpm=0 las impresiones son +Inf.
func (d DerivedMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Impressions    *float64 `json:"impressions"`
		Clicks         *float64 `json:"clicks"`
		Leads          *float64 `json:"leads"`
		Bookings       *float64 `json:"bookings"`
		Attendances    *float64 `json:"attendances"`
		Sales          *float64 `json:"sales"`
		Revenue        *float64 `json:"revenue"`
		ROI            *float64 `json:"roi"`
		CostPerLead    *float64 `json:"costPerLead"`
		CostPerBooking *float64 `json:"costPerBooking"`
		CostPerSale    *float64 `json:"costPerSale"`
	}{
		finite(d.Impressions), finite(d.Clicks), finite(d.Leads), finite(d.Bookings),
		finite(d.Attendances), finite(d.Sales), finite(d.Revenue), finite(d.ROI),
		finite(d.CostPerLead), finite(d.CostPerBooking), finite(d.CostPerSale),
	})
}

func (d *DerivedMetrics) UnmarshalJSON(b []byte) error {
	var raw struct {
		Impressions    *float64 `json:"impressions"`
		Clicks         *float64 `json:"clicks"`
		Leads          *float64 `json:"leads"`
		Bookings       *float64 `json:"bookings"`
		Attendances    *float64 `json:"attendances"`
		Sales          *float64 `json:"sales"`
		Revenue        *float64 `json:"revenue"`
		ROI            *float64 `json:"roi"`
		CostPerLead    *float64 `json:"costPerLead"`
		CostPerBooking *float64 `json:"costPerBooking"`
		CostPerSale    *float64 `json:"costPerSale"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*d = DerivedMetrics{
		Impressions: orNaN(raw.Impressions), Clicks: orNaN(raw.Clicks), Leads: orNaN(raw.Leads),
		Bookings: orNaN(raw.Bookings), Attendances: orNaN(raw.Attendances), Sales: orNaN(raw.Sales),
		Revenue: orNaN(raw.Revenue), ROI: orNaN(raw.ROI), CostPerLead: orNaN(raw.CostPerLead),
		CostPerBooking: orNaN(raw.CostPerBooking), CostPerSale: orNaN(raw.CostPerSale),
	}
	return nil
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// Calculations is either a full DerivedMetrics or the empty result. Empty means
// "undefined", never zero; encodes as {}.
type Calculations struct {
	m *DerivedMetrics
}

func Defined(m DerivedMetrics) Calculations { return Calculations{m: &m} }

func (c Calculations) Empty() bool { return c.m == nil }

func (c Calculations) Metrics() (DerivedMetrics, bool) {
	if c.m == nil {
		return DerivedMetrics{}, false
	}
	return *c.m, true
}

func (c Calculations) MarshalJSON() ([]byte, error) {
	if c.m == nil {
		return []byte("{}"), nil
	}
	return c.m.MarshalJSON()
}

func (c *Calculations) UnmarshalJSON(b []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}
	if len(keys) == 0 {
		c.m = nil
		return nil
	}
	var m DerivedMetrics
	if err := m.UnmarshalJSON(b); err != nil {
		return err
	}
	c.m = &m
	return nil
}

type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

func (p ChartPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label string   `json:"label"`
		Value *float64 `json:"value"`
	}{p.Label, finite(p.Value)})
}

// Scenario is one revision of an interactively edited set of inputs.
type Scenario struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Revision     int          `json:"revision"`
	Inputs       FunnelInputs `json:"inputs"`
	Calculations Calculations `json:"calculations"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type MetricDelta struct {
	Metric  string   `json:"metric"`
	Base    float64  `json:"base"`
	Alt     float64  `json:"alt"`
	Delta   float64  `json:"delta"`
	Percent *float64 `json:"percent"` // nil si base es 0
}

func (d MetricDelta) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Metric  string   `json:"metric"`
		Base    *float64 `json:"base"`
		Alt     *float64 `json:"alt"`
		Delta   *float64 `json:"delta"`
		Percent *float64 `json:"percent"`
	}{d.Metric, finite(d.Base), finite(d.Alt), finite(d.Delta), d.Percent})
}

type Comparison struct {
	BaseID     string        `json:"base_id"`
	AltID      string        `json:"alt_id"`
	Comparable bool          `json:"comparable"`
	Deltas     []MetricDelta `json:"deltas"`
}

// Campaign performance rows used to seed a baseline scenario.
type AdsPerformance struct {
	Date        time.Time
	CampaignID  string
	Channel     string
	Clicks      int
	Impressions int
	Cost        float64
}

type Opportunity struct {
	OpportunityID string
	Stage         string // lead, opportunity, closed_won, closed_lost
	Amount        float64
	CreatedAt     time.Time
	CampaignID    string
}

type CampaignTotals struct {
	Clicks        int     `json:"clicks"`
	Impressions   int     `json:"impressions"`
	Cost          float64 `json:"cost"`
	Leads         int     `json:"leads"`
	Opportunities int     `json:"opportunities"`
	ClosedWon     int     `json:"closed_won"`
	Revenue       float64 `json:"revenue"`
}
