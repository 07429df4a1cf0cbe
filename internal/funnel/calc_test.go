package funnel

import (
	"errors"
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/funnel_go/internal/models"
)

func TestComputeDefaults(t *testing.T) {
	c := Compute(DefaultInputs())
	m, ok := c.Metrics()
	require.True(t, ok)

	assert.InDelta(t, 100000, m.Impressions, 1e-9)
	assert.InDelta(t, 1000, m.Clicks, 1e-9)
	assert.InDelta(t, 50, m.Leads, 1e-9)
	assert.InDelta(t, 25, m.Bookings, 1e-9)
	assert.InDelta(t, 17.5, m.Attendances, 1e-9)
	assert.InDelta(t, 3.5, m.Sales, 1e-9)
	assert.InDelta(t, 1750, m.Revenue, 1e-9)
	assert.InDelta(t, 75, m.ROI, 1e-9)
	assert.InDelta(t, 20, m.CostPerLead, 1e-9)
	assert.InDelta(t, 40, m.CostPerBooking, 1e-9)
	assert.InDelta(t, 285.71, m.CostPerSale, 0.01)
}

func TestComputeInvalidFieldGivesEmpty(t *testing.T) {
	for _, field := range models.InputFields {
		t.Run(field, func(t *testing.T) {
			in, err := DefaultInputs().With(field, "abc")
			require.NoError(t, err)
			assert.True(t, Compute(in).Empty())

			_, err = Parse(in)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, field, fe.Field)
			assert.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestComputeRejectsNonFiniteAndBlank(t *testing.T) {
	for _, raw := range []string{"", "  ", "NaN", "Inf", "-Inf", "1e400"} {
		in, _ := DefaultInputs().With(models.FieldCTR, raw)
		assert.True(t, Compute(in).Empty(), "ctr=%q", raw)
	}
}

func TestComputeRejectsHexFloats(t *testing.T) {
	for _, raw := range []string{"0x1p4", "0X10", "-0x1p-2", "+0xA"} {
		in, _ := DefaultInputs().With(models.FieldCPM, raw)
		assert.True(t, Compute(in).Empty(), raw)
	}
	in, _ := DefaultInputs().With(models.FieldCPM, "1e1")
	assert.False(t, Compute(in).Empty())
}

func TestComputeTrimsWhitespace(t *testing.T) {
	in, _ := DefaultInputs().With(models.FieldInvestimento, " 1000 ")
	assert.False(t, Compute(in).Empty())
}

func TestComputeROIGatedOnRevenue(t *testing.T) {
	in, _ := DefaultInputs().With(models.FieldTicketMedio, "0")
	m, ok := Compute(in).Metrics()
	require.True(t, ok)
	assert.Greater(t, m.Sales, 0.0)
	assert.Equal(t, 0.0, m.Revenue)
	assert.Equal(t, 0.0, m.ROI)
	assert.InDelta(t, 285.71, m.CostPerSale, 0.01)
}

func TestComputeZeroStagesGuardDivision(t *testing.T) {
	in, _ := DefaultInputs().With(models.FieldCTR, "0")
	m, ok := Compute(in).Metrics()
	require.True(t, ok)
	assert.Equal(t, 0.0, m.Leads)
	assert.Equal(t, 0.0, m.CostPerLead)
	assert.Equal(t, 0.0, m.CostPerBooking)
	assert.Equal(t, 0.0, m.CostPerSale)
	assert.Equal(t, 0.0, m.ROI)
}

func TestComputeZeroCPMIsUnguarded(t *testing.T) {
	in, _ := DefaultInputs().With(models.FieldCPM, "0")
	m, ok := Compute(in).Metrics()
	require.True(t, ok)
	assert.True(t, math.IsInf(m.Impressions, 1))
	assert.Equal(t, 0.0, m.CostPerLead)
}

func TestComputeAcceptsOutOfRangeRates(t *testing.T) {
	in, _ := DefaultInputs().With(models.FieldCTR, "-5")
	m, ok := Compute(in).Metrics()
	require.True(t, ok)
	assert.Less(t, m.Clicks, 0.0)
	assert.Equal(t, 0.0, m.CostPerLead)

	in, _ = DefaultInputs().With(models.FieldConversaoLp, "150")
	m, ok = Compute(in).Metrics()
	require.True(t, ok)
	assert.Greater(t, m.Leads, m.Clicks)
}

func TestComputeIsDeterministic(t *testing.T) {
	in := models.FunnelInputs{
		Investimento: "1234.56", CPM: "17.3", CTR: "1.37", ConversaoLp: "7.1",
		TaxaAgendamento: "33.3", TaxaComparecimento: "66.6", TaxaConversaoFinal: "12.5", TicketMedio: "799.9",
	}
	a, _ := Compute(in).Metrics()
	b, _ := Compute(in).Metrics()
	assert.Equal(t, math.Float64bits(a.CostPerSale), math.Float64bits(b.CostPerSale))
	assert.Equal(t, a, b)
}

func TestComputeStagesAreMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pct := func() string { return strconv.FormatFloat(rng.Float64()*100, 'f', -1, 64) }
	for i := 0; i < 500; i++ {
		in := models.FunnelInputs{
			Investimento:       strconv.FormatFloat(1+rng.Float64()*1e5, 'f', -1, 64),
			CPM:                strconv.FormatFloat(0.1+rng.Float64()*100, 'f', -1, 64),
			CTR:                pct(),
			ConversaoLp:        pct(),
			TaxaAgendamento:    pct(),
			TaxaComparecimento: pct(),
			TaxaConversaoFinal: pct(),
			TicketMedio:        strconv.FormatFloat(rng.Float64()*1000, 'f', -1, 64),
		}
		m, ok := Compute(in).Metrics()
		require.True(t, ok)
		assert.LessOrEqual(t, m.Clicks, m.Impressions)
		assert.LessOrEqual(t, m.Leads, m.Clicks)
		assert.LessOrEqual(t, m.Bookings, m.Leads)
		assert.LessOrEqual(t, m.Attendances, m.Bookings)
		assert.LessOrEqual(t, m.Sales, m.Attendances)
	}
}
