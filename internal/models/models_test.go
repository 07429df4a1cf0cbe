package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculationsEmptyEncodesAsObject(t *testing.T) {
	b, err := json.Marshal(struct {
		Calculations Calculations `json:"calculations"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"calculations":{}}`, string(b))
}

func TestCalculationsNonFiniteAsNull(t *testing.T) {
	c := Defined(DerivedMetrics{Impressions: math.Inf(1), Clicks: math.NaN(), Leads: 3})
	b, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Nil(t, raw["impressions"])
	assert.Nil(t, raw["clicks"])
	assert.Equal(t, 3.0, raw["leads"])
	assert.Len(t, raw, 11)
}

func TestCalculationsDecode(t *testing.T) {
	var c Calculations
	require.NoError(t, json.Unmarshal([]byte(`{}`), &c))
	assert.True(t, c.Empty())

	require.NoError(t, json.Unmarshal([]byte(`{"impressions":null,"leads":50,"roi":75}`), &c))
	m, ok := c.Metrics()
	require.True(t, ok)
	assert.True(t, math.IsNaN(m.Impressions))
	assert.Equal(t, 50.0, m.Leads)
	assert.Equal(t, 75.0, m.ROI)
}

func TestInputsWithAndGet(t *testing.T) {
	in := FunnelInputs{}
	for _, f := range InputFields {
		var err error
		in, err = in.With(f, f+"-v")
		require.NoError(t, err)
	}
	for _, f := range InputFields {
		v, err := in.Get(f)
		require.NoError(t, err)
		assert.Equal(t, f+"-v", v)
	}

	_, err := in.With("nope", "1")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = in.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestInputsJSONKeys(t *testing.T) {
	b, err := json.Marshal(FunnelInputs{Investimento: "1", TicketMedio: "2"})
	require.NoError(t, err)
	var raw map[string]string
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Len(t, raw, 8)
	for _, f := range InputFields {
		_, ok := raw[f]
		assert.True(t, ok, f)
	}
}

func TestInputsMerge(t *testing.T) {
	def := FunnelInputs{Investimento: "1000", CPM: "10"}
	got := FunnelInputs{CPM: "20"}.Merge(def)
	assert.Equal(t, "1000", got.Investimento)
	assert.Equal(t, "20", got.CPM)
}
