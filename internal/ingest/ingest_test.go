package ingest

import (
	"context"
	"io"
	"math"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/funnel_go/internal/funnel"
	"github.com/AngelCh415/funnel_go/internal/models"
)

func TestGetJSONTimeoutIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	var out any
	err := getJSON(context.Background(), NewHTTPClient(50*time.Millisecond), srv.URL, &out)
	require.Error(t, err)
	assert.True(t, retryable(err))

	assert.Error(t, getJSON(context.Background(), NewHTTPClient(time.Second), "", &out))
}

func TestGetJSONWithRetryRecoversFrom500(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct{ OK bool }
	require.NoError(t, GetJSONWithRetry(context.Background(), NewHTTPClient(time.Second), srv.URL, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetJSONWithRetryDoesNotRetry404(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	var out any
	err := GetJSONWithRetry(context.Background(), NewHTTPClient(time.Second), srv.URL, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), hits.Load())
}

const adsJSON = `[
 {"date":"2025-08-01","campaign_id":"C-1","channel":"meta","clicks":1000,"impressions":100000,"cost":1000},
 {"date":"2025-08-01","campaign_id":"C-1","channel":"meta","clicks":1000,"impressions":100000,"cost":1000},
 {"date":"2025-08-02","campaign_id":"C-2","channel":"google","clicks":10,"impressions":500,"cost":99},
 {"date":"bad","campaign_id":"C-1","channel":"meta","clicks":1,"impressions":1,"cost":1}
]`

const crmJSON = `[
 {"opportunity_id":"o1","stage":"lead","created_at":"2025-08-01T10:00:00Z","campaign_id":"C-1"},
 {"opportunity_id":"o2","stage":"opportunity","created_at":"2025-08-01T10:00:00Z","campaign_id":"C-1"},
 {"opportunity_id":"o3","stage":"closed_won","amount":400,"created_at":"2025-08-01T11:00:00Z","campaign_id":"C-1"},
 {"opportunity_id":"o4","stage":"CLOSED_WON","amount":600,"created_at":"2025-08-01T12:00:00Z","campaign_id":"C-1"},
 {"opportunity_id":"o4","stage":"closed_won","amount":600,"created_at":"2025-08-01T12:00:00Z","campaign_id":"C-1"},
 {"opportunity_id":"o5","stage":"closed_won","amount":50,"created_at":"2025-08-02T12:00:00Z","campaign_id":"C-2"}
]`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ads", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(adsJSON)) })
	mux.HandleFunc("/crm", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(crmJSON)) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBaselineTotalsByCampaign(t *testing.T) {
	srv := newFixtureServer(t)
	b := NewBaseline(NewHTTPClient(time.Second), quietLog(), srv.URL+"/ads", srv.URL+"/crm")

	tot, err := b.Totals(context.Background(), Filter{CampaignID: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignTotals{
		Clicks: 1000, Impressions: 100000, Cost: 1000,
		Leads: 4, Opportunities: 3, ClosedWon: 2, Revenue: 1000,
	}, tot)
}

func TestBaselineTotalsSince(t *testing.T) {
	srv := newFixtureServer(t)
	b := NewBaseline(NewHTTPClient(time.Second), quietLog(), srv.URL+"/ads", srv.URL+"/crm")
	since := time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC)

	tot, err := b.Totals(context.Background(), Filter{Since: &since})
	require.NoError(t, err)
	assert.Equal(t, 10, tot.Clicks)
	assert.Equal(t, 1, tot.ClosedWon)
}

func TestBaselineUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()
	b := NewBaseline(NewHTTPClient(time.Second), quietLog(), srv.URL, srv.URL)
	_, err := b.Totals(context.Background(), Filter{})
	assert.Error(t, err)
}

func TestBaselineNotConfigured(t *testing.T) {
	b := NewBaseline(NewHTTPClient(time.Second), quietLog(), "", "")
	assert.False(t, b.Configured())
	_, err := b.Totals(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInputsFromTotals(t *testing.T) {
	def := models.FunnelInputs{
		Investimento: "1", CPM: "1", CTR: "1", ConversaoLp: "1",
		TaxaAgendamento: "50", TaxaComparecimento: "70", TaxaConversaoFinal: "1", TicketMedio: "1",
	}
	in := Inputs(models.CampaignTotals{
		Clicks: 1000, Impressions: 100000, Cost: 1000,
		Leads: 50, Opportunities: 4, ClosedWon: 1, Revenue: 500,
	}, def)
	assert.Equal(t, models.FunnelInputs{
		Investimento: "1000", CPM: "10", CTR: "1", ConversaoLp: "5",
		TaxaAgendamento: "50", TaxaComparecimento: "70", TaxaConversaoFinal: "25", TicketMedio: "500",
	}, in)
}

func TestInputsZeroDenominatorsKeepDefaults(t *testing.T) {
	def := models.FunnelInputs{Investimento: "1000", CPM: "10", CTR: "1", ConversaoLp: "5", TicketMedio: "500"}
	assert.Equal(t, def, Inputs(models.CampaignTotals{}, def))
}

func TestInputsWithoutSpendKeepDefaultCPM(t *testing.T) {
	def := funnel.DefaultInputs()
	in := Inputs(models.CampaignTotals{Clicks: 10, Impressions: 1000}, def)
	assert.Equal(t, def.Investimento, in.Investimento)
	assert.Equal(t, def.CPM, in.CPM)
	assert.Equal(t, "1", in.CTR)

	m, ok := funnel.Compute(in).Metrics()
	require.True(t, ok)
	assert.False(t, math.IsInf(m.Impressions, 0))
}

func TestInputsKeepSmallRates(t *testing.T) {
	in := Inputs(models.CampaignTotals{Clicks: 1, Impressions: 1_000_000, Cost: 1, Leads: 1}, funnel.DefaultInputs())
	assert.Equal(t, "0.001", in.CPM)
	assert.Equal(t, "0.0001", in.CTR)
	assert.Equal(t, "100", in.ConversaoLp)

	m, ok := funnel.Compute(in).Metrics()
	require.True(t, ok)
	assert.InDelta(t, 1_000_000, m.Impressions, 1e-6)
	assert.InDelta(t, 1, m.Clicks, 1e-9)
}
