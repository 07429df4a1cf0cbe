package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/funnel_go/internal/analysis"
	"github.com/AngelCh415/funnel_go/internal/funnel"
	"github.com/AngelCh415/funnel_go/internal/ingest"
	"github.com/AngelCh415/funnel_go/internal/metrics"
	"github.com/AngelCh415/funnel_go/internal/models"
	"github.com/AngelCh415/funnel_go/internal/store"
	"github.com/AngelCh415/funnel_go/internal/utils"
)

const maxBody = 1 << 20

func NewRouter(log *slog.Logger, svc *metrics.Service, prom *metrics.Collectors, origins []string) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log, prom.ObserveHTTP))
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(prom.Registry, promhttp.HandlerOpts{}))

	mux.Route("/funnel", func(r chi.Router) {
		r.Get("/defaults", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Defaults())
		})

		// los campos ausentes toman el valor por defecto
		r.Get("/calculate", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			in := funnel.DefaultInputs()
			for _, f := range models.InputFields {
				if q.Has(f) {
					in, _ = in.With(f, q.Get(f))
				}
			}
			writeJSON(w, http.StatusOK, svc.Calculate(in))
		})

		r.Post("/calculate", func(w http.ResponseWriter, r *http.Request) {
			var in models.FunnelInputs
			if !decode(w, r, &in) {
				return
			}
			writeJSON(w, http.StatusOK, svc.Calculate(in))
		})

		r.Post("/analyze", func(w http.ResponseWriter, r *http.Request) {
			var in models.FunnelInputs
			if !decode(w, r, &in) {
				return
			}
			resp, err := svc.Analyze(r.Context(), in)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Post("/baseline", func(w http.ResponseWriter, r *http.Request) {
			f := ingest.Filter{CampaignID: r.URL.Query().Get("campaign_id")}
			if q := r.URL.Query().Get("since"); q != "" {
				t, err := time.Parse("2006-01-02", q)
				if err != nil {
					writeMessage(w, http.StatusBadRequest, "bad since date (YYYY-MM-DD)")
					return
				}
				f.Since = &t
			}
			res, totals, err := svc.Baseline(r.Context(), f)
			if errors.Is(err, ingest.ErrNotConfigured) {
				writeError(w, err)
				return
			}
			if err != nil {
				writeMessage(w, http.StatusBadGateway, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"inputs":       res.Inputs,
				"calculations": res.Calculations,
				"chart":        res.Chart,
				"totals":       totals,
			})
		})
	})

	mux.Route("/scenarios", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name   string              `json:"name"`
				Inputs models.FunnelInputs `json:"inputs"`
			}
			if !decode(w, r, &body) {
				return
			}
			sc, err := svc.CreateScenario(r.Context(), body.Name, body.Inputs)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, withChart(sc))
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			rows, err := svc.ListScenarios(r.Context(), atoiDef(q.Get("limit"), 100), atoiDef(q.Get("offset"), 0))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, rows)
		})

		r.Get("/compare", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("base") == "" || q.Get("alt") == "" {
				writeMessage(w, http.StatusBadRequest, "base and alt are required")
				return
			}
			cmp, err := svc.Compare(r.Context(), q.Get("base"), q.Get("alt"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, cmp)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			sc, err := svc.Scenario(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, withChart(sc))
		})

		r.Patch("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Field string `json:"field"`
				Value string `json:"value"`
			}
			if !decode(w, r, &body) {
				return
			}
			sc, err := svc.EditScenario(r.Context(), chi.URLParam(r, "id"), body.Field, body.Value)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, withChart(sc))
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var in models.FunnelInputs
			if !decode(w, r, &in) {
				return
			}
			sc, err := svc.ReplaceScenario(r.Context(), chi.URLParam(r, "id"), in)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, withChart(sc))
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.DeleteScenario(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return mux
}

type scenarioView struct {
	models.Scenario
	Chart []models.ChartPoint `json:"chart"`
}

func withChart(sc models.Scenario) scenarioView {
	return scenarioView{Scenario: sc, Chart: funnel.Chart(sc.Calculations)}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "scenario not found")
	case errors.Is(err, store.ErrConflict):
		writeMessage(w, http.StatusConflict, "scenario was modified concurrently, reload and retry")
	case errors.Is(err, models.ErrUnknownField):
		writeMessage(w, http.StatusBadRequest, "unknown funnel field")
	case errors.Is(err, analysis.ErrCollaborator):
		writeMessage(w, http.StatusBadGateway, "Não foi possível gerar a análise agora. Tente novamente em instantes.")
	case errors.Is(err, ingest.ErrNotConfigured):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
