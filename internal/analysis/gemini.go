package analysis

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/AngelCh415/funnel_go/internal/utils"
)

// generator is the subset of *genai.Models the analyzer calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Retries int
	RPS     float64
}

// Gemini calls the Gemini API through google.golang.org/genai. Each call is
// rate limited, bounded by Timeout and retried on 429/5xx.
type Gemini struct {
	gen     generator
	model   string
	timeout time.Duration
	backoff utils.Backoff
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, log *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("analysis: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: create genai client")
	}
	return newGemini(client.Models, cfg, log), nil
}

func newGemini(gen generator, cfg GeminiConfig, log *slog.Logger) *Gemini {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return &Gemini{
		gen:     gen,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		backoff: utils.NewBackoff(500*time.Millisecond, cfg.Retries).Only(isTransient),
		limiter: lim,
		log:     log,
	}
}

func (g *Gemini) Analyze(ctx context.Context, req Request) (Response, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Response{}, errors.Join(ErrCollaborator, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var text string
	err = g.backoff.Do(ctx, func(i int) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := g.gen.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.7),
		})
		if err != nil {
			g.log.Warn("gemini call failed", slog.Int("attempt", i+1), slog.String("err", err.Error()))
			return err
		}
		if resp == nil {
			return eris.New("gemini returned no response")
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return eris.New("gemini returned empty text")
		}
		return nil
	})
	if err != nil {
		return Response{}, errors.Join(ErrCollaborator, eris.Wrap(err, "analysis: gemini"))
	}
	g.log.Debug("gemini analysis ok", slog.String("model", g.model), slog.Int("chars", len(text)))
	return Response{Analysis: text}, nil
}

func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= 500
	}
	return false
}
