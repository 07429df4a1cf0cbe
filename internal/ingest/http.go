package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/AngelCh415/funnel_go/internal/utils"
)

// GetJSONWithRetry retries transport errors, 429 and 5xx (backoff exponencial + jitter).
func GetJSONWithRetry(ctx context.Context, c HTTPClient, endpoint string, dst any) error {
	return utils.NewBackoff(100*time.Millisecond, 2).Only(retryable).Do(ctx, func(int) error {
		return getJSON(ctx, c, endpoint, dst)
	})
}

// errores de decodificación y 4xx no se reintentan
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
