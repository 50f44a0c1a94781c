package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// probeTimeout bounds the status verb's direct liveness probe.
const probeTimeout = 5 * time.Second

// probeHTTP performs one GET against the service and reports liveness. The
// probe is deliberately redundant with the engine's own health check: the
// engine-reported state can lag, this cannot. The threshold matches the
// container healthcheck, which uses curl -f and fails on any 4xx or 5xx.
func probeHTTP(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("service answered %s", resp.Status)
	}
	return nil
}
