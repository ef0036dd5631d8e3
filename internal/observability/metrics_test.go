package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesODCollectors(t *testing.T) {
	ODSubmissions().WithLabelValues("accepted").Inc()
	ODStatusUpdates().WithLabelValues("approved", "updated").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "od_submissions_total")
	require.Contains(t, string(body), "od_status_updates_total")
}

func TestCollectorsAreSingletons(t *testing.T) {
	before := testutil.ToFloat64(ODStatsCache().WithLabelValues("hit"))
	ODStatsCache().WithLabelValues("hit").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(ODStatsCache().WithLabelValues("hit")))
}
