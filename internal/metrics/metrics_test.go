package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	require.NotPanics(t, Init)
}

func TestObserveHelpers(t *testing.T) {
	require.NotPanics(t, func() {
		ObserveRun("success", 42*time.Second)
		ObserveListingPage()
		ObserveTitleScraped("authoritative")
		ObserveTitleScraped("fallback")
		ObserveShowtimeRequest("ok")
		ObservePolitenessDelay(900 * time.Millisecond)
		ObserveCatalogRows("movies", "upsert", 3)
		ObserveCatalogRows("shows", "delete", 0)
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveRun("success", time.Second)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "cinesync_runs_total")
}
