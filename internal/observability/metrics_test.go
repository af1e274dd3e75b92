package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.Bookmarks.WithLabelValues("saved").Inc()
	a.Bookmarks.WithLabelValues("saved").Inc()
	b.Bookmarks.WithLabelValues("duplicate").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.Bookmarks.WithLabelValues("saved")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Bookmarks.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Bookmarks.WithLabelValues("duplicate")))
}

func TestQueryDurationObserves(t *testing.T) {
	m := NewMetricsForTesting()
	m.QueryDuration.WithLabelValues("search").Observe(0.02)
	assert.Equal(t, 1, testutil.CollectAndCount(m.QueryDuration))
}
