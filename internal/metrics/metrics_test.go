package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSyncAndWrites(t *testing.T) {
	m := NewMetrics("portal_test", prometheus.NewRegistry())

	m.RecordSync("today", "success", 2*time.Second)
	m.RecordSync("today", "success", time.Second)
	m.RecordWrites("insert", 3)
	m.RecordWrites("zero", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncRuns.WithLabelValues("today", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CampaignWrites.WithLabelValues("insert")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CampaignWrites.WithLabelValues("zero")))
}

func TestRecordPurgeBatch(t *testing.T) {
	m := NewMetrics("portal_test", prometheus.NewRegistry())

	m.RecordPurgeBatch(400)
	m.RecordPurgeBatch(150)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PurgeBatches))
	assert.Equal(t, 550.0, testutil.ToFloat64(m.PurgeDeleted))
}

func TestRecordUpstream(t *testing.T) {
	m := NewMetrics("portal_test", prometheus.NewRegistry())

	m.RecordUpstream("campaigns", 200, 10*time.Millisecond)
	m.RecordUpstream("campaigns", 400, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("campaigns", "400")))
}
