package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/domain/consolidate"
	"github.com/leohfurlan/reometro-score/internal/domain/identify"
)

func TestRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRun(&pipeline.Report{
		Duration: 2 * time.Second,
		Stats: consolidate.Stats{
			Rows:    100,
			Dropped: 5,
			ByMethod: map[identify.Method]int{
				identify.MethodLot:  30,
				identify.MethodText: 10,
			},
		},
		Scored:   40,
		Approved: 30,
	})
	m.RecordRun(&pipeline.Report{
		Duration: time.Second,
		Stats:    consolidate.Stats{Rows: 50},
		Scored:   20,
		Approved: 20,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.rowsProcessed))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.recordsScored))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.recordsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.approvedRatio))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.methodTally.WithLabelValues("lot-mapping")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.methodTally.WithLabelValues("free-text")))
}

func TestRecordRun_EmptyRunKeepsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRun(&pipeline.Report{Scored: 10, Approved: 5})
	m.RecordRun(&pipeline.Report{Scored: 0})

	assert.Equal(t, 0.5, testutil.ToFloat64(m.approvedRatio))
}
