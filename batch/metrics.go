package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of a Reader.
type Metrics struct {
	RowGroupsRead prometheus.Counter
	RowsDecoded   prometheus.Counter
	ColumnErrors  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	rowGroupsRead := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pqbatch_row_groups_read_total",
		Help: "Total row groups materialized into batches",
	})

	rowsDecoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pqbatch_rows_decoded_total",
		Help: "Total rows decoded across all batches",
	})

	columnErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pqbatch_column_errors_total",
		Help: "Total column decode failures by error kind",
	}, []string{"kind"})

	reg.MustRegister(rowGroupsRead, rowsDecoded, columnErrors)

	return &Metrics{
		RowGroupsRead: rowGroupsRead,
		RowsDecoded:   rowsDecoded,
		ColumnErrors:  columnErrors,
	}
}

// Error kinds used as the ColumnErrors label.
const (
	kindUnsupported = "unsupported"
	kindIncomplete  = "incomplete"
	kindIO          = "io"
)
