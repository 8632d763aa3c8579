package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cryptodw/internal/model"
	"cryptodw/internal/stats"
)

func TestMonitorSamplesStats(t *testing.T) {
	st := stats.NewCollector()
	state := model.StateDisconnected
	mon := New(st, func() model.ConnectionState { return state })

	st.IncReceived()
	st.IncReceived()
	st.AddInserted(2)
	st.IncErrors()
	st.IncDropped()
	state = model.StateSubscribed

	expected := `
# HELP cryptodw_ingestor_connection_state Feed connection state (0=disconnected, 1=connecting, 2=subscribed, 3=closing).
# TYPE cryptodw_ingestor_connection_state gauge
cryptodw_ingestor_connection_state 2
# HELP cryptodw_ingestor_errors_total Malformed frames, connection failures and failed flushes.
# TYPE cryptodw_ingestor_errors_total counter
cryptodw_ingestor_errors_total 1
# HELP cryptodw_ingestor_frames_dropped_total Frames discarded because the receive buffer was full.
# TYPE cryptodw_ingestor_frames_dropped_total counter
cryptodw_ingestor_frames_dropped_total 1
# HELP cryptodw_ingestor_trades_inserted_total Trade events committed to the bronze table.
# TYPE cryptodw_ingestor_trades_inserted_total counter
cryptodw_ingestor_trades_inserted_total 2
# HELP cryptodw_ingestor_trades_received_total Trade events accepted from the feed after normalization.
# TYPE cryptodw_ingestor_trades_received_total counter
cryptodw_ingestor_trades_received_total 2
`
	if err := testutil.CollectAndCompare(mon.Registry(), strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected exposition: %v", err)
	}
}

func TestMonitorTracksLiveCounters(t *testing.T) {
	st := stats.NewCollector()
	mon := New(st, func() model.ConnectionState { return model.StateDisconnected })

	if n := testutil.CollectAndCount(mon.Registry()); n != 5 {
		t.Errorf("metric count = %d, want 5", n)
	}

	st.AddInserted(7)
	st.AddInserted(3)

	got, err := testutil.GatherAndCount(mon.Registry(), "cryptodw_ingestor_trades_inserted_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 1 {
		t.Fatalf("inserted metric families = %d, want 1", got)
	}
}
