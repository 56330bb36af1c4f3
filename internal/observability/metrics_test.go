package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordUpdate("command")
	m.RecordUpdate("command")
	m.RecordUpdate("skipped")
	m.RecordCommand("ticket")
	m.RecordModule("conversation_relay")
	m.RecordError("command:ticket", "CONFLICT")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap["updates"]["command"])
	assert.Equal(t, int64(1), snap["updates"]["skipped"])
	assert.Equal(t, int64(1), snap["commands"]["ticket"])
	assert.Equal(t, int64(1), snap["modules"]["conversation_relay"])
	assert.Equal(t, int64(1), snap["errors"]["command:ticket|CONFLICT"])
}

func TestMetrics_SnapshotIsACopy(t *testing.T) {
	m := NewMetrics()
	m.RecordUpdate("command")

	snap := m.Snapshot()
	snap["updates"]["command"] = 99

	assert.Equal(t, int64(1), m.Snapshot()["updates"]["command"])
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpdate("command")
		m.RecordError("stage", "CODE")
	})
	assert.Nil(t, m.Snapshot())
}
