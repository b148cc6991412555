package livetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator(t *testing.T) {
	sim := NewSimulator(5, 42)

	full := sim.Full()
	require.Len(t, full, 5)
	for i, snapshot := range full {
		id, err := snapshot.ID()
		require.NoError(t, err)
		assert.Equal(t, i+1, id)
	}

	for i := 0; i < 20; i++ {
		batch := sim.Next()
		require.NotEmpty(t, batch)
		assert.LessOrEqual(t, len(batch), 3)
		for _, snapshot := range batch {
			id, err := snapshot.ID()
			require.NoError(t, err)
			assert.True(t, id >= 1 && id <= 5)
		}
	}
}

func TestSimulatorDrivesTestbedView(t *testing.T) {
	sim := NewSimulator(8, 7)
	r := newTestRegistry(t, 8, NewTestbedView(TestbedOptions{}))

	report := r.Dispatch(sim.Full())
	assert.Empty(t, report.Unknown)
	assert.Empty(t, report.Failed)
	assert.Len(t, report.Changed, 8)

	for i := 0; i < 10; i++ {
		report = r.Dispatch(sim.Next())
		assert.Empty(t, report.Failed)
	}
}
