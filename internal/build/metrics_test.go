package build

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildMetrics(t *testing.T) {
	m := NewBuildMetrics()
	assert.Equal(t, 0.0, m.GetSuccessRate())

	m.RecordBuild(10*time.Millisecond, 2, nil)
	m.RecordBuild(30*time.Millisecond, 0, nil)
	m.RecordBuild(20*time.Millisecond, 5, errors.New("boom"))

	snap := m.GetSnapshot()
	assert.Equal(t, int64(3), snap.TotalBuilds)
	assert.Equal(t, int64(2), snap.SuccessfulBuilds)
	assert.Equal(t, int64(1), snap.FailedBuilds)
	assert.Equal(t, int64(2), snap.TotalWarnings, "warnings of failed builds are not counted")
	assert.Equal(t, 20*time.Millisecond, snap.LastDuration)
	assert.Equal(t, 20*time.Millisecond, snap.AverageDuration)
	assert.InDelta(t, 66.67, m.GetSuccessRate(), 0.01)

	m.Reset()
	assert.Equal(t, int64(0), m.GetSnapshot().TotalBuilds)
}
