package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/models"
)

type countingPipeline struct {
	runs  atomic.Int64
	block chan struct{}
}

func (p *countingPipeline) Run(ctx context.Context) (*models.PipelineRun, error) {
	p.runs.Add(1)
	if p.block != nil {
		<-p.block
	}
	return &models.PipelineRun{}, nil
}

func TestStart_DisabledIsNoOp(t *testing.T) {
	svc := NewService(&common.ScheduleConfig{Enabled: false}, &countingPipeline{}, nil)

	require.NoError(t, svc.Start())
	assert.False(t, svc.IsRunning())

	_, ok := svc.NextRun()
	assert.False(t, ok)
}

func TestStart_InvalidCron(t *testing.T) {
	svc := NewService(&common.ScheduleConfig{Enabled: true, Cron: "not a cron"}, &countingPipeline{}, nil)

	err := svc.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a cron")
}

func TestStart_SchedulesNextRun(t *testing.T) {
	svc := NewService(&common.ScheduleConfig{Enabled: true, Cron: "0 7 * * *"}, &countingPipeline{}, nil)

	require.NoError(t, svc.Start())
	defer svc.Stop()

	assert.True(t, svc.IsRunning())
	next, ok := svc.NextRun()
	require.True(t, ok)
	assert.True(t, next.After(time.Now()))

	require.Error(t, svc.Start(), "second start must be rejected")
}

func TestTriggerNow_RunsPipeline(t *testing.T) {
	pipeline := &countingPipeline{}
	svc := NewService(&common.ScheduleConfig{}, pipeline, nil)

	require.NoError(t, svc.TriggerNow())

	require.Eventually(t, func() bool {
		return pipeline.runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	last, lastErr := svc.LastRun()
	require.NotNil(t, last)
	assert.Empty(t, lastErr)
}

func TestTriggerNow_RefusesOverlap(t *testing.T) {
	pipeline := &countingPipeline{block: make(chan struct{})}
	svc := NewService(&common.ScheduleConfig{}, pipeline, nil)

	require.NoError(t, svc.TriggerNow())
	require.Eventually(t, func() bool {
		return pipeline.runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	err := svc.TriggerNow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in progress")

	close(pipeline.block)
	require.Eventually(t, func() bool {
		last, _ := svc.LastRun()
		return last != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), pipeline.runs.Load())
}

func TestStop_Idempotent(t *testing.T) {
	svc := NewService(&common.ScheduleConfig{Enabled: true, Cron: "* * * * *"}, &countingPipeline{}, nil)

	require.NoError(t, svc.Start())
	svc.Stop()
	svc.Stop()
	assert.False(t, svc.IsRunning())
}
