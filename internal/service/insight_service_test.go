package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hotel-insights-go/internal/model"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/errs"
)

func TestInsightService_RefreshWithoutData(t *testing.T) {
	f := newFixture(t)

	_, err := f.insights.Refresh(context.Background())
	assert.ErrorIs(t, err, errs.ErrNoBookingData)
	assert.Nil(t, f.insights.Current())
}

func TestInsightService_Refresh(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 50)

	snap, err := f.insights.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Same(t, snap, f.insights.Current())
	assert.Equal(t, len(snap.Insights), snap.Index.Len())
	assert.NotNil(t, snap.Chain)

	monthly := 0
	for _, in := range snap.Insights {
		if in.Category == model.CategoryMonthly {
			monthly++
		}
	}
	assert.Equal(t, 12, monthly)

	again, err := f.insights.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), again.Version)
}

func TestInsightService_FailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 20)

	first, err := f.insights.Refresh(context.Background())
	require.NoError(t, err)

	f.seed(t, 5)
	f.embedder.fail.Store(true)
	_, err = f.insights.Refresh(context.Background())
	assert.ErrorIs(t, err, errs.ErrIndexBuildFailed)
	assert.Same(t, first, f.insights.Current())
}

func TestInsightService_Restore(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.insights.Restore(context.Background()), vectorindex.ErrNoSnapshot)

	f.seed(t, 30)
	built, err := f.insights.Refresh(context.Background())
	require.NoError(t, err)

	calls := f.embedder.calls.Load()
	restored := f.newInsightService()
	require.NoError(t, restored.Restore(context.Background()))
	assert.Equal(t, calls, f.embedder.calls.Load())

	snap := restored.Current()
	require.NotNil(t, snap)
	assert.Equal(t, built.Insights, snap.Insights)
	assert.Equal(t, built.Index.Dimension(), snap.Index.Dimension())
}

func TestInsightService_ConcurrentReadsDuringRefresh(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 20)
	_, err := f.insights.Refresh(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.insights.Refresh(context.Background())
		}()
	}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := f.insights.Current()
			if assert.NotNil(t, snap) {
				_, err := snap.Chain.Invoke(context.Background(), "What was the revenue?", nil)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(5), f.insights.Current().Version)
}
