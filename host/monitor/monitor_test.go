package monitor

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coreclock/core"
	"coreclock/host/mcu"
	"coreclock/protocol"
)

func hseReport(reported uint32) *protocol.ClockReport {
	r := &protocol.ClockReport{CoreClock: reported}
	r.Regs.Set(core.RCC_CFGR, core.SysClkHSE<<core.RCC_CFGR_SWS_Pos)
	return r
}

// fakeSource replays reports and then blocks until cancelled
type fakeSource struct {
	reports     []*protocol.ClockReport
	dict        *mcu.Dictionary
	frameErrors uint32
	dropped     uint32
}

func (f *fakeSource) Run(ctx context.Context, onReport mcu.ReportHandler) error {
	for i, r := range f.reports {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onReport(uint8(i), r)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSource) GetDictionary() *mcu.Dictionary { return f.dict }
func (f *fakeSource) FrameErrors() uint32            { return f.frameErrors }
func (f *fakeSource) Dropped() uint32                { return f.dropped }

func TestCheckMatch(t *testing.T) {
	metrics := NewMetrics()
	m := New(core.DefaultOscillators(), metrics)

	res := m.Check(3, hseReport(core.DefaultHSEValue))
	assert.False(t, res.Mismatch)
	assert.Equal(t, uint8(3), res.Seq)
	assert.Equal(t, "HSE", res.Tree.SourceName)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.reports))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.mismatches))
	assert.Equal(t, float64(core.DefaultHSEValue), testutil.ToFloat64(metrics.coreHz))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.vcoHz))
}

func TestCheckMismatch(t *testing.T) {
	metrics := NewMetrics()
	m := New(core.DefaultOscillators(), metrics)

	res := m.Check(0, hseReport(25000000))
	assert.True(t, res.Mismatch)
	assert.Equal(t, uint32(25000000), res.Reported)
	assert.Equal(t, uint32(core.DefaultHSEValue), res.Tree.Core)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.mismatches))
	assert.Equal(t, float64(25000000), testutil.ToFloat64(metrics.coreHz))
	assert.Equal(t, float64(core.DefaultHSEValue), testutil.ToFloat64(metrics.sysclkHz))
}

func TestCheckUsesConfiguredOscillators(t *testing.T) {
	osc := core.DefaultOscillators()
	osc.HSE = 25000000
	m := New(osc, nil)

	assert.False(t, m.Check(0, hseReport(25000000)).Mismatch)
	assert.True(t, m.Check(1, hseReport(core.DefaultHSEValue)).Mismatch)
}

func TestRunOnce(t *testing.T) {
	src := &fakeSource{
		reports: []*protocol.ClockReport{hseReport(core.DefaultHSEValue), hseReport(0)},
	}
	m := New(core.DefaultOscillators(), nil)

	var results []Result
	m.OnResult = func(r Result) { results = append(results, r) }

	err := m.Run(context.Background(), src, true)
	require.ErrorIs(t, err, ErrStopped)
	require.Len(t, results, 1)
	assert.False(t, results[0].Mismatch)
}

func TestRunCountersAndDictionary(t *testing.T) {
	src := &fakeSource{
		reports: []*protocol.ClockReport{hseReport(core.DefaultHSEValue), hseReport(core.DefaultHSEValue)},
		dict: &mcu.Dictionary{Config: map[string]string{
			"HSE_VALUE": "25000000",
			"HSI_VALUE": "64000000",
			"CSI_VALUE": "4000000",
		}},
		frameErrors: 2,
		dropped:     1,
	}
	metrics := NewMetrics()
	m := New(core.DefaultOscillators(), metrics)

	count := 0
	ctx, cancel := context.WithCancel(context.Background())
	m.OnResult = func(Result) {
		count++
		if count == 2 {
			cancel()
		}
	}

	err := m.Run(ctx, src, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, count)
	assert.True(t, m.dictChecked)

	// Totals are forwarded once, not once per report
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.frameErrors))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.dropped))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.reports))
}

func TestServeOnceWithMetrics(t *testing.T) {
	src := &fakeSource{reports: []*protocol.ClockReport{hseReport(core.DefaultHSEValue)}}
	m := New(core.DefaultOscillators(), NewMetrics())

	err := m.Serve(context.Background(), src, "127.0.0.1:0", true)
	require.NoError(t, err)
}

func TestServeBadAddress(t *testing.T) {
	m := New(core.DefaultOscillators(), NewMetrics())
	err := m.Serve(context.Background(), &fakeSource{}, "256.0.0.1:bad", false)
	require.Error(t, err)
}

func TestMetricsRegistry(t *testing.T) {
	metrics := NewMetrics()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"coreclock_core_hz",
		"coreclock_sysclk_hz",
		"coreclock_vco_hz",
		"coreclock_reports_total",
		"coreclock_mismatch_total",
		"coreclock_frame_errors_total",
		"coreclock_dropped_frames_total",
	} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, metrics.Handler())
}
