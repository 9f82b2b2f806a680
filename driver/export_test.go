package driver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/limits"
	testsim "github.com/opd-ai/crossfade/testing"
	"github.com/opd-ai/crossfade/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExportFixture(t *testing.T, firstCfg, secondCfg testsim.StreamConfig, sinkCfg testsim.SinkConfig, cfg ExportConfig) (*ExportDriver, *testsim.SimulatedSource, *testsim.SimulatedSource, *testsim.SimulatedSink) {
	t.Helper()
	first := testsim.NewSimulatedSource(firstCfg)
	second := testsim.NewSimulatedSource(secondCfg)
	sink := testsim.NewSimulatedSink(sinkCfg)
	d, err := NewExportDriver(newTestProcessor(t), first, second, sink, cfg)
	require.NoError(t, err)
	return d, first, second, sink
}

func TestExportDriver_HundredAndFifty(t *testing.T) {
	log := testsim.NewEventLog()
	d, first, second, sink := newExportFixture(t,
		stream("first", 100, 1, black, log),
		stream("second", 50, 1, white, log),
		testsim.SinkConfig{Name: "sink", BusyPolls: 1, Log: log},
		ExportConfig{Overlap: 10, FrameRate: 60},
	)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	subs := sink.Submissions()
	require.Len(t, subs, 150)
	for i, s := range subs {
		assert.Equal(t, float64(i)/60, s.PTS, "submission %d", i)
		assert.Equal(t, testCanvas, s.Size)
	}
	assert.Equal(t, 1, sink.FinishCount())

	// The second source is not touched before the first reaches t >= 90.
	var latchSeq = -1
	for _, e := range log.Events() {
		if e.Stream == "first" && e.Kind == "pull" && e.Timestamp >= 90 {
			latchSeq = e.Seq
			break
		}
	}
	require.GreaterOrEqual(t, latchSeq, 0)
	secondPull, ok := log.First("second", "pull")
	require.True(t, ok)
	assert.Greater(t, secondPull.Seq, latchSeq)

	events := log.Events()
	assert.Equal(t, "finish", events[len(events)-1].Kind)
	assert.Equal(t, 101, first.Pulls())
	assert.Equal(t, 51, second.Pulls())

	assert.Equal(t, 150, stats.FramesSubmitted)
	assert.Equal(t, 100, stats.FirstFrames)
	assert.Equal(t, 50, stats.SecondFrames)
	assert.Equal(t, 1.0, stats.MaxBlendWeight)
	assert.Equal(t, int64(150), d.Performance().GetPerformanceMetrics().TotalIterations)
	assert.GreaterOrEqual(t, stats.PeakIterationTime, stats.AvgIterationTime)
	assert.Equal(t, d.SessionID(), stats.SessionID)
}

func TestExportDriver_CrossFadeContent(t *testing.T) {
	d, _, _, sink := newExportFixture(t,
		stream("first", 100, 1, black, nil),
		stream("second", 50, 1, white, nil),
		testsim.SinkConfig{Name: "sink"},
		ExportConfig{Overlap: 10, FrameRate: 30},
	)

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	subs := sink.Submissions()
	require.Len(t, subs, 150)
	assert.Equal(t, black, subs[0].Pixel, "pre-overlap shows the first stream")
	assert.Equal(t, black, subs[89].Pixel)
	assert.Equal(t, black, subs[91].Pixel, "window start has zero weight")
	assert.Equal(t, gray, subs[100].Pixel, "first frame at t=95 is halfway")
	assert.Equal(t, white, subs[149].Pixel, "the second stream alone after the first ends")
}

func TestExportDriver_ZeroOverlapIsHardCut(t *testing.T) {
	log := testsim.NewEventLog()
	d, _, _, sink := newExportFixture(t,
		stream("first", 20, 0.5, black, log),
		stream("second", 10, 0.5, white, log),
		testsim.SinkConfig{Name: "sink"},
		ExportConfig{Overlap: 0, FrameRate: 60},
	)

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	subs := sink.Submissions()
	require.Len(t, subs, 30)
	assert.Equal(t, black, subs[19].Pixel)
	assert.Equal(t, white, subs[20].Pixel)

	eos, ok := log.First("first", "eos")
	require.True(t, ok)
	secondPull, ok := log.First("second", "pull")
	require.True(t, ok)
	assert.Greater(t, secondPull.Seq, eos.Seq)
	assert.Equal(t, 1, sink.FinishCount())
}

func TestExportDriver_ShortFirstStreamLatchesImmediately(t *testing.T) {
	d, _, _, sink := newExportFixture(t,
		stream("first", 3, 1, black, nil),
		stream("second", 4, 1, white, nil),
		testsim.SinkConfig{Name: "sink"},
		ExportConfig{Overlap: 10, FrameRate: 25},
	)

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, sink.Submissions(), 7)
}

func TestExportDriver_Failures(t *testing.T) {
	tests := []struct {
		name      string
		firstCfg  func(c *testsim.StreamConfig)
		secondCfg func(c *testsim.StreamConfig)
		sinkCfg   testsim.SinkConfig
		wantKind  error
		wantOp    string
		stream    string
	}{
		{
			name:     "first decode",
			firstCfg: func(c *testsim.StreamConfig) { c.FailAt = 5 },
			wantKind: ErrDecode,
			wantOp:   "decode",
			stream:   "first",
		},
		{
			name:      "second decode",
			secondCfg: func(c *testsim.StreamConfig) { c.FailAt = 2 },
			wantKind:  ErrDecode,
			wantOp:    "decode",
			stream:    "second",
		},
		{
			name:     "encode",
			sinkCfg:  testsim.SinkConfig{Name: "sink", FailAt: 3},
			wantKind: ErrEncode,
			wantOp:   "encode",
			stream:   "output",
		},
		{
			name:     "finish",
			sinkCfg:  testsim.SinkConfig{Name: "sink", FailFinish: true},
			wantKind: ErrEncode,
			wantOp:   "finish",
			stream:   "output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := stream("first", 10, 1, black, nil)
			sc := stream("second", 5, 1, white, nil)
			if tt.firstCfg != nil {
				tt.firstCfg(&fc)
			}
			if tt.secondCfg != nil {
				tt.secondCfg(&sc)
			}
			sinkCfg := tt.sinkCfg
			if sinkCfg.Name == "" {
				sinkCfg.Name = "sink"
			}

			d, _, _, sink := newExportFixture(t, fc, sc, sinkCfg, ExportConfig{Overlap: 3, FrameRate: 60})
			_, err := d.Run(context.Background())
			require.Error(t, err)

			var se *SessionError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantOp, se.Op)
			assert.Equal(t, tt.stream, se.Stream)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.ErrorIs(t, err, testsim.ErrSimulatedFailure)
			assert.NotEmpty(t, err.Error())

			if tt.wantOp != "finish" {
				assert.Equal(t, 0, sink.FinishCount())
			}
		})
	}
}

// cancellingSink cancels the session after a number of submissions.
type cancellingSink struct {
	*testsim.SimulatedSink
	after  int
	cancel context.CancelFunc
}

func (s *cancellingSink) Submit(frame *video.Frame, pts float64) error {
	if err := s.SimulatedSink.Submit(frame, pts); err != nil {
		return err
	}
	if len(s.Submissions()) == s.after {
		s.cancel()
	}
	return nil
}

func TestExportDriver_CancelBetweenFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &cancellingSink{SimulatedSink: testsim.NewSimulatedSink(testsim.SinkConfig{Name: "sink"}), after: 10, cancel: cancel}
	d, err := NewExportDriver(newTestProcessor(t),
		testsim.NewSimulatedSource(stream("first", 100, 1, black, nil)),
		testsim.NewSimulatedSource(stream("second", 50, 1, white, nil)),
		sink, ExportConfig{Overlap: 10, FrameRate: 60})
	require.NoError(t, err)

	_, err = d.Run(ctx)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.Submissions(), 10)
	assert.Equal(t, 0, sink.FinishCount())
}

func TestExportDriver_RunTwice(t *testing.T) {
	d, _, _, _ := newExportFixture(t,
		stream("first", 2, 1, black, nil),
		stream("second", 2, 1, white, nil),
		testsim.SinkConfig{Name: "sink"},
		ExportConfig{Overlap: 1, FrameRate: 60},
	)

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestNewExportDriver_Validation(t *testing.T) {
	p := newTestProcessor(t)
	src := testsim.NewSimulatedSource(stream("a", 1, 1, black, nil))
	sink := testsim.NewSimulatedSink(testsim.SinkConfig{})

	for _, overlap := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := NewExportDriver(p, src, src, sink, ExportConfig{Overlap: overlap, FrameRate: 60})
		assert.ErrorIs(t, err, limits.ErrOverlapOutOfRange, "overlap %v", overlap)
	}

	_, err := NewExportDriver(p, src, src, sink, ExportConfig{Overlap: 1, FrameRate: 0})
	assert.ErrorIs(t, err, limits.ErrInvalidFrameRate)

	_, err = NewExportDriver(p, nil, src, sink, ExportConfig{Overlap: 1, FrameRate: 60})
	assert.Error(t, err)
}

var _ interfaces.FrameSink = (*cancellingSink)(nil)
