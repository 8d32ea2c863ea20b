package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leeforge/shrink/errors"
	"github.com/leeforge/shrink/media/processor"
	"github.com/leeforge/shrink/media/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedPreviewer blocks its first call until release is closed.
type gatedPreviewer struct {
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls []processor.Parameters
	err   error
}

func newGated() *gatedPreviewer {
	return &gatedPreviewer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedPreviewer) Preview(ctx context.Context, p processor.Parameters) (*session.PreviewResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, p)
	first := len(g.calls) == 1
	g.mu.Unlock()

	if first {
		close(g.started)
		<-g.release
	}
	if g.err != nil {
		return nil, g.err
	}
	return &session.PreviewResult{EstimatedSize: int64(p.Quality)}, nil
}

func (g *gatedPreviewer) seen() []processor.Parameters {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]processor.Parameters(nil), g.calls...)
}

type collector struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (c *collector) add(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *collector) all() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}

func p(q int) processor.Parameters {
	return processor.Parameters{Quality: q, MaxWidth: 1200}
}

func TestPreviewQueue_DeliversSingleRequest(t *testing.T) {
	g := newGated()
	close(g.release)
	var c collector
	q := NewPreviewQueue(g, Options{OnResult: c.add})
	q.Start()

	seq := q.Submit(p(40))
	require.NoError(t, q.Stop())

	out := c.all()
	require.Len(t, out, 1)
	assert.Equal(t, seq, out[0].Seq)
	assert.EqualValues(t, 40, out[0].Result.EstimatedSize)
	assert.NoError(t, out[0].Err)
}

func TestPreviewQueue_StaleResultsDiscarded(t *testing.T) {
	g := newGated()
	var c collector
	q := NewPreviewQueue(g, Options{OnResult: c.add})
	q.Start()

	first := q.Submit(p(10))
	<-g.started
	second := q.Submit(p(20))
	third := q.Submit(p(30))
	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, third)
	assert.Equal(t, third, q.Latest())

	close(g.release)
	require.NoError(t, q.Stop())

	out := c.all()
	require.Len(t, out, 1, "only the newest request is delivered")
	assert.Equal(t, third, out[0].Seq)
	assert.Equal(t, p(30), out[0].Params)

	// The superseded middle request never ran.
	assert.Equal(t, []processor.Parameters{p(10), p(30)}, g.seen())
}

func TestPreviewQueue_FullBufferDropsOldest(t *testing.T) {
	g := newGated()
	var c collector
	q := NewPreviewQueue(g, Options{Buffer: 1, OnResult: c.add})
	q.Start()

	q.Submit(p(10))
	<-g.started
	q.Submit(p(20))
	last := q.Submit(p(30))
	assert.Equal(t, 1, q.Pending())

	close(g.release)
	require.NoError(t, q.Stop())

	out := c.all()
	require.Len(t, out, 1)
	assert.Equal(t, last, out[0].Seq)
}

func TestPreviewQueue_ErrorsAreDelivered(t *testing.T) {
	g := newGated()
	g.err = errors.NewNotLoaded()
	close(g.release)
	var c collector
	q := NewPreviewQueue(g, Options{OnResult: c.add})
	q.Start()

	q.Submit(p(50))
	require.NoError(t, q.Stop())

	out := c.all()
	require.Len(t, out, 1)
	assert.ErrorIs(t, out[0].Err, errors.ErrNotLoaded)
	assert.Nil(t, out[0].Result)
}

func TestPreviewQueue_SubmitAfterStop(t *testing.T) {
	g := newGated()
	close(g.release)
	q := NewPreviewQueue(g, Options{})
	q.Start()
	require.NoError(t, q.Stop())
	require.NoError(t, q.Stop(), "second stop is a no-op")

	assert.Zero(t, q.Submit(p(10)))
	assert.Empty(t, g.seen())
}

func TestPreviewQueue_StopTimeout(t *testing.T) {
	g := newGated()
	q := NewPreviewQueue(g, Options{StopTimeout: 20 * time.Millisecond})
	q.Start()

	q.Submit(p(10))
	<-g.started

	assert.Error(t, q.Stop())
	close(g.release)
}

func TestPreviewQueue_WithSession(t *testing.T) {
	s := session.New(session.Options{})
	var c collector
	q := NewPreviewQueue(s, Options{OnResult: c.add})
	q.Start()

	q.Submit(processor.DefaultParameters())
	require.NoError(t, q.Stop())

	out := c.all()
	require.Len(t, out, 1)
	assert.ErrorIs(t, out[0].Err, errors.ErrNotLoaded)
}
