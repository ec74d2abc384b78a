package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steinbockcal/internal/ics"
	"steinbockcal/internal/model"
)

type stubBuilder struct {
	calls atomic.Int32
	text  string
	err   error
}

func (b *stubBuilder) Build(context.Context) (string, error) {
	b.calls.Add(1)
	return b.text, b.err
}

type memLogger struct {
	mu    sync.Mutex
	infos []string
	errs  []error
}

func (l *memLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *memLogger) Error(_ string, err error, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func feedText(t *testing.T) string {
	t.Helper()
	text, err := ics.Serialize(model.CalendarDocument{
		Version:   model.CalendarVersion,
		ProductID: model.ProductID,
		Timezone:  model.ViennaTimezone(),
		Events: []model.EventRecord{
			{UID: "a", Timestamp: "20240305T124650Z", Summary: "Steinbock schraubt: Nord", Start: "20240305", End: "20240305", Style: model.StyleAllDay},
		},
	})
	require.NoError(t, err)
	return text
}

func TestCheckOK(t *testing.T) {
	logger := &memLogger{}
	c := New(&stubBuilder{text: feedText(t)}, logger, time.Second)

	_, ok := c.Last()
	assert.False(t, ok)

	res := c.Check(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Events)
	assert.Contains(t, logger.infos, "feed check ok")

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, res, last)
}

func TestCheckFailure(t *testing.T) {
	logger := &memLogger{}
	boom := errors.New("boom")
	c := New(&stubBuilder{err: boom}, logger, time.Second)

	res := c.Check(context.Background())
	assert.ErrorIs(t, res.Err, boom)
	require.Len(t, logger.errs, 1)
}

func TestStartRunsOnSchedule(t *testing.T) {
	b := &stubBuilder{text: feedText(t)}
	c := New(b, &memLogger{}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx, "@every 1s"))

	assert.Eventually(t, func() bool { return b.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestStartInvalidSchedule(t *testing.T) {
	c := New(&stubBuilder{}, &memLogger{}, time.Second)
	err := c.Start(context.Background(), "not a schedule")
	assert.Error(t, err)
}
