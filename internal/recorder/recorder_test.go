package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriteAPI struct {
	mu     sync.Mutex
	err    error
	points []*write.Point
}

func (f *fakeWriteAPI) WriteRecord(ctx context.Context, line ...string) error { return f.err }

func (f *fakeWriteAPI) WritePoint(ctx context.Context, point ...*write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, point...)
	return nil
}

func (f *fakeWriteAPI) EnableBatching() {}

func (f *fakeWriteAPI) Flush(ctx context.Context) error { return nil }

func (f *fakeWriteAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

func newTestRecorder(api *fakeWriteAPI) *Recorder {
	return &Recorder{
		writeAPI:    api,
		breaker:     newBreaker(),
		measurement: defaultMeasurement,
		log:         zap.NewNop().Sugar(),
	}
}

func TestRecordWritesNumericReading(t *testing.T) {
	fake := &fakeWriteAPI{}
	r := newTestRecorder(fake)

	r.Record("temperature", "25.4")
	r.Record("humidity", " 61 ")

	require.Equal(t, 2, fake.count())
}

func TestRecordSkipsNonNumericPayload(t *testing.T) {
	fake := &fakeWriteAPI{}
	r := newTestRecorder(fake)

	r.Record("temperature", "-")
	r.Record("light", "bright")

	assert.Zero(t, fake.count())
}

func TestBreakerShortCircuitsAfterConsecutiveFailures(t *testing.T) {
	fake := &fakeWriteAPI{err: errors.New("influx down")}
	r := newTestRecorder(fake)

	// first failures hit the write API, then the breaker opens
	for i := 0; i < breakerTripAfter+3; i++ {
		r.Record("temperature", "20")
	}

	st := r.breaker.State()
	assert.NotEqual(t, "closed", st.String())
	assert.Zero(t, fake.count())
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	fake := &fakeWriteAPI{}
	r := newTestRecorder(fake)
	for i := 0; i < 20; i++ {
		r.Record("light", "300")
	}
	assert.Equal(t, "closed", r.breaker.State().String())
	assert.Equal(t, 20, fake.count())
}

func TestNewRequiresCompleteConfig(t *testing.T) {
	_, err := New(Config{URL: "http://localhost:8086"}, zap.NewNop().Sugar())
	assert.Error(t, err)
}
