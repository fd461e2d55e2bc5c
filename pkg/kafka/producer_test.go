package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishBatchEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "snappy", nil)

	err := p.PublishBatch(context.Background(), "sr-zones", []Message{
		{Key: []byte("EURUSD"), Value: map[string]int{"a": 1}},
		{Key: []byte("EURUSD"), Value: "raw"},
		{Key: []byte("EURUSD"), Value: []byte("bytes")},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 3)
	assert.JSONEq(t, `{"a":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, "bytes", string(w.msgs[2].Value))
	for _, m := range w.msgs {
		assert.Equal(t, "sr-zones", m.Topic)
		assert.Equal(t, "EURUSD", string(m.Key))
	}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishBatchEmptyIsNoop(t *testing.T) {
	w := &fakeWriter{err: errors.New("should not be called")}
	p := newProducer(w, "none", nil)
	assert.NoError(t, p.PublishBatch(context.Background(), "t", nil))
}

func TestPublishRejectsUnencodable(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "none", nil)
	err := p.Publish(context.Background(), "t", nil, func() {})
	assert.Error(t, err)
	assert.Empty(t, w.msgs)
}

func TestProducerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &fakeWriter{}
	p := newProducer(w, "gzip", reg)

	require.NoError(t, p.Publish(context.Background(), "t", nil, "x"))
	w.err = errors.New("broker down")
	require.Error(t, p.Publish(context.Background(), "t", nil, "y"))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.msgs.WithLabelValues("t", "gzip", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.msgs.WithLabelValues("t", "gzip", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.errs.WithLabelValues("t")))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}
