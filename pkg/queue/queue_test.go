package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rebuildPayload struct {
	Pair string `json:"pair"`
}

type recordingJob struct {
	got []string
	err error
}

func (j *recordingJob) Type() string { return "rebuild" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	p, err := DecodePayload[rebuildPayload](payload)
	if err != nil {
		return err
	}
	j.got = append(j.got, p.Pair)
	return j.err
}

func TestNewMessageAndDecode(t *testing.T) {
	msg, err := newMessage("rebuild", rebuildPayload{Pair: "EUR/USD"})
	require.NoError(t, err)
	assert.Equal(t, "rebuild", msg.Type)
	assert.NotEmpty(t, msg.ID)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var back Message
	require.NoError(t, json.Unmarshal(raw, &back))

	p, err := DecodePayload[rebuildPayload](back.Payload)
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", p.Pair)

	_, err = DecodePayload[rebuildPayload](json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestProcessDispatchesByType(t *testing.T) {
	q := NewRedisQueue(nil, Config{}, nil, WithKeyPrefix("test:q"))
	job := &recordingJob{}
	q.RegisterJob(job)
	q.RegisterJob(&recordingJob{})

	msg, err := newMessage("rebuild", rebuildPayload{Pair: "USD/JPY"})
	require.NoError(t, err)
	require.NoError(t, q.process(context.Background(), msg))
	assert.Equal(t, []string{"USD/JPY"}, job.got)

	job.err = errors.New("boom")
	assert.ErrorIs(t, q.process(context.Background(), msg), job.err)

	job.err = context.Canceled
	assert.NoError(t, q.process(context.Background(), msg))

	msg.Type = "unknown"
	assert.NoError(t, q.process(context.Background(), msg))
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	q := NewRedisQueue(nil, Config{}, nil)
	err := q.Enqueue(context.Background(), "rebuild", rebuildPayload{})
	assert.ErrorContains(t, err, "no job registered")
}

func TestKeys(t *testing.T) {
	q := NewRedisQueue(nil, Config{}, nil, WithKeyPrefix("sr:q"))
	assert.Equal(t, "sr:q:messages", q.queueKey())
	assert.Equal(t, "sr:q:retry", q.retryKey())
	assert.Equal(t, "sr:q:dlq", q.deadLetterKey())
	assert.Equal(t, 1, q.config.Workers)
	require.NoError(t, q.Stop(context.Background()), "stopping an idle queue is a no-op")
}
