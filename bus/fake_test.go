package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_PublishDeliversToSubscribers(t *testing.T) {
	f := NewFake()
	var got []RawEvent
	require.NoError(t, f.Subscribe(context.Background(), func(e RawEvent) {
		got = append(got, e)
	}))

	f.Publish(RawEvent{SensorName: []byte("framesqueued"), Scope: "pod-a", Value: 1})
	f.Publish(RawEvent{SensorName: []byte("framesqueued"), Scope: "pod-a", Value: 2})

	assert.Len(t, got, 2)
	assert.Equal(t, 2.0, got[1].Value)
}

func TestFake_MultipleSubscribersAllReceive(t *testing.T) {
	f := NewFake()
	var a, b int
	require.NoError(t, f.Subscribe(context.Background(), func(e RawEvent) { a++ }))
	require.NoError(t, f.Subscribe(context.Background(), func(e RawEvent) { b++ }))

	f.Publish(RawEvent{SensorName: []byte("cpuutil"), Scope: "pod-a", Value: 1})

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestFake_CloseStopsFurtherSubscriptions(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.Close())

	var delivered bool
	require.NoError(t, f.Subscribe(context.Background(), func(e RawEvent) { delivered = true }))

	f.Publish(RawEvent{SensorName: []byte("cpuutil"), Scope: "pod-a", Value: 1})
	assert.False(t, delivered)
}

func TestFake_PublishWithNoSubscribersIsNoop(t *testing.T) {
	f := NewFake()
	assert.NotPanics(t, func() {
		f.Publish(RawEvent{SensorName: []byte("cpuutil"), Scope: "pod-a", Value: 1})
	})
}
