package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingForwarder struct {
	events []Event
	err    error
}

func (f *recordingForwarder) Forward(_ context.Context, ev Event) error {
	f.events = append(f.events, ev)
	return f.err
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubDeliversOnlyToOwner(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar(), 4)
	mine := hub.Subscribe("u-1")
	defer mine.Close()
	theirs := hub.Subscribe("u-2")
	defer theirs.Close()

	hub.Publish(context.Background(), Event{Type: ApplicationCreated, UserID: "u-1", Payload: map[string]string{"id": "a-1"}})

	ev := receive(t, mine)
	assert.Equal(t, ApplicationCreated, ev.Type)
	assert.False(t, ev.At.IsZero())

	select {
	case ev := <-theirs.C:
		t.Fatalf("unexpected event for other user: %+v", ev)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar(), 1)
	sub := hub.Subscribe("u-1")
	defer sub.Close()

	hub.Deliver(Event{Type: "first", UserID: "u-1"})
	hub.Deliver(Event{Type: "second", UserID: "u-1"})

	assert.Equal(t, "first", receive(t, sub).Type)
	select {
	case ev := <-sub.C:
		t.Fatalf("expected second event to be dropped, got %+v", ev)
	default:
	}
}

func TestSubscriptionClose(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar(), 0)
	sub := hub.Subscribe("u-1")
	require.Equal(t, 1, hub.Subscribers("u-1"))

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Subscribers("u-1"))
	_, open := <-sub.C
	assert.False(t, open)

	hub.Deliver(Event{Type: "late", UserID: "u-1"})
}

func TestHubForwards(t *testing.T) {
	fwd := &recordingForwarder{err: errors.New("broker down")}
	hub := NewHub(zap.NewNop().Sugar(), 1).WithForwarder(fwd)

	hub.Publish(context.Background(), Event{Type: HuntUpdated, UserID: "u-1"})

	require.Len(t, fwd.events, 1)
	assert.Equal(t, HuntUpdated, fwd.events[0].Type)
}

func TestKafkaMessageRoundTrip(t *testing.T) {
	ev := Event{Type: ApplicationStatusChanged, UserID: "u-1", At: time.Unix(100, 0).UTC()}
	msg, err := encodeMessage(ev, "instance-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("u-1"), msg.Key)

	got, origin, err := decodeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "instance-a", origin)
	assert.Equal(t, ev.Type, got.Type)
	assert.Equal(t, ev.UserID, got.UserID)
	assert.True(t, ev.At.Equal(got.At))

	msg.Value = []byte("{not json")
	_, _, err = decodeMessage(msg)
	assert.Error(t, err)
}
