package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestViewEvent_MapRoundTrip(t *testing.T) {
	event := NewPostsChangedEvent(42)
	event.Origin = "node-a"

	values, err := event.ToMap()
	require.NoError(t, err)
	assert.Equal(t, EventPostsChanged, values["type"])

	parsed, err := ParseViewEvent(values)
	require.NoError(t, err)
	assert.Equal(t, event, parsed)
}

func TestParseViewEvent_Rejects(t *testing.T) {
	_, err := ParseViewEvent(map[string]interface{}{"type": "x"})
	assert.Error(t, err, "missing data field")

	_, err = ParseViewEvent(map[string]interface{}{"data": "{not json"})
	assert.Error(t, err, "malformed data")

	_, err = ParseViewEvent(map[string]interface{}{"data": `{"timestamp":1}`})
	assert.Error(t, err, "missing type")
}

func TestPublishConsumeAck(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)

	pub := NewPublisher(client, "node-a")
	con := NewConsumer(client)

	// Group created first so the "$" start position includes what follows
	require.NoError(t, con.EnsureGroup(ctx, StreamViews, "views-node-b"))
	require.NoError(t, con.EnsureGroup(ctx, StreamViews, "views-node-b"), "second call is a no-op")

	require.NoError(t, pub.Notify(ctx, NewDmsChangedEvent("c1")))
	_, err := pub.Publish(ctx, StreamViews, NewViewEvent(EventPlazaChanged))
	require.NoError(t, err)

	msgs, err := con.Read(ctx, StreamViews, "views-node-b", "relay", 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, EventDmsChanged, msgs[0].Event.Type)
	assert.Equal(t, "c1", msgs[0].Event.CharacterID)
	assert.Equal(t, "node-a", msgs[0].Event.Origin, "publisher stamps its origin")
	assert.Equal(t, EventPlazaChanged, msgs[1].Event.Type)

	require.NoError(t, con.Ack(ctx, StreamViews, "views-node-b", msgs[0].ID, msgs[1].ID))

	pending, err := client.XPending(ctx, StreamViews, "views-node-b").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	msgs, err = con.Read(ctx, StreamViews, "views-node-b", "relay", 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs, "nothing new after ack")
}

func TestConsumer_SkipsMalformed(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	con := NewConsumer(client)

	require.NoError(t, con.EnsureGroup(ctx, StreamViews, "g"))
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamViews,
		Values: map[string]interface{}{"type": "junk"},
	}).Err())

	msgs, err := con.Read(ctx, StreamViews, "g", "relay", 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDestroyGroup(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	con := NewConsumer(client)

	require.NoError(t, con.EnsureGroup(ctx, StreamViews, "g"))
	require.NoError(t, con.DestroyGroup(ctx, StreamViews, "g"))

	_, err := con.Read(ctx, StreamViews, "g", "relay", 10, 10*time.Millisecond)
	assert.Error(t, err, "reading a destroyed group fails")
}
