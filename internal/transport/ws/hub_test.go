package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

func TestHubPublishToBoundConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx)
	go hub.Run(ctx)

	bound := hub.NewConnection(nil)
	other := hub.NewConnection(nil)
	hub.Register(bound)
	hub.Register(other)
	hub.BindConversation(bound, "c1")
	hub.BindConversation(other, "c2")

	hub.Publish("c1", domain.StreamEvent{Kind: domain.EventKindMessage, Answer: "hi"})

	select {
	case data := <-bound.Send:
		var f ChatEventFrame
		require.NoError(t, json.Unmarshal(data, &f))
		assert.Equal(t, TypeChatEvent, f.Type)
		assert.Equal(t, "c1", f.ConversationID)
		assert.Equal(t, "hi", f.Event.Answer)
	case <-time.After(time.Second):
		t.Fatal("bound connection received nothing")
	}

	select {
	case <-other.Send:
		t.Fatal("unbound connection received an event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx)
	go hub.Run(ctx)

	conn := hub.NewConnection(nil)
	hub.Register(conn)
	hub.BindConversation(conn, "c1")
	hub.Unregister(conn)

	select {
	case _, ok := <-conn.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.False(t, hub.HasSubscribers("c1"))
	assert.Equal(t, 0, hub.GetConnectionCount())
}

func TestHubIgnoresBindAfterUnregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx)
	go hub.Run(ctx)

	conn := hub.NewConnection(nil)
	hub.Register(conn)
	hub.Unregister(conn)
	select {
	case <-conn.Send:
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	// A turn that outlives its connection binds late.
	hub.BindConversation(conn, "c1")
	assert.False(t, hub.HasSubscribers("c1"))
	require.NoError(t, hub.SendJSONToConnection(conn, BaseFrame{Type: TypeChatDone}))
}

func TestHubStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// Calls after shutdown return instead of blocking.
	hub.Register(hub.NewConnection(nil))
	hub.Publish("c1", domain.StreamEvent{})
}
