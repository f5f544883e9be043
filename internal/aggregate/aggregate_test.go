package aggregate

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joltmail/joltsync/internal/connection"
	"github.com/joltmail/joltsync/internal/jmap"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:           "127.0.0.1",
		Port:           -1,
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 2048,
	}
	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func newConn(t *testing.T, dataGroup string) *connection.Connection {
	t.Helper()
	return connection.New(connection.Config{DataGroup: dataGroup})
}

func TestSourceIsDirtyTrueWhenAnyConnectionHasPendingWork(t *testing.T) {
	mail := newConn(t, "mail")
	contacts := newConn(t, "contacts")
	src := New(map[string]*connection.Connection{"mail": mail, "contacts": contacts}, nil, nil)

	assert.False(t, src.IsDirty())
	assert.Empty(t, src.DirtyGroups())

	mail.CallMethod(jmap.MethodCall{Name: "Email/get"}, nil)

	assert.True(t, src.IsDirty())
	assert.Equal(t, []string{"mail"}, src.DirtyGroups())
}

func TestSourceDataGroupsSorted(t *testing.T) {
	src := New(map[string]*connection.Connection{
		"submission": newConn(t, "submission"),
		"calendars":  newConn(t, "calendars"),
		"mail":       newConn(t, "mail"),
	}, nil, nil)

	assert.Equal(t, []string{"calendars", "mail", "submission"}, src.DataGroups())
}

func TestSourceFlushDrainsEmptyConnectionsWithoutError(t *testing.T) {
	src := New(map[string]*connection.Connection{
		"mail":     newConn(t, "mail"),
		"contacts": newConn(t, "contacts"),
	}, nil, nil)

	err := src.Flush(context.Background())
	assert.NoError(t, err)
}

func TestSourceConnectionLooksUpByDataGroup(t *testing.T) {
	mail := newConn(t, "mail")
	src := New(map[string]*connection.Connection{"mail": mail}, nil, nil)

	assert.Same(t, mail, src.Connection("mail"))
	assert.Nil(t, src.Connection("calendars"))
}

func TestStatusBusPublishSubscribeRoundTrip(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	bus := NewStatusBus(nc)
	sub, err := bus.SubscribeAll()
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.Publish(context.Background(), "mail", true))

	select {
	case evt := <-sub.Events():
		assert.Equal(t, "mail", evt.DataGroup)
		assert.True(t, evt.Dirty)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status event")
	}
}

func TestSourceFlushPublishesStatusAfterEachConnection(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	bus := NewStatusBus(nc)
	sub, err := bus.SubscribeAll()
	require.NoError(t, err)
	defer sub.Close()

	src := New(map[string]*connection.Connection{"mail": newConn(t, "mail")}, bus, nil)
	require.NoError(t, src.Flush(context.Background()))

	select {
	case evt := <-sub.Events():
		assert.Equal(t, "mail", evt.DataGroup)
		assert.False(t, evt.Dirty)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status event")
	}
}
