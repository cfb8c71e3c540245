package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amp-monitor/internal/data"
	"amp-monitor/internal/metrics"
	"amp-monitor/internal/storage"
)

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startHub(t *testing.T) (*Hub, *storage.AmplifierStore, *storage.NotificationStore, *gws.Conn) {
	t.Helper()
	amps := storage.NewAmplifierStore()
	notes := storage.NewNotificationStore(0)
	amps.SetMetric("Amp 1", data.MetricPower, data.Number(100))

	hub := NewHub(nil, zerolog.Nop())
	detach := hub.Attach(amps, notes)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		detach()
		cancel()
		srv.Close()
	})
	return hub, amps, notes, conn
}

func readEnvelope(t *testing.T, conn *gws.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var r received
	require.NoError(t, json.Unmarshal(b, &r))
	return r
}

func TestSnapshotThenUpdates(t *testing.T) {
	hub, amps, notes, conn := startHub(t)

	env := readEnvelope(t, conn)
	require.Equal(t, TypeSnapshot, env.Type)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(env.Payload, &snap))
	assert.Equal(t, data.Number(100), snap.Amplifiers["Amp 1"].Power)
	assert.Empty(t, snap.Notifications)

	amps.SetMetric("Amp 1", data.MetricTemp, data.Number(44))
	env = readEnvelope(t, conn)
	require.Equal(t, TypeAmplifiers, env.Type)
	var m map[string]data.AmplifierData
	require.NoError(t, json.Unmarshal(env.Payload, &m))
	assert.Equal(t, data.Number(44), m["Amp 1"].Temp)

	notes.Push(data.NotificationMessage{ID: "n1", Title: "hi", Type: data.TypeInfo})
	env = readEnvelope(t, conn)
	require.Equal(t, TypeNotifications, env.Type)
	var list []data.NotificationMessage
	require.NoError(t, json.Unmarshal(env.Payload, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "n1", list[0].ID)

	hub.BroadcastData(data.DataEvent{AmplifierName: "Amp 1", Metric: data.MetricSWR, Value: "1.1", Reading: data.Number(1.1)})
	env = readEnvelope(t, conn)
	require.Equal(t, TypeData, env.Type)
	var ev data.DataEvent
	require.NoError(t, json.Unmarshal(env.Payload, &ev))
	assert.Equal(t, "1.1", ev.Value)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := &Client{Hub: hub, Send: make(chan []byte, 1)}
	hub.RegisterClient(c)
	cancel()
	<-stopped

	_, ok := <-c.Send
	assert.False(t, ok, "send channel closed on shutdown")

	late := &Client{Hub: hub, Send: make(chan []byte, 1)}
	hub.RegisterClient(late)
	_, ok = <-late.Send
	assert.False(t, ok, "registration after shutdown closes the client")

	assert.NotPanics(t, func() { hub.BroadcastData(data.DataEvent{}) })
}

func wsClients(t *testing.T, m *metrics.Metrics) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "amp_monitor_ws_clients" && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func TestHubDropsClientWithFullBuffer(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &Client{Hub: hub, Send: make(chan []byte, 1)}
	hub.RegisterClient(slow)
	require.Eventually(t, func() bool { return wsClients(t, m) == 1 }, time.Second, 2*time.Millisecond)

	hub.BroadcastData(data.DataEvent{AmplifierName: "Amp 1", Value: "1"})
	hub.BroadcastData(data.DataEvent{AmplifierName: "Amp 1", Value: "2"})
	require.Eventually(t, func() bool { return wsClients(t, m) == 0 }, time.Second, 2*time.Millisecond)

	first, ok := <-slow.Send
	require.True(t, ok, "the buffered message is still delivered")
	assert.Contains(t, string(first), `"value":"1"`)
	_, ok = <-slow.Send
	assert.False(t, ok, "send channel closed after overflow")

	assert.NotPanics(t, func() { hub.BroadcastData(data.DataEvent{}) }, "dropped client is not written again")
}
