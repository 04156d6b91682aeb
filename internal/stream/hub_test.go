package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ambulance-tracker/internal/markers"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

type staticSource struct {
	snap models.Snapshot
}

func (s staticSource) Snapshot() models.Snapshot { return s.snap }

func snapshot(seq uint64, lat float64) models.Snapshot {
	return models.Snapshot{
		Sequence: seq,
		Vehicles: []models.Vehicle{{
			ID:       "amb-1",
			CallSign: "Alpha-12",
			Position: models.Location{Lat: lat, Lon: 77.59},
			Status:   models.StatusEnroute,
			Speed:    45,
		}},
	}
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestHub_SendsCurrentSnapshotOnConnect(t *testing.T) {
	hub := NewHub(staticSource{snap: snapshot(3, 12.97)})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "")
	var got models.Snapshot
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(3), got.Sequence)
	require.Len(t, got.Vehicles, 1)
	assert.Equal(t, "Alpha-12", got.Vehicles[0].CallSign)
}

func TestHub_PublishUsesClientFormat(t *testing.T) {
	hub := NewHub(staticSource{snap: snapshot(1, 12.97)})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "?format=mapbox")
	var first markers.FeatureCollection
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "FeatureCollection", first.Type)

	assert.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(snapshot(1, 12.50))
	hub.Publish(snapshot(2, 12.98))

	var next markers.FeatureCollection
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, uint64(2), next.Sequence, "stale sequence is skipped")
	require.Len(t, next.Features, 1)
	assert.Equal(t, 77.59, next.Features[0].Geometry.Coordinates[0])
	assert.Equal(t, 12.98, next.Features[0].Geometry.Coordinates[1])
}

func TestHub_RejectsUnknownFormat(t *testing.T) {
	hub := NewHub(staticSource{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?format=leaflet")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_RemovesClosedClients(t *testing.T) {
	hub := NewHub(staticSource{snap: snapshot(1, 12.97)})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv, "")
	var got models.Snapshot
	require.NoError(t, conn.ReadJSON(&got))
	assert.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEnqueue_DropsOldest(t *testing.T) {
	ch := make(chan models.Snapshot, 2)
	enqueue(ch, snapshot(1, 0))
	enqueue(ch, snapshot(2, 0))
	enqueue(ch, snapshot(3, 0))

	assert.Equal(t, uint64(2), (<-ch).Sequence)
	assert.Equal(t, uint64(3), (<-ch).Sequence)
}
