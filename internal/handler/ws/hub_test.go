package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockSense/internal/domain/models"
	xlogger "StockSense/pkg/logger"
)

func TestHubBroadcastsRunEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(xlogger.Nop())
	go hub.Run(ctx)

	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/runs"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hub.OnRunEvent(models.RunEvent{Stage: models.StageForecast, Status: models.RunSucceeded, ArtifactID: "20240201T000000Z-0000000a", Entities: 3})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.RunEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Stage != models.StageForecast || ev.Status != models.RunSucceeded || ev.Entities != 3 {
		t.Fatalf("event = %+v", ev)
	}
}

func TestHubReplaysLastEventToNewClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(xlogger.Nop())
	go hub.Run(ctx)
	hub.OnRunEvent(models.RunEvent{Stage: models.StagePrepare, Status: models.RunFailed, Message: "boom"})

	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/runs", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.RunEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Stage != models.StagePrepare || ev.Message != "boom" {
		t.Fatalf("event = %+v", ev)
	}
}
