// Command routewatch tails the live routing feed for one actor.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"docroute/internal/authz"
	"docroute/internal/config"
	"docroute/internal/middleware"
	"docroute/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("url", "ws://localhost:8375/ws/routing", "Routing feed URL")
	token := flag.String("token", "", "Bearer token; minted from the flags below when empty")
	id := flag.String("id", "routewatch", "Actor ID for a minted token")
	level := flag.String("level", string(authz.LevelUnit), "Actor level for a minted token")
	unit := flag.String("unit", "", "Unit UIC for a minted token")
	installation := flag.String("installation", "", "Installation ID for a minted token")
	division := flag.String("division", "", "HQMC division for a minted token")
	flag.Parse()

	if *token == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		*token, err = middleware.IssueToken(cfg.JWTSecret, cfg.JWTIssuer, authz.Actor{
			ID:             *id,
			Name:           *id,
			Level:          authz.ParseLevel(*level),
			UnitUIC:        *unit,
			InstallationID: *installation,
			Division:       *division,
		}, time.Hour)
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
	}

	target, err := feedURL(*addr, *token)
	if err != nil {
		log.Fatalf("Invalid feed URL: %v", err)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("Dial failed: %v (HTTP %d)", err, resp.StatusCode)
		}
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("read: %v", err)
				}
				return
			}
			fmt.Println(formatFrame(data))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-done:
	case <-sig:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func feedURL(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// formatFrame renders one feed frame as a log line. Frames that are not
// routing events are printed as received.
func formatFrame(data []byte) string {
	var ev notifications.RoutingEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.RequestID == "" {
		return strings.TrimSpace(string(data))
	}
	line := fmt.Sprintf("%s %-20s %s v%d", ev.At.Format(time.RFC3339), ev.Type, ev.RequestID, ev.Version)
	if ev.FromStage != "" && ev.FromStage != ev.ToStage {
		line += fmt.Sprintf(" %s -> %s", ev.FromStage, ev.ToStage)
	} else {
		line += " " + string(ev.ToStage)
	}
	if ev.RouteSection != "" {
		line += " [" + ev.RouteSection + "]"
	}
	if ev.Action != "" {
		line += fmt.Sprintf(" %q", ev.Action)
	}
	if ev.ActorName != "" {
		line += " by " + ev.ActorName
	}
	return line
}
