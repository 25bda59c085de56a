package server

import (
	"encoding/json"

	"docroute/internal/authz"
	"docroute/internal/featureflags"
	"docroute/internal/middleware"
	"docroute/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RoutingWebSocketUpgrade rejects feed requests before the upgrade when the
// feed is off for the caller or no hub is running.
func (s *Server) RoutingWebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := middleware.ActorFrom(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		if !s.featureFlags.Enabled(featureflags.RoutingWebsocket, actor.ID) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Feature", featureflags.RoutingWebsocket))
		}
		if s.hub == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "live routing feed unavailable",
			})
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}

// RoutingWebSocketHandler streams routing events for the caller's user,
// unit, installation and HQMC channels.
func (s *Server) RoutingWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		actor, ok := conn.Locals("actor").(authz.Actor)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(actor, conn)
		if err != nil {
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		hello, _ := json.Marshal(fiber.Map{
			"type":     "subscribed",
			"channels": client.Topics,
		})
		client.TrySend(hello)

		go client.WritePump()
		client.ReadPump(s.hub.Logger())
	})
}
