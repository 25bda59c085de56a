// Package notifications provides real-time delivery of routing events.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"docroute/internal/authz"
	"docroute/internal/models"
	"docroute/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Channel prefixes. Every routing channel lives under "routing:".
const (
	channelPrefix      = "routing:"
	userChannelNS      = channelPrefix + "user:"
	unitChannelNS      = channelPrefix + "unit:"
	installationChanNS = channelPrefix + "installation:"
	// HQMCChannel carries events for requests entering or leaving HQMC review.
	HQMCChannel = channelPrefix + "hqmc"
)

// Event types.
const (
	EventRequestCreated      = "request.created"
	EventRequestUpdated      = "request.updated"
	EventRequestTransitioned = "request.transitioned"
	EventRequestDeleted      = "request.deleted"
)

// RoutingEvent is the payload published for every committed change.
type RoutingEvent struct {
	Type            string       `json:"type"`
	RequestID       string       `json:"request_id"`
	Title           string       `json:"title,omitempty"`
	Action          string       `json:"action,omitempty"`
	FromStage       models.Stage `json:"from_stage,omitempty"`
	ToStage         models.Stage `json:"to_stage"`
	RouteSection    string       `json:"route_section,omitempty"`
	ActorID         string       `json:"actor_id"`
	ActorName       string       `json:"actor_name,omitempty"`
	OwnerID         string       `json:"owner_id"`
	UnitUIC         string       `json:"unit_uic"`
	InstallationID  string       `json:"installation_id,omitempty"`
	ExternalUnitUIC string       `json:"external_unit_uic,omitempty"`
	Version         int64        `json:"version"`
	At              time.Time    `json:"at"`
}

// NewRoutingEvent describes req after actor performed action on it.
// from is the stage the request held before the change.
func NewRoutingEvent(eventType, action string, from models.Stage, req *models.Request, actor authz.Actor) RoutingEvent {
	return RoutingEvent{
		Type:            eventType,
		RequestID:       req.ID,
		Title:           req.Title,
		Action:          action,
		FromStage:       from,
		ToStage:         req.CurrentStage,
		RouteSection:    req.RouteSection,
		ActorID:         actor.ID,
		ActorName:       actor.Name,
		OwnerID:         req.UploadedByID,
		UnitUIC:         req.UnitUIC,
		InstallationID:  req.InstallationIDValue(),
		ExternalUnitUIC: req.ExternalPendingUnitUIC,
		Version:         req.Version,
		At:              req.UpdatedAt,
	}
}

// Channels lists every channel the event is published on, without duplicates.
func (e RoutingEvent) Channels() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(ch string) {
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	if e.OwnerID != "" {
		add(UserChannel(e.OwnerID))
	}
	if e.UnitUIC != "" {
		add(UnitChannel(e.UnitUIC))
	}
	if e.ExternalUnitUIC != "" {
		add(UnitChannel(e.ExternalUnitUIC))
	}
	if e.InstallationID != "" {
		add(InstallationChannel(e.InstallationID))
	}
	if e.FromStage == models.StageHQMCReview || e.ToStage == models.StageHQMCReview {
		add(HQMCChannel)
	}
	return out
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID string) string {
	return userChannelNS + userID
}

// UnitChannel derives the Redis channel name for a unit.
func UnitChannel(uic string) string {
	return unitChannelNS + uic
}

// InstallationChannel derives the Redis channel name for an installation.
func InstallationChannel(id string) string {
	return installationChanNS + id
}

// SubscriptionsFor lists the channels an actor receives events on.
func SubscriptionsFor(actor authz.Actor) []string {
	subs := []string{UserChannel(actor.ID)}
	if actor.UnitUIC != "" {
		subs = append(subs, UnitChannel(actor.UnitUIC))
	}
	if actor.InstallationID != "" {
		subs = append(subs, InstallationChannel(actor.InstallationID))
	}
	if actor.Level == authz.LevelHQMC {
		subs = append(subs, HQMCChannel)
	}
	return subs
}

func channelKind(channel string) string {
	rest := strings.TrimPrefix(channel, channelPrefix)
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// Publisher is what the service layer needs from a notifier.
type Publisher interface {
	PublishRouting(ctx context.Context, ev RoutingEvent) error
}

// Notifier publishes routing events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends a raw payload to one channel.
func (n *Notifier) Publish(ctx context.Context, channel, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	observability.NotificationsPublished.WithLabelValues(channelKind(channel)).Inc()
	return nil
}

// PublishRouting fans ev out to every channel it concerns.
func (n *Notifier) PublishRouting(ctx context.Context, ev RoutingEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal routing event: %w", err)
	}
	var errs []error
	for _, ch := range ev.Channels() {
		if err := n.Publish(ctx, ch, string(payload)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartPatternSubscriber subscribes to every routing channel and calls
// onMessage for each incoming message until ctx is done.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, channelPrefix+"*")
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe routing channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.ErrorContext(ctx, "panic in routing subscriber",
								slog.Any("panic", r),
								slog.String("channel", msg.Channel),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
