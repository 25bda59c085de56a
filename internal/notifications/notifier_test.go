package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"docroute/internal/authz"
	"docroute/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func sampleRequest() *models.Request {
	inst := "CLNC"
	return &models.Request{
		ID:             "r1",
		Title:          "Leave request",
		UploadedByID:   "u-1",
		UnitUIC:        "M12345",
		InstallationID: &inst,
		CurrentStage:   models.StageHQMCReview,
		RouteSection:   "MMIB",
		Version:        4,
		UpdatedAt:      time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestChannelNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "routing:user:u-1", UserChannel("u-1"))
	assert.Equal(t, "routing:unit:M12345", UnitChannel("M12345"))
	assert.Equal(t, "routing:installation:CLNC", InstallationChannel("CLNC"))
	assert.Equal(t, "unit", channelKind(UnitChannel("M1")))
	assert.Equal(t, "hqmc", channelKind(HQMCChannel))
}

func TestRoutingEventChannels(t *testing.T) {
	t.Parallel()
	actor := authz.Actor{ID: "u-9", Name: "Col Division", Level: authz.LevelHQMC}
	ev := NewRoutingEvent(EventRequestTransitioned, "submit_to_hqmc", models.StageInstallationReview, sampleRequest(), actor)

	assert.Equal(t, []string{
		"routing:user:u-1",
		"routing:unit:M12345",
		"routing:installation:CLNC",
		HQMCChannel,
	}, ev.Channels())
	assert.Equal(t, int64(4), ev.Version)
	assert.Equal(t, "u-9", ev.ActorID)

	ext := RoutingEvent{OwnerID: "u-1", UnitUIC: "M1", ExternalUnitUIC: "M1", ToStage: models.StageExternalReview}
	assert.Equal(t, []string{"routing:user:u-1", "routing:unit:M1"}, ext.Channels())
}

func TestSubscriptionsFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		actor authz.Actor
		want  []string
	}{
		{"originator", authz.Actor{ID: "u-1", Level: authz.LevelOriginator}, []string{"routing:user:u-1"}},
		{"unit", authz.Actor{ID: "u-2", Level: authz.LevelUnit, UnitUIC: "M1"}, []string{"routing:user:u-2", "routing:unit:M1"}},
		{"installation", authz.Actor{ID: "u-3", Level: authz.LevelInstallation, InstallationID: "CLNC"}, []string{"routing:user:u-3", "routing:installation:CLNC"}},
		{"hqmc", authz.Actor{ID: "u-4", Level: authz.LevelHQMC, Division: "MMIB"}, []string{"routing:user:u-4", HQMCChannel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubscriptionsFor(tt.actor))
		})
	}
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishRouting(context.Background(), RoutingEvent{OwnerID: "u-1"}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Publish(context.Background(), UserChannel("u-1"), "x"))
}

func TestNotifier_PublishRoutingReachesSubscriber(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 8)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		got <- channel + " " + payload
	}))

	ev := NewRoutingEvent(EventRequestTransitioned, "forward", models.StagePlatoonReview, &models.Request{
		ID: "r1", UploadedByID: "u-1", UnitUIC: "M1", CurrentStage: models.StageCompanyReview, Version: 2,
	}, authz.Actor{ID: "u-2"})
	require.NoError(t, n.PublishRouting(context.Background(), ev))

	seen := map[string]RoutingEvent{}
	require.Eventually(t, func() bool {
		select {
		case msg := <-got:
			channel, body, _ := strings.Cut(msg, " ")
			var payload RoutingEvent
			if json.Unmarshal([]byte(body), &payload) == nil {
				seen[channel] = payload
			}
		default:
		}
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)

	require.Contains(t, seen, "routing:user:u-1")
	require.Contains(t, seen, "routing:unit:M1")
	assert.Equal(t, models.StageCompanyReview, seen["routing:unit:M1"].ToStage)
	assert.Equal(t, "forward", seen["routing:user:u-1"].Action)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.Publish(context.Background(), UserChannel("u-1"), "before-cancel"))
	require.Eventually(t, func() bool {
		select {
		case p := <-payloads:
			return p == "before-cancel"
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.Publish(context.Background(), UserChannel("u-1"), "after-cancel"))
	assert.Never(t, func() bool {
		select {
		case p := <-payloads:
			return p == "after-cancel"
		default:
			return false
		}
	}, 150*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_SubscriberSurvivesPanics(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		if payload == "boom" {
			panic("handler failure")
		}
		payloads <- payload
	}))

	require.NoError(t, n.Publish(context.Background(), UserChannel("u-1"), "boom"))
	require.NoError(t, n.Publish(context.Background(), UserChannel("u-1"), "ok"))
	assert.Eventually(t, func() bool {
		select {
		case p := <-payloads:
			return p == "ok"
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
