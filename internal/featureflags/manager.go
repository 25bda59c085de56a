// Package featureflags evaluates runtime toggles from configuration.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"

	"docroute/internal/authz"
)

// Known flags.
const (
	// StrictHQMCScope limits HQMC archiving to the division holding the request.
	StrictHQMCScope = "strict_hqmc_scope"
	// RoutingWebsocket enables the /ws/routing live feed.
	RoutingWebsocket = "routing_websocket"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "routing_websocket,strict_hqmc_scope=off,new_inbox=25%".
// A bare name is shorthand for name=on.
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		key = normalize(key)
		value = normalize(value)
		if !found {
			value = "on"
		}
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%)
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == "" {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// EnabledGlobally evaluates a flag that is not tied to a user. Percentage
// rollouts count as off.
func (m *Manager) EnabledGlobally(name string) bool {
	return m.Enabled(name, "")
}

// AuthzOptions derives authorization engine options from the flags.
func (m *Manager) AuthzOptions() authz.Options {
	return authz.Options{StrictHQMCScope: m.EnabledGlobally(StrictHQMCScope)}
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID string) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
