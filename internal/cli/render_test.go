package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cyverse-de/terrain-cli/internal/api"
)

func rt(name, unit string) api.ResourceType {
	return api.ResourceType{Name: name, Unit: unit}
}

func TestPlans(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf}
	err := p.Plans([]api.Plan{{
		Name: "Basic",
		PlanQuotaDefaults: []api.QuotaDefault{
			{QuotaValue: 5 << 30, ResourceType: rt("data.size", "bytes")},
			{QuotaValue: 20, ResourceType: rt("cpu.hours", "cpu hours")},
		},
	}})
	require.NoError(t, err)
	require.Equal(t, "Basic:\n    cpu.hours: 20 cpu hours\n    data.size: 5.0 GiB\n", buf.String())
}

func TestResourceTypes(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf}
	require.NoError(t, p.ResourceTypes([]api.ResourceType{rt("data.size", "bytes"), rt("cpu.hours", "cpu hours")}))
	require.Equal(t, "cpu.hours (cpu hours)\ndata.size (bytes)\n", buf.String())
}

func testSubscription() *api.Subscription {
	return &api.Subscription{
		EffectiveStartDate: "2024-01-01T00:00:00Z",
		EffectiveEndDate:   "2025-01-01T00:00:00Z",
		Plan:               api.Plan{Name: "Basic"},
		Quotas: []api.Quota{
			{Quota: 100, ResourceType: rt("cpu.hours", "cpu hours")},
			{Quota: 1 << 30, ResourceType: rt("data.size", "bytes")},
		},
		Usages: []api.Usage{
			{Usage: 90, ResourceType: rt("cpu.hours", "cpu hours")},
		},
	}
}

func TestSubscriptionPlain(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf}
	require.NoError(t, p.Subscription(testSubscription()))
	require.Equal(t, strings.Join([]string{
		"Effective Starting: 2024-01-01T00:00:00Z",
		"Expires At: 2025-01-01T00:00:00Z",
		"Plan: Basic",
		"Quotas:",
		"    cpu.hours: 100 cpu hours",
		"    data.size: 1.0 GiB",
		"Usages:",
		"    cpu.hours: 90 cpu hours",
		"",
	}, "\n"), buf.String())
}

func TestSubscriptionColorAddsBar(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf, Color: true}
	require.NoError(t, p.Subscription(testSubscription()))
	require.Contains(t, buf.String(), "\033[31m"+bar(90)+reset+"  90%")
}

func TestSubscriptionJSON(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf, JSON: true, Color: true}
	require.NoError(t, p.Subscription(testSubscription()))

	var got api.Subscription
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "Basic", got.Plan.Name)
	require.Len(t, got.Quotas, 2)
}

func TestBar(t *testing.T) {
	require.Equal(t, strings.Repeat("░", barWidth), bar(0))
	require.Equal(t, strings.Repeat("█", barWidth), bar(150))
	require.Equal(t, strings.Repeat("█", 10)+strings.Repeat("░", 10), bar(50))
}

func TestIdentity(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf}
	exp := time.Now().Add(90 * time.Minute)
	require.NoError(t, p.Identity(Identity{Environment: "qa", Username: "alice", ExpiresAt: &exp}))
	require.Equal(t, "alice on qa\ncredential expires in 1h30m\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "now", formatDuration(-time.Second))
	require.Equal(t, "5m", formatDuration(5*time.Minute))
	require.Equal(t, "2h05m", formatDuration(2*time.Hour+5*time.Minute))
	require.Equal(t, "1d3h", formatDuration(27*time.Hour))
}

func TestNewPrinterBufferHasNoColor(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, false)
	require.False(t, p.Color)
}
