package history

import (
	"testing"

	"github.com/copperleaf-dev/agentstream/pkg/session"
)

func TestDetectVendorMapping(t *testing.T) {
	cases := []struct {
		modelID string
		want    session.Vendor
	}{
		{"claude-3-5-sonnet", session.VendorAnthropic},
		{"anthropic.claude-v2", session.VendorAnthropic},
		{"gpt-4o", session.VendorOpenAI},
		{"openai/gpt-4", session.VendorOpenAI},
		{"llama-3-70b", session.VendorNone},
		{"", session.VendorNone},
	}
	for _, c := range cases {
		got := DetectVendor(map[string]any{"model_id": c.modelID})
		if got != c.want {
			t.Fatalf("model_id %q: expected %v, got %v", c.modelID, c.want, got)
		}
	}
}

func TestDisplayNameFallsBackToAgentName(t *testing.T) {
	if got := DisplayName("", "Researcher"); got != "New chat with Researcher" {
		t.Fatalf("expected fallback display name, got %q", got)
	}
}

func TestDisplayNamePrefersSessionName(t *testing.T) {
	if got := DisplayName("My Session", "Researcher"); got != "My Session" {
		t.Fatalf("expected session name preserved, got %q", got)
	}
}

func TestToSessionPopulatesVendorAndDisplayName(t *testing.T) {
	param := SessionParam{
		SessionID:   "s1",
		SessionName: "",
		AgentConfig: map[string]any{"model_id": "gpt-4o"},
	}
	sess := ToSession(param, "Assistant")
	if sess.ID != "s1" {
		t.Fatalf("expected session id propagated, got %q", sess.ID)
	}
	if sess.Vendor != session.VendorOpenAI {
		t.Fatalf("expected openai vendor, got %v", sess.Vendor)
	}
	if sess.DisplayName != "New chat with Assistant" {
		t.Fatalf("unexpected display name %q", sess.DisplayName)
	}
}
