package history

import (
	"strings"

	"github.com/copperleaf-dev/agentstream/pkg/session"
)

// DetectVendor applies §6's model_id-substring rule to a persisted
// session's agent_config.
func DetectVendor(agentConfig map[string]any) session.Vendor {
	modelID, _ := agentConfig["model_id"].(string)
	lower := strings.ToLower(modelID)
	switch {
	case strings.Contains(lower, "claude"), strings.Contains(lower, "anthropic"):
		return session.VendorAnthropic
	case strings.Contains(lower, "gpt"), strings.Contains(lower, "openai"):
		return session.VendorOpenAI
	default:
		return session.VendorNone
	}
}

// DisplayName applies §6's default: the session's own name, or
// "New chat with " + agentName.
func DisplayName(sessionName, agentName string) string {
	if sessionName != "" {
		return sessionName
	}
	return "New chat with " + agentName
}

// ToSession converts a persisted SessionParam into a runtime Session shell
// (messages are populated separately, by Replay or direct conversion,
// since whether they're already in runtime form changes the path).
func ToSession(param SessionParam, agentName string) *session.Session {
	return &session.Session{
		ID:                param.SessionID,
		TokenCount:        param.TokenCount,
		ContextWindowSize: param.ContextWindowSize,
		CreatedAt:         param.CreatedAt,
		UpdatedAt:         param.UpdatedAt,
		UserID:            param.UserID,
		Metadata:          param.Metadata,
		AgentConfig:       param.AgentConfig,
		Vendor:            DetectVendor(param.AgentConfig),
		DisplayName:       DisplayName(param.SessionName, agentName),
	}
}
