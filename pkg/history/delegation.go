package history

import (
	"encoding/json"
	"strings"

	"github.com/copperleaf-dev/agentstream/pkg/content"
)

// delegationKind reports whether name is a delegation tool, and if so its
// subAgentType: "clone" for act_* names, "team" for ateam_*/aa_* names.
func delegationKind(name string) (isDelegation bool, subAgentType string) {
	switch {
	case strings.HasPrefix(name, "act_"):
		return true, "clone"
	case strings.HasPrefix(name, "ateam_"), strings.HasPrefix(name, "aa_"):
		return true, "team"
	default:
		return false, ""
	}
}

// subSessionType returns "oneshot" if name contains that word, else "chat".
func subSessionType(name string) string {
	if strings.Contains(name, "oneshot") {
		return "oneshot"
	}
	return "chat"
}

// ParseDelegationResult extracts assistant-visible text from a delegation
// tool_result's content, per §4.F's three-tier grammar: JSON envelope,
// then YAML-lite, then raw fallback. It never fails — unparseable content
// becomes its own fallback text.
func ParseDelegationResult(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "{") {
		if text, ok := parseJSONEnvelope(trimmed); ok {
			return text
		}
	}
	if text, ok := parseYAMLLite(trimmed); ok {
		return text
	}
	return raw
}

func parseJSONEnvelope(raw string) (string, bool) {
	var envelope struct {
		Notice       string `json:"notice"`
		AgentMessage *struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"agent_message"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil || envelope.AgentMessage == nil {
		return "", false
	}
	return extractAgentMessageText(envelope.AgentMessage.Content), true
}

func extractAgentMessageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []content.RawBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var out strings.Builder
		for _, b := range blocks {
			if b.Type == "text" {
				out.WriteString(b.Text)
			}
		}
		return out.String()
	}
	return ""
}

const yamlPreambleMarker = "IMPORTANT"

// parseYAMLLite extracts a single `text:` field per the legacy envelope:
// an optional "**IMPORTANT**: ..." preamble up to a "---" line, both
// stripped, then `text:` followed by a quoted or block scalar. This is
// deliberately not a general YAML parser — a single-field extractor is
// adequate for the observed shape.
func parseYAMLLite(raw string) (string, bool) {
	body := raw
	if idx := strings.Index(body, "---"); idx != -1 && strings.Contains(body[:idx], yamlPreambleMarker) {
		body = body[idx+len("---"):]
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "text:") {
			continue
		}
		return extractYAMLScalar(strings.TrimSpace(trimmed[len("text:"):]), lines[i+1:])
	}
	return "", false
}

func extractYAMLScalar(rest string, following []string) (string, bool) {
	if rest == "" {
		return "", false
	}
	switch rest[0] {
	case '\'':
		end := findClosingQuote(rest, '\'')
		return strings.ReplaceAll(rest[1:end], "''", "'"), true
	case '"':
		end := findClosingQuote(rest, '"')
		return rest[1:end], true
	case '|', '>':
		return extractBlockScalar(following), true
	default:
		return rest, true
	}
}

func findClosingQuote(s string, quote byte) int {
	for i := 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if quote == '\'' && i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i
	}
	return len(s)
}

func extractBlockScalar(lines []string) string {
	var out strings.Builder
	wroteAny := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			out.WriteString("\n")
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			break
		}
		out.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "  "), "\t"))
		out.WriteString("\n")
		wroteAny = true
	}
	if !wroteAny {
		return ""
	}
	return strings.TrimRight(out.String(), "\n")
}
