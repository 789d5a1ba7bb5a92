package message

// CanonicalizeStopReason maps the range of finish-reason strings a vendor
// might send (Anthropic's end_turn/max_tokens/tool_use, OpenAI's
// stop/length/tool_calls, and already-canonical values) onto the spec's
// four-member stop_reason enum. Adapted from the provider package's
// finish-reason mapping, narrowed to this module's smaller enum.
func CanonicalizeStopReason(reason string) StopReason {
	switch reason {
	case "stop", "end_turn", "stop_sequence":
		return StopReasonStop
	case "length", "max_tokens":
		return StopReasonLength
	case "tool_calls", "tool_use", "function_call":
		return StopReasonToolCalls
	case "cancelled", "cancel":
		return StopReasonCancelled
	default:
		return StopReasonStop
	}
}
