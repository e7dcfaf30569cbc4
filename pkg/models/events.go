package models

// MetaEvent is a typed metacognitive event recorded in the event log,
// replacing ad-hoc string payloads.
type MetaEvent struct {
	Type   string         `json:"type"`
	Fields map[string]any `json:"fields"`
}

// SessionStartedEvent records a new agent session coming online.
func SessionStartedEvent(source string) MetaEvent {
	return MetaEvent{Type: "session_started", Fields: map[string]any{"source": source}}
}

// PromptClassifiedEvent records the outcome of prompt classification.
func PromptClassifiedEvent(risk RiskLevel, strategy Strategy, topology string) MetaEvent {
	return MetaEvent{Type: "prompt_classified", Fields: map[string]any{
		"risk":     string(risk),
		"strategy": string(strategy),
		"topology": topology,
	}}
}

// ToolGatedEvent records a guard-pipeline verdict on a tool call.
func ToolGatedEvent(tool string, decision PermissionDecision, guard string, score int) MetaEvent {
	return MetaEvent{Type: "tool_gated", Fields: map[string]any{
		"tool":     tool,
		"decision": string(decision),
		"guard":    guard,
		"score":    score,
	}}
}

// ToolCompletedEvent records a finished tool invocation.
func ToolCompletedEvent(tool string, success bool) MetaEvent {
	return MetaEvent{Type: "tool_completed", Fields: map[string]any{
		"tool":    tool,
		"success": success,
	}}
}

// ToolFailedEvent records a failed tool invocation.
func ToolFailedEvent(tool, errMsg string) MetaEvent {
	return MetaEvent{Type: "tool_failed", Fields: map[string]any{
		"tool":  tool,
		"error": errMsg,
	}}
}

// RecoveryInjectedEvent records a recovery prompt injection.
func RecoveryInjectedEvent(level int, reason string) MetaEvent {
	return MetaEvent{Type: "recovery_injected", Fields: map[string]any{
		"level":  level,
		"reason": reason,
	}}
}

// TestIntegrityWarningEvent records a suspicious test-file modification.
func TestIntegrityWarningEvent(file string, issues []string) MetaEvent {
	return MetaEvent{Type: "test_integrity_warning", Fields: map[string]any{
		"file":   file,
		"issues": issues,
	}}
}

// CompletionVerifiedEvent records a stop-hook completion check.
func CompletionVerifiedEvent(verified bool, issues []string) MetaEvent {
	return MetaEvent{Type: "completion_verified", Fields: map[string]any{
		"verified": verified,
		"issues":   issues,
	}}
}

// SessionEndedEvent records an agent session ending.
func SessionEndedEvent(reason string) MetaEvent {
	return MetaEvent{Type: "session_ended", Fields: map[string]any{"reason": reason}}
}
