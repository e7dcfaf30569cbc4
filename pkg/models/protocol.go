// Package models defines the shared wire and state types used across the
// Aletheia runtime: the hook protocol spoken with the agent host, the
// task/risk/strategy/decision enums, the metacognitive vector, and budget
// tracking.
package models

import "encoding/json"

// HookEvent identifies a point in the agent lifecycle at which the runtime
// is invoked synchronously.
type HookEvent string

const (
	EventSessionStart       HookEvent = "SessionStart"
	EventUserPromptSubmit   HookEvent = "UserPromptSubmit"
	EventPreToolUse         HookEvent = "PreToolUse"
	EventPostToolUse        HookEvent = "PostToolUse"
	EventPostToolUseFailure HookEvent = "PostToolUseFailure"
	EventStop               HookEvent = "Stop"
	EventPreCompact         HookEvent = "PreCompact"
	EventSessionEnd         HookEvent = "SessionEnd"
)

// HookInput is the inbound event payload posted by the agent host. Only the
// event name is required; handlers must not assume any optional field is set.
type HookInput struct {
	HookEventName        HookEvent `json:"hook_event_name"`
	SessionID            string    `json:"session_id,omitempty"`
	CWD                  string    `json:"cwd,omitempty"`
	ToolName             string    `json:"tool_name,omitempty"`
	ToolInput            any       `json:"tool_input,omitempty"`
	ToolResponse         *string   `json:"tool_response,omitempty"`
	Prompt               string    `json:"prompt,omitempty"`
	Error                string    `json:"error,omitempty"`
	LastAssistantMessage string    `json:"last_assistant_message,omitempty"`
	Source               string    `json:"source,omitempty"`
	Reason               string    `json:"reason,omitempty"`
	Trigger              string    `json:"trigger,omitempty"`
}

// ToolInputField returns the named string field from tool_input when the
// input is an object, or "" otherwise.
func (in *HookInput) ToolInputField(name string) string {
	obj, ok := in.ToolInput.(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := obj[name].(string); ok {
		return s
	}
	return ""
}

// ToolInputText serialises tool_input for pattern matching. The command may
// live in tool_input.command (Bash) or tool_input.input (Write/Edit); when
// neither is present the whole value is serialised.
func (in *HookInput) ToolInputText() string {
	if in.ToolInput == nil {
		return ""
	}
	if s, ok := in.ToolInput.(string); ok {
		return s
	}
	if cmd := in.ToolInputField("command"); cmd != "" {
		return cmd
	}
	if inner := in.ToolInputField("input"); inner != "" {
		return inner
	}
	raw, err := json.Marshal(in.ToolInput)
	if err != nil {
		return ""
	}
	return string(raw)
}

// PermissionDecision is a hook's verdict on a pending tool call.
type PermissionDecision string

const (
	DecisionAllow PermissionDecision = "allow"
	DecisionDeny  PermissionDecision = "deny"
	DecisionAsk   PermissionDecision = "ask"
)

// HookSpecificOutput carries the hook-specific response fields. Field names
// are camelCase on the wire; absent fields mean "no opinion".
type HookSpecificOutput struct {
	HookEventName            string             `json:"hookEventName,omitempty"`
	PermissionDecision       PermissionDecision `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string             `json:"permissionDecisionReason,omitempty"`
	AdditionalContext        string             `json:"additionalContext,omitempty"`
}

// HookOutput is the top-level hook response. An empty output means allow.
type HookOutput struct {
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// Allow returns the empty (implicit allow) output.
func Allow() HookOutput {
	return HookOutput{}
}

// Permission returns an output carrying a permission decision and reason.
func Permission(decision PermissionDecision, reason string) HookOutput {
	return HookOutput{
		HookSpecificOutput: &HookSpecificOutput{
			PermissionDecision:       decision,
			PermissionDecisionReason: reason,
		},
	}
}

// Context returns an output carrying additional context for the given event.
func Context(event HookEvent, message string) HookOutput {
	return HookOutput{
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:     string(event),
			AdditionalContext: message,
		},
	}
}

// WithContext attaches additional context to an existing output, preserving
// any permission decision already present.
func (o HookOutput) WithContext(event HookEvent, message string) HookOutput {
	if o.HookSpecificOutput == nil {
		return Context(event, message)
	}
	out := *o.HookSpecificOutput
	out.HookEventName = string(event)
	out.AdditionalContext = message
	return HookOutput{HookSpecificOutput: &out}
}
