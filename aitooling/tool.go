package aitooling

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolExecuteContext provides everything a tool needs to execute.
type ToolExecuteContext struct {
	Context context.Context // Go context for cancellation/deadlines
	Logger  Logger          // For logging tool actions
}

// ToolRequest is one tool call requested by the model.
type ToolRequest struct {
	Name   string
	CallId string
	Args   string // JSON arguments as sent by the model
}

// ToolResult is the text handed back to the model for a call.
type ToolResult struct {
	CallId string
	Result string
}

// NewResult creates a successful tool result.
func (req *ToolRequest) NewResult(result string) *ToolResult {
	return &ToolResult{
		CallId: req.CallId,
		Result: result,
	}
}

// NewJSONResult creates a successful result holding v encoded as JSON.
func (req *ToolRequest) NewJSONResult(v interface{}) (*ToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", req.Name, err)
	}
	return req.NewResult(string(b)), nil
}

// NewErrorResult creates an error tool result.
// Domain failures are reported to the model this way rather than as Go errors.
func (req *ToolRequest) NewErrorResult(err error) *ToolResult {
	return &ToolResult{
		CallId: req.CallId,
		Result: fmt.Sprintf("Error: %v", err),
	}
}

// DecodeArgs unmarshals the request arguments into a value of type T.
// Empty arguments decode to the zero value.
func DecodeArgs[T any](req *ToolRequest) (T, error) {
	var args T
	if req.Args == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(req.Args), &args); err != nil {
		return args, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return args, nil
}

type Tool interface {
	// Name is the name of the tool.
	Name() string
	// Description is a short description of the tool for the AI assistant.
	Description() string
	// Parameters is a JSON Schema describing the parameters accepted by the tool.
	Parameters() json.RawMessage
	// Execute executes the tool.
	Execute(ctx ToolExecuteContext, req *ToolRequest) (*ToolResult, error)
}

// FunctionTool is a Tool backed by a function.
type FunctionTool struct {
	ToolName        string
	ToolDescription string
	Schema          json.RawMessage // nil = EmptyJsonSchema()
	Func            func(ctx ToolExecuteContext, req *ToolRequest) (*ToolResult, error)
}

func (f *FunctionTool) Name() string        { return f.ToolName }
func (f *FunctionTool) Description() string { return f.ToolDescription }

func (f *FunctionTool) Parameters() json.RawMessage {
	if f.Schema == nil {
		return EmptyJsonSchema()
	}
	return f.Schema
}

func (f *FunctionTool) Execute(ctx ToolExecuteContext, req *ToolRequest) (*ToolResult, error) {
	return f.Func(ctx, req)
}

type ToolSet []Tool
