package aitooling

import (
	"context"
	"errors"
)

var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// ToolRunner is a function that executes a tool request.
type ToolRunner func(request *ToolRequest) (*ToolResult, error)

// getTool does a linear search; tool sets are small.
func (ts ToolSet) getTool(name string) Tool {
	for _, tool := range ts {
		if tool.Name() == name {
			return tool
		}
	}
	return nil
}

// Names returns the tool names in order.
func (ts ToolSet) Names() []string {
	names := make([]string, len(ts))
	for i, tool := range ts {
		names[i] = tool.Name()
	}
	return names
}

// With returns a new ToolSet holding ts followed by more. Later tools with a name
// already present are skipped.
func (ts ToolSet) With(more ...Tool) ToolSet {
	out := make(ToolSet, 0, len(ts)+len(more))
	out = append(out, ts...)
	for _, tool := range more {
		if out.getTool(tool.Name()) == nil {
			out = append(out, tool)
		}
	}
	return out
}

// Runner returns a function that executes tools.
// Unknown tools and bad arguments are returned as ToolResults via NewErrorResult().
// The error return path is reserved for unexpected infrastructure failures.
func (ts ToolSet) Runner(ctx context.Context, log Logger) ToolRunner {
	return func(request *ToolRequest) (*ToolResult, error) {
		executeContext := ToolExecuteContext{
			Context: ctx,
			Logger:  log,
		}

		tool := ts.getTool(request.Name)
		if tool == nil {
			return request.NewErrorResult(ErrToolNotFound), nil
		}

		result, err := tool.Execute(executeContext, request)
		if errors.Is(err, ErrInvalidArguments) {
			return request.NewErrorResult(err), nil
		}
		return result, err
	}
}
