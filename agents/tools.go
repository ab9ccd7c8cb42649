package agents

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/m0rjc/cyberalchemy/aitooling"
)

type createAgentArgs struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

type agentNameArgs struct {
	Name string `json:"name"`
}

type agentIDArgs struct {
	AgentID string `json:"agent_id"`
}

// Tools returns the agent management tools backed by the registry.
func (r *Registry) Tools() aitooling.ToolSet {
	return aitooling.ToolSet{
		&aitooling.FunctionTool{
			ToolName:        "get_agent_by_id",
			ToolDescription: "Get agent configuration by ID",
			Schema: aitooling.ObjectSchema(map[string]interface{}{
				"agent_id": aitooling.StringProperty("The agent ID"),
			}, "agent_id"),
			Func: r.getAgentByIDTool,
		},
		&aitooling.FunctionTool{
			ToolName:        "get_agent_by_name",
			ToolDescription: "Get agent configuration by name",
			Schema: aitooling.ObjectSchema(map[string]interface{}{
				"name": aitooling.StringProperty("The agent name"),
			}, "name"),
			Func: r.getAgentByNameTool,
		},
		&aitooling.FunctionTool{
			ToolName:        "get_all_agent_info",
			ToolDescription: "Get all agents' information",
			Func:            r.getAllAgentInfoTool,
		},
		&aitooling.FunctionTool{
			ToolName:        "create_agent",
			ToolDescription: "Create and save an agent configuration",
			Schema: aitooling.ObjectSchema(map[string]interface{}{
				"name":          aitooling.StringProperty("Unique agent name"),
				"description":   aitooling.StringProperty("One-line description of the agent"),
				"system_prompt": aitooling.StringProperty("System prompt describing the agent's role"),
			}, "name"),
			Func: r.createAgentTool,
		},
	}
}

func (r *Registry) getAgentByIDTool(ctx aitooling.ToolExecuteContext, req *aitooling.ToolRequest) (*aitooling.ToolResult, error) {
	args, err := aitooling.DecodeArgs[agentIDArgs](req)
	if err != nil {
		return nil, err
	}
	config, err := r.Get(ctx.Context, args.AgentID)
	if errors.Is(err, ErrAgentNotFound) {
		return req.NewResult(fmt.Sprintf("Error retrieving agent: No agent found with ID %s.", args.AgentID)), nil
	}
	if err != nil {
		return nil, err
	}
	return retrieved(req, config)
}

func (r *Registry) getAgentByNameTool(ctx aitooling.ToolExecuteContext, req *aitooling.ToolRequest) (*aitooling.ToolResult, error) {
	args, err := aitooling.DecodeArgs[agentNameArgs](req)
	if err != nil {
		return nil, err
	}
	config, err := r.GetByName(ctx.Context, args.Name)
	if errors.Is(err, ErrAgentNotFound) {
		return req.NewResult(fmt.Sprintf("Error retrieving agent: No agent found with name %s.", args.Name)), nil
	}
	if err != nil {
		return nil, err
	}
	return retrieved(req, config)
}

func retrieved(req *aitooling.ToolRequest, config Config) (*aitooling.ToolResult, error) {
	b, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	return req.NewResult("Successfully retrieved Agent:\n\n" + string(b)), nil
}

func (r *Registry) getAllAgentInfoTool(ctx aitooling.ToolExecuteContext, req *aitooling.ToolRequest) (*aitooling.ToolResult, error) {
	configs, err := r.List(ctx.Context)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return req.NewResult("No agents found."), nil
	}
	parts := make([]string, 0, len(configs))
	for _, config := range configs {
		b, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return nil, err
		}
		parts = append(parts, string(b))
	}
	return req.NewResult(strings.Join(parts, "\n\n")), nil
}

func (r *Registry) createAgentTool(ctx aitooling.ToolExecuteContext, req *aitooling.ToolRequest) (*aitooling.ToolResult, error) {
	args, err := aitooling.DecodeArgs[createAgentArgs](req)
	if err != nil {
		return nil, err
	}
	config, err := r.Create(ctx.Context, Config{
		Name:         args.Name,
		Description:  args.Description,
		SystemPrompt: args.SystemPrompt,
	})
	if errors.Is(err, ErrDuplicateName) {
		return req.NewResult(fmt.Sprintf("Error creating agent: Agent with name %s already exists.", args.Name)), nil
	}
	if err != nil {
		return req.NewErrorResult(fmt.Errorf("creating agent: %w", err)), nil
	}
	ctx.Logger.Log(aitooling.TextAction(fmt.Sprintf("Created agent %s (%s)", config.Name, config.AgentID)))
	return req.NewResult(fmt.Sprintf("Successfully created Agent %s with ID %s.", config.Name, config.AgentID)), nil
}
