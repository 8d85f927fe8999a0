// Package agent provides the backends that execute ai_agent workflow steps.
//
// Two backends implement Agent:
//
//   - ClaudeCode shells out to the claude CLI in print mode. Plugin tools are
//     made available by pointing the CLI at the stepflow MCP tool server.
//   - Eino runs an in-process ReAct loop over a tool calling chat model
//     (Anthropic or OpenAI) and reaches the same tools through an MCP client.
//
// Both backends remember the session of their last run. A request with
// ContinueSession set resumes it; any other request starts fresh.
package agent
