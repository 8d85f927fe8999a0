// Package workflow loads workflow definitions and executes them.
//
// A workflow is a linear list of steps. Each step either hands a prompt to
// the AI agent backend (ai_agent) or calls a plugin tool (tool). Step
// arguments may reference the trigger input and the outputs of earlier
// steps through {{ path }} placeholders:
//
//	name: fix-issue
//	steps:
//	  - id: clone
//	    type: tool
//	    tool: git_clone
//	    args:
//	      repo_url: "{{ input.repo }}"
//	      target_dir: /tmp/work
//	  - id: review
//	    type: ai_agent
//	    args:
//	      prompt: "Review the code in {{ clone.output.path }}"
//	  - id: fix
//	    type: ai_agent
//	    if: "{{ review.has_issues }}"
//	    args:
//	      prompt: "Fix the issues you found"
//
// # Execution
//
// Executor.Execute first checks the definition and asks the plugin registry
// whether every referenced tool is available. Nothing runs unless both
// checks pass. Steps then run strictly in order:
//
//   - a step whose if resolves to "" or "false" is skipped and leaves no
//     context entry;
//   - an ai_agent step persists its full prompt, submits a bounded version,
//     and continues the previous agent session unless it is the first agent
//     step of the run;
//   - a tool step's text result is stored as structured JSON when it parses
//     and as raw text otherwise;
//   - the first failure stops the run and is returned as *api.StepError.
//
// Execution records can be persisted with an ExecutionStorage. They are an
// audit trail; a run never resumes from one.
package workflow
