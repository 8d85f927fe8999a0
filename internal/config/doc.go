// Package config provides configuration management for stepflow.
//
// Configuration lives in a single config.yaml. Discover looks for it in
// the project directory first and the user directory second:
//
//   - .stepflow/config.yaml
//   - ~/.config/stepflow/config.yaml
//
// A missing file is not an error; the defaults from GetDefaultConfig are
// used instead. Values in the file are merged on top of the defaults and
// the result is checked by Validate, which reports every problem at once
// as ValidationErrors.
//
// # Sections
//
//	agent:
//	  backend: claude-code     # or eino
//	  command: claude
//	  tokenBudget: 25000
//	plugins:
//	  enabled: [git, github]
//	secrets:
//	  env: [GIT_TOKEN, GITHUB_TOKEN]
//	  file: ~/.config/stepflow/secrets.yaml
//	  kubernetes:
//	    namespace: automation
//	    name: stepflow-credentials
//	logging:
//	  level: info
//	  format: text
//
// # Storage
//
// Storage is a small file store used for execution records. Each document
// is one file named after its sanitized name below a per-type directory.
package config
