// Package plugins is the catalog of built-in plugins. Configuration selects
// which of them a run registers.
package plugins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/giantswarm/stepflow/internal/config"
	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/internal/plugins/discord"
	"github.com/giantswarm/stepflow/internal/plugins/git"
	"github.com/giantswarm/stepflow/internal/plugins/github"
	"github.com/giantswarm/stepflow/internal/plugins/telegram"
	"github.com/giantswarm/stepflow/pkg/logging"
)

type factory func(cfg config.PluginsConfig, log *logging.Logger) plugin.Plugin

var catalog = map[string]factory{
	git.Name: func(_ config.PluginsConfig, log *logging.Logger) plugin.Plugin {
		return git.New(log)
	},
	github.Name: func(_ config.PluginsConfig, log *logging.Logger) plugin.Plugin {
		return github.New(log)
	},
	telegram.Name: func(cfg config.PluginsConfig, log *logging.Logger) plugin.Plugin {
		return telegram.New(telegram.Options{
			PollInterval:    cfg.Telegram.PollInterval,
			ApprovalTimeout: cfg.Telegram.ApprovalTimeout,
		}, log)
	},
	discord.Name: func(_ config.PluginsConfig, log *logging.Logger) plugin.Plugin {
		return discord.New(nil, log)
	},
}

// Known returns the names of all built-in plugins, sorted.
func Known() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled instantiates the plugins named in cfg.Enabled, in that order.
func Enabled(cfg config.PluginsConfig, log *logging.Logger) ([]plugin.Plugin, error) {
	out := make([]plugin.Plugin, 0, len(cfg.Enabled))
	seen := make(map[string]bool, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		if seen[name] {
			continue
		}
		seen[name] = true
		f, ok := catalog[name]
		if !ok {
			return nil, config.ValidationError{
				Field:   "plugins.enabled",
				Value:   name,
				Message: fmt.Sprintf("unknown plugin %q (known: %s)", name, strings.Join(Known(), ", ")),
			}
		}
		out = append(out, f(cfg, log))
	}
	return out, nil
}
