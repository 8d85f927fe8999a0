package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/giantswarm/stepflow/internal/config"
	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/pkg/logging"

	"gopkg.in/yaml.v3"
)

// Source yields secrets by name.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	Fetch(ctx context.Context) (map[string]string, error)
}

// EnvSource reads the named environment variables. Unset or empty
// variables are omitted.
type EnvSource struct {
	Names []string

	// lookup defaults to os.LookupEnv.
	lookup func(string) (string, bool)
}

func (s EnvSource) Name() string { return "env" }

func (s EnvSource) Fetch(_ context.Context) (map[string]string, error) {
	lookup := s.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	out := make(map[string]string, len(s.Names))
	for _, name := range s.Names {
		if v, ok := lookup(name); ok && v != "" {
			out[name] = v
		}
	}
	return out, nil
}

// FileSource reads a flat YAML map of secret names to values.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file " + s.Path }

func (s FileSource) Fetch(_ context.Context) (map[string]string, error) {
	path, err := expandHome(s.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("secrets file %s: value of %s must be a scalar", path, k)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Merge fetches every source in order. A value from a later source replaces
// the value of the same name from an earlier one.
func Merge(ctx context.Context, log *logging.Logger, sources ...Source) (plugin.Secrets, error) {
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("Secrets")

	merged := plugin.Secrets{}
	for _, src := range sources {
		values, err := src.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("secret source %s: %w", src.Name(), err)
		}
		for k, v := range values {
			merged[k] = v
		}
		log.Debug("Loaded %d secrets from %s", len(values), src.Name())
	}
	return merged, nil
}

// FromConfig builds the sources described by cfg: environment first, then
// the file, then Kubernetes.
func FromConfig(cfg config.SecretsConfig) ([]Source, error) {
	names := cfg.Env
	if len(names) == 0 {
		names = config.DefaultSecretNames
	}
	sources := []Source{EnvSource{Names: names}}

	if cfg.File != "" {
		sources = append(sources, FileSource{Path: cfg.File})
	}

	if ref := cfg.Kubernetes; ref != nil {
		k8s, err := NewKubernetesSource(ref.Namespace, ref.Name, ref.Kubeconfig)
		if err != nil {
			return nil, err
		}
		sources = append(sources, k8s)
	}
	return sources, nil
}
