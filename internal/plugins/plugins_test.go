package plugins

import (
	"testing"

	"github.com/giantswarm/stepflow/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnown(t *testing.T) {
	assert.Equal(t, []string{"discord", "git", "github", "telegram"}, Known())
}

func TestEnabled(t *testing.T) {
	got, err := Enabled(config.PluginsConfig{Enabled: []string{"github", "git", "github"}}, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "github", got[0].Name())
	assert.Equal(t, "git", got[1].Name())

	_, err = Enabled(config.PluginsConfig{Enabled: []string{"slack"}}, nil)
	assert.ErrorContains(t, err, `unknown plugin "slack"`)
	assert.ErrorAs(t, err, new(config.ValidationError))
}

func TestToolNamesAreUniqueAcrossCatalog(t *testing.T) {
	all, err := Enabled(config.PluginsConfig{Enabled: Known()}, nil)
	require.NoError(t, err)

	seen := map[string]string{}
	for _, p := range all {
		for _, tool := range p.Tools() {
			owner, dup := seen[tool.Name]
			assert.False(t, dup, "tool %s provided by %s and %s", tool.Name, owner, p.Name())
			seen[tool.Name] = p.Name()
		}
	}
}
