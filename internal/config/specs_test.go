package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() *Config {
	return &Config{
		Tools: []ToolConfig{
			{
				Name:          "Yara",
				DestSubfolder: "yara",
				Extensions:    []string{"yar", "yara"},
				Repos:         []string{"https://github.com/Yara-Rules/rules.git", " "},
			},
			{
				Name:          "Sigma",
				DestSubfolder: "sigma",
				Extensions:    []string{".yml"},
				Repos:         []string{"https://github.com/SigmaHQ/sigma.git"},
				Pages:         []string{"", "https://example.com/rules/a.yml"},
				Paths:         &PathsConfig{Include: []string{"rules/**"}},
			},
			{
				Name:          "Zeek",
				DestSubfolder: "zeek",
			},
		},
	}
}

func TestToSourceSpecs(t *testing.T) {
	t.Parallel()

	t.Run("all tools in order", func(t *testing.T) {
		t.Parallel()
		specs, err := catalog().ToSourceSpecs()
		require.NoError(t, err)
		require.Len(t, specs, 3)

		assert.Equal(t, "Yara", specs[0].Name)
		assert.Equal(t, "yara", specs[0].DestSubfolder)
		assert.Equal(t, []string{"https://github.com/Yara-Rules/rules.git"}, specs[0].RepoURLs)
		assert.Empty(t, specs[0].PageURLs)
		assert.Equal(t, []string{"yar", "yara"}, specs[0].AllowedExtensions)
		assert.Nil(t, specs[0].PathFilter)
		assert.Equal(t, 1, specs[0].ItemCount())

		assert.Equal(t, "Sigma", specs[1].Name)
		assert.Equal(t, []string{"https://example.com/rules/a.yml"}, specs[1].PageURLs)
		require.NotNil(t, specs[1].PathFilter)
		assert.Equal(t, 2, specs[1].ItemCount())

		assert.Equal(t, "Zeek", specs[2].Name)
		assert.Equal(t, 0, specs[2].ItemCount())
	})

	t.Run("selected tools keep configuration order", func(t *testing.T) {
		t.Parallel()
		specs, err := catalog().ToSourceSpecs("zeek", " YARA ")
		require.NoError(t, err)
		require.Len(t, specs, 2)
		assert.Equal(t, "Yara", specs[0].Name)
		assert.Equal(t, "Zeek", specs[1].Name)
	})

	t.Run("unknown tool", func(t *testing.T) {
		t.Parallel()
		specs, err := catalog().ToSourceSpecs("Sigma", "Snort")
		require.Error(t, err)
		assert.Nil(t, specs)
		assert.Contains(t, err.Error(), "unknown tool(s): Snort")
		assert.Contains(t, err.Error(), "configured: Yara, Sigma, Zeek")
	})

	t.Run("extensions are copied", func(t *testing.T) {
		t.Parallel()
		cfg := catalog()
		specs, err := cfg.ToSourceSpecs("Yara")
		require.NoError(t, err)
		cfg.Tools[0].Extensions[0] = "changed"
		assert.Equal(t, []string{"yar", "yara"}, specs[0].AllowedExtensions)
	})
}

func TestToSourceSpec_InvalidPattern(t *testing.T) {
	t.Parallel()

	tool := &ToolConfig{
		Name:          "Yara",
		DestSubfolder: "yara",
		Paths:         &PathsConfig{Exclude: []string{"[invalid"}},
	}
	_, err := tool.ToSourceSpec()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool Yara: invalid exclude pattern")
}

func TestToolNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"Yara", "Sigma", "Zeek"}, catalog().ToolNames())
	assert.Empty(t, (&Config{}).ToolNames())
}

func TestToSourceSpecs_IOCFeeds(t *testing.T) {
	t.Parallel()

	cfg := catalog()
	cfg.IOCs = &IOCConfig{
		Format: "CSV",
		Feeds: []FeedConfig{
			{Type: "IP", URLs: []string{"https://feeds.example.com/ips", " ", "https://feeds.example.com/more-ips"}},
			{Type: "Domain", URLs: []string{"https://feeds.example.com/domains"}},
		},
	}

	assert.Equal(t, []string{"Yara", "Sigma", "Zeek", "IOC IP", "IOC Domain"}, cfg.ToolNames())

	specs, err := cfg.ToSourceSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 5)

	ip := specs[3]
	assert.Equal(t, "IOC IP", ip.Name)
	assert.Equal(t, DefaultIOCSubfolder, ip.DestSubfolder)
	assert.Equal(t, "IP", ip.FeedType)
	assert.Equal(t, "csv", ip.FeedFormat)
	assert.Equal(t, []string{"https://feeds.example.com/ips", "https://feeds.example.com/more-ips"}, ip.FeedURLs)
	assert.Equal(t, 2, ip.ItemCount())

	specs, err = cfg.ToSourceSpecs("ioc domain", "Yara")
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "Yara", specs[0].Name)
	assert.Equal(t, "IOC Domain", specs[1].Name)
}
