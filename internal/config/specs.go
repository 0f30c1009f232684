package config

import (
	"fmt"
	"strings"

	"github.com/rulegrab/rulegrab/internal/filtering"
	"github.com/rulegrab/rulegrab/internal/sources"
)

// ToolNames returns the configured tool names in order, followed by the
// unit names of the indicator feeds
func (c *Config) ToolNames() []string {
	names := make([]string, 0, len(c.Tools))
	for _, tool := range c.Tools {
		names = append(names, tool.Name)
	}
	if c.IOCs != nil {
		for _, feed := range c.IOCs.Feeds {
			names = append(names, FeedSpecName(feed.Type))
		}
	}
	return names
}

// ToSourceSpecs builds the source specs of the named tools, in configuration
// order, then one spec per indicator type. No names selects every unit.
// Names match case-insensitively.
func (c *Config) ToSourceSpecs(names ...string) ([]*sources.SourceSpec, error) {
	selected := make(map[string]bool, len(names))
	for _, name := range names {
		selected[strings.ToLower(strings.TrimSpace(name))] = true
	}

	specs := make([]*sources.SourceSpec, 0, len(c.Tools))
	for i := range c.Tools {
		tool := &c.Tools[i]
		key := strings.ToLower(tool.Name)
		if len(selected) > 0 && !selected[key] {
			continue
		}
		delete(selected, key)

		spec, err := tool.ToSourceSpec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if c.IOCs != nil {
		for i := range c.IOCs.Feeds {
			spec := c.IOCs.ToSourceSpec(&c.IOCs.Feeds[i])
			key := strings.ToLower(spec.Name)
			if len(selected) > 0 && !selected[key] {
				continue
			}
			delete(selected, key)
			specs = append(specs, spec)
		}
	}

	if len(selected) > 0 {
		unknown := make([]string, 0, len(selected))
		for _, name := range names {
			if selected[strings.ToLower(strings.TrimSpace(name))] {
				unknown = append(unknown, name)
			}
		}
		return nil, fmt.Errorf("unknown tool(s): %s (configured: %s)",
			strings.Join(unknown, ", "), strings.Join(c.ToolNames(), ", "))
	}
	return specs, nil
}

// ToSourceSpec builds the immutable source spec of this tool. Blank URLs
// are placeholders and are dropped, so they never count towards progress.
func (t *ToolConfig) ToSourceSpec() (*sources.SourceSpec, error) {
	spec := &sources.SourceSpec{
		Name:              t.Name,
		DestSubfolder:     t.DestSubfolder,
		RepoURLs:          nonBlank(t.Repos),
		PageURLs:          nonBlank(t.Pages),
		AllowedExtensions: append([]string(nil), t.Extensions...),
	}

	if t.Paths != nil {
		pathFilter, err := filtering.NewPathFilter(t.Paths.Include, t.Paths.Exclude)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		spec.PathFilter = pathFilter
	}
	return spec, nil
}

// ToSourceSpec builds the spec merging the feeds of one indicator type
func (c *IOCConfig) ToSourceSpec(feed *FeedConfig) *sources.SourceSpec {
	return &sources.SourceSpec{
		Name:          FeedSpecName(feed.Type),
		DestSubfolder: c.GetDestSubfolder(),
		FeedURLs:      nonBlank(feed.URLs),
		FeedType:      feed.Type,
		FeedFormat:    c.GetFormat(),
	}
}

func nonBlank(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
