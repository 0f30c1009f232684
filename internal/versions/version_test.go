package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	noVCS := func() (string, string) { return "", "" }
	vcs := func() (string, string) { return "0123456789abcdef", "2025-06-01T10:00:00Z" }

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
		vcs       func() (string, string)
		want      VersionInfo
	}{
		{
			name:      "release build keeps its values",
			version:   "v1.4.0",
			commit:    "abc",
			buildDate: "2025-01-02T03:04:05Z",
			vcs:       vcs,
			want: VersionInfo{
				Version:   "v1.4.0",
				Commit:    "abc",
				BuildDate: "2025-01-02 03:04:05 UTC",
			},
		},
		{
			name:      "dev build is named after the vcs revision",
			version:   "dev",
			commit:    unknownStr,
			buildDate: unknownStr,
			vcs:       vcs,
			want: VersionInfo{
				Version:   "build-01234567",
				Commit:    "0123456789abcdef",
				BuildDate: "2025-06-01 10:00:00 UTC",
			},
		},
		{
			name:      "dev build without vcs data",
			version:   "dev",
			commit:    unknownStr,
			buildDate: unknownStr,
			vcs:       noVCS,
			want: VersionInfo{
				Version:   "dev",
				Commit:    unknownStr,
				BuildDate: unknownStr,
			},
		},
		{
			name:      "unparsable build date is kept",
			version:   "v1.0.0",
			commit:    "abc",
			buildDate: "yesterday",
			vcs:       noVCS,
			want: VersionInfo{
				Version:   "v1.0.0",
				Commit:    "abc",
				BuildDate: "yesterday",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := versionInfo(tt.version, tt.commit, tt.buildDate, tt.vcs)
			tt.want.GoVersion = runtime.Version()
			tt.want.Platform = runtime.GOOS + "/" + runtime.GOARCH
			assert.Equal(t, tt.want, got)
		})
	}
}
