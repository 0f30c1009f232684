package sources

import (
	"net/url"
	"path"
	"strings"
)

const defaultRepoName = "repo"

// RepoDirName returns the directory name a clone of repoURL gets: the last
// path segment without a trailing ".git"
func RepoDirName(repoURL string) string {
	p := repoURL
	if u, err := url.Parse(repoURL); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	}
	// scp-like syntax, git@host:org/repo.git
	if i := strings.LastIndex(p, ":"); i >= 0 && !strings.Contains(p[i:], "/") {
		p = p[i+1:]
	}
	p = strings.TrimRight(strings.ReplaceAll(p, "\\", "/"), "/")
	name := strings.TrimSuffix(path.Base(p), ".git")
	if name == "" || name == "." || name == "/" {
		return defaultRepoName
	}
	return name
}

// Sanitize replaces every character that is not an ASCII letter or digit with '_'
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// RepoFileName is the destination name of a file from a cloned repository
func RepoFileName(repoURL, filename string) string {
	return Sanitize(RepoDirName(repoURL)) + "_" + filename
}

// FileNameFromURL returns the final path segment of a direct URL verbatim,
// percent-escapes included, ignoring query and fragment
func FileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &InvalidSourceError{URL: rawURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &InvalidSourceError{URL: rawURL, Reason: "scheme must be http or https"}
	}

	p := u.EscapedPath()
	name := p[strings.LastIndex(p, "/")+1:]
	if name == "" {
		return "", &InvalidSourceError{URL: rawURL, Reason: "URL has no file name"}
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", &InvalidSourceError{URL: rawURL, Reason: "URL has no usable file name"}
	}
	return name, nil
}
