// Package filtering decides which files fetched from a source are kept.
//
// Two filters are provided:
//
//   - ExtensionFilter: admits a file name when its extension matches one of
//     the allowed extensions of a tool (case-insensitive, leading dot optional).
//     An empty allow-list admits everything.
//   - PathFilter: include/exclude glob patterns applied to the path of a file
//     relative to the root of a cloned repository.
//
// # Path Filtering
//
// Path patterns are compiled with gobwas/glob without separators, so '*'
// matches across directory boundaries:
//
//   - "deprecated/*" matches "deprecated/a.yml" and "deprecated/x/b.yml"
//   - "*/tests/*" matches "rules/tests/sample.yar"
//
// Precedence follows the usual rules:
//
//  1. If exclude patterns are specified and match -> exclude (precedence)
//  2. If include patterns are specified and match -> include
//  3. If include patterns are specified but no match -> exclude
//  4. If only exclude patterns are specified and no match -> include
//  5. If no patterns are specified -> include
//
// # Usage Example
//
//	pf, err := filtering.NewPathFilter([]string{"rules/*"}, []string{"*/deprecated/*"})
//	if err != nil {
//		return err
//	}
//	if ok, _ := pf.ShouldInclude("rules/windows/proc.yml"); ok && filtering.Admit("proc.yml", []string{"yml"}) {
//		// keep the file
//	}
package filtering
