package license

import "path/filepath"

// style describes how a header comment block is written for one file syntax.
type style struct {
	// prefix is the line-comment marker, without trailing space.
	prefix string
}

// stylesByExt maps recognized file extensions to their comment style.
// Unrecognized files are skipped rather than erroring.
var stylesByExt = map[string]style{
	".go":    {prefix: "//"},
	".proto": {prefix: "//"},
	".sh":    {prefix: "#"},
	".bash":  {prefix: "#"},
	".yaml":  {prefix: "#"},
	".yml":   {prefix: "#"},
	".hcl":   {prefix: "#"},
}

// stylesByName covers extension-less well-known files.
var stylesByName = map[string]style{
	"Dockerfile": {prefix: "#"},
	"Makefile":   {prefix: "#"},
}

// styleFor returns the comment style for a path and whether one is known.
func styleFor(path string) (style, bool) {
	if s, ok := stylesByExt[filepath.Ext(path)]; ok {
		return s, true
	}
	s, ok := stylesByName[filepath.Base(path)]
	return s, ok
}
