package execctx

import (
	"os"
	"path/filepath"
)

// Context is the explicit environment a pipeline invocation runs in.
type Context struct {
	// Workdir is the repository root every relative path resolves against.
	Workdir string
	// BinDir is the isolated directory holding pinned tool binaries.
	BinDir string
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string
	// Overrides maps a tool name to a substitute binary, typically sourced
	// from an environment variable so CI can swap the schema compiler.
	Overrides map[string]string
}

// New returns a Context rooted at workdir with its bin directory under the
// pipeline's cache directory.
func New(workdir, binDir string) *Context {
	return &Context{
		Workdir:   workdir,
		BinDir:    binDir,
		Overrides: make(map[string]string),
	}
}

// Resolve maps a tool name to the binary to invoke: an explicit override
// wins, then an installed binary in the isolated bin dir, and finally the
// bare name for ambient tools such as go and git.
func (c *Context) Resolve(tool string) string {
	if c.Overrides != nil {
		if bin, ok := c.Overrides[tool]; ok && bin != "" {
			return bin
		}
	}
	installed := filepath.Join(c.BinDir, tool)
	if _, err := os.Stat(installed); err == nil {
		return installed
	}
	return tool
}

// environ builds the full environment for a command. With hermetic set, PATH
// is replaced by the isolated bin dir alone so tool resolution cannot fall
// back to ambient system binaries; otherwise the bin dir is prepended.
func (c *Context) environ(hermetic bool, extra []string) []string {
	env := make([]string, 0, len(os.Environ())+len(c.Env)+len(extra)+1)
	for _, kv := range os.Environ() {
		if isPathEntry(kv) {
			continue
		}
		env = append(env, kv)
	}
	if hermetic {
		env = append(env, "PATH="+c.BinDir)
	} else {
		env = append(env, "PATH="+c.BinDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
	env = append(env, c.Env...)
	env = append(env, extra...)
	return env
}

func isPathEntry(kv string) bool {
	return len(kv) >= 5 && kv[:5] == "PATH="
}
