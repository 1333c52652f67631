package libcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedRuntime identifies a project language the engine knows how
// to build.
type SupportedRuntime int

const (
	RuntimeGo SupportedRuntime = iota
	RuntimeRust
)

// AllRuntimes lists the supported runtimes in detection order.
func AllRuntimes() []SupportedRuntime {
	return []SupportedRuntime{RuntimeGo, RuntimeRust}
}

func (r SupportedRuntime) String() string {
	switch r {
	case RuntimeGo:
		return "go"
	case RuntimeRust:
		return "rust"
	default:
		return "unknown"
	}
}

// ModuleFile is the manifest file whose presence identifies the
// runtime.
func (r SupportedRuntime) ModuleFile() string {
	switch r {
	case RuntimeGo:
		return "go.mod"
	default:
		return "Cargo.toml"
	}
}

// Extension is the source file extension for the runtime.
func (r SupportedRuntime) Extension() string {
	switch r {
	case RuntimeGo:
		return "go"
	default:
		return "rs"
	}
}

// BuildCommand returns the compiler invocation for the runtime.
func (r SupportedRuntime) BuildCommand() (string, []string) {
	switch r {
	case RuntimeGo:
		return "go", []string{"build", "."}
	default:
		return "cargo", []string{"check"}
	}
}

// HasSourceFiles reports whether the workspace contains at least one
// source file for the runtime.
func (r SupportedRuntime) HasSourceFiles(workspace string) bool {
	entries, err := os.ReadDir(workspace)
	if err != nil {
		return false
	}
	suffix := "." + r.Extension()
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			return true
		}
	}
	return false
}

// ParseRuntime resolves a runtime name. Both the language name and its
// common short form are accepted.
func ParseRuntime(s string) (SupportedRuntime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "go", "golang":
		return RuntimeGo, nil
	case "rust", "rs":
		return RuntimeRust, nil
	default:
		return 0, fmt.Errorf("unsupported runtime '%s'. supported: go, rust", s)
	}
}

// DetectRuntime probes the workspace for a known project manifest.
func DetectRuntime(workspace string) (SupportedRuntime, bool) {
	for _, r := range AllRuntimes() {
		if _, err := os.Stat(filepath.Join(workspace, r.ModuleFile())); err == nil {
			return r, true
		}
	}
	return 0, false
}
