// Package config implements C9: the four-layer configuration cascade
// (built-ins, user global, git-root project, working-directory project).
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mdflow/mdflow/internal/gitutil"
	"github.com/mdflow/mdflow/internal/mlog"
	"github.com/mdflow/mdflow/internal/value"
)

// projectConfigNames are tried in order at both the git root and the
// working directory.
var projectConfigNames = []string{"mdflow.config.yaml", ".mdflow.yaml", ".mdflow.json"}

// Load assembles the four-layer cascade for the given tool's built-in
// defaults and the process's home/working directories. Parse errors at
// any layer degrade silently to an empty layer, per the shared error
// policy for locally recoverable events.
func Load(builtins value.Value, cwd string) value.Value {
	cfg := builtins

	if home, err := os.UserHomeDir(); err == nil {
		userGlobal := readYAMLLayer(filepath.Join(home, ".mdflow", "config.yaml"))
		cfg = Merge(cfg, userGlobal)
	}

	if root, ok := gitutil.FindRoot(cwd); ok {
		cfg = Merge(cfg, readProjectLayer(root))
	}

	cfg = Merge(cfg, readProjectLayer(cwd))

	return cfg
}

func readProjectLayer(dir string) value.Value {
	for _, name := range projectConfigNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return readYAMLLayer(path)
	}
	return value.NewMap()
}

// readYAMLLayer reads and parses a config layer (YAML or JSON, both
// decodable by yaml.v3). A missing or malformed file degrades to an
// empty layer.
func readYAMLLayer(path string) value.Value {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.NewMap()
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		mlog.Printf("config: malformed layer %s: %v (skipping)", path, err)
		return value.NewMap()
	}
	if len(node.Content) == 0 {
		return value.NewMap()
	}
	v, err := value.FromYAMLNode(node.Content[0])
	if err != nil {
		mlog.Printf("config: malformed layer %s: %v (skipping)", path, err)
		return value.NewMap()
	}
	if v.Kind != value.KindMap {
		return value.NewMap()
	}
	return v
}

// Merge combines base and override per the cascade's merge rule: shallow
// per top-level key, except "commands", which merges one level deeper by
// command name (each command's own keys are then replaced wholesale by
// the override, matching the no-deep-array-merge rule).
func Merge(base, override value.Value) value.Value {
	if base.Kind != value.KindMap {
		return override
	}
	if override.Kind != value.KindMap {
		if override.IsNull() {
			return base
		}
		return override
	}

	merged := value.NewMap()
	for _, k := range base.Keys() {
		bv, _ := base.Get(k)
		merged.Set(k, bv)
	}

	baseCommands, hasBaseCommands := base.Get("commands")

	for _, k := range override.Keys() {
		ov, _ := override.Get(k)
		if k == "commands" && hasBaseCommands && baseCommands.Kind == value.KindMap && ov.Kind == value.KindMap {
			merged.Set(k, mergeCommands(baseCommands, ov))
			continue
		}
		merged.Set(k, ov)
	}
	return merged
}

// mergeCommands merges the "commands" mapping by command name: each
// named command's own key set is shallow-merged the same way a
// top-level layer is (override keys replace, base keys not present in
// override survive).
func mergeCommands(base, override value.Value) value.Value {
	merged := value.NewMap()
	for _, name := range base.Keys() {
		bv, _ := base.Get(name)
		merged.Set(name, bv)
	}
	for _, name := range override.Keys() {
		ov, _ := override.Get(name)
		bv, hasBase := merged.Get(name)
		if hasBase && bv.Kind == value.KindMap && ov.Kind == value.KindMap {
			merged.Set(name, value.MergeShallow(bv, ov))
			continue
		}
		merged.Set(name, ov)
	}
	return merged
}
