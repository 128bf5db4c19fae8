package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
)

//go:embed locales/*.json
var catalogFS embed.FS

// Catalog maps each locale to its flattened translation table. Nested JSON
// objects become dot-separated keys such as "errors.network".
type Catalog map[Locale]map[string]string

var builtin = sync.OnceValues(func() (Catalog, error) {
	return LoadCatalog(catalogFS, "locales")
})

// Builtin returns the embedded catalog.
func Builtin() (Catalog, error) {
	return builtin()
}

// fileReader is satisfied by embed.FS and fs.ReadFileFS implementations.
type fileReader interface {
	ReadFile(name string) ([]byte, error)
}

// LoadCatalog reads <dir>/<locale>.json for every supported locale.
// Missing files yield empty tables; malformed ones are an error.
func LoadCatalog(fsys fileReader, dir string) (Catalog, error) {
	cat := make(Catalog, len(SupportedLocales))
	for _, l := range SupportedLocales {
		raw, err := fsys.ReadFile(path.Join(dir, string(l)+".json"))
		if err != nil {
			cat[l] = map[string]string{}
			continue
		}
		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse %s translations: %w", l, err)
		}
		table := make(map[string]string)
		flatten("", tree, table)
		cat[l] = table
	}
	return cat, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				out[key] = val
			}
		case map[string]any:
			flatten(key, val, out)
		}
	}
}
