package loader

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/iotrustlab/CrossPLC/internal/ir"
	"github.com/iotrustlab/CrossPLC/internal/project"
	"github.com/iotrustlab/CrossPLC/internal/validator"
)

// schemaVersion keys the cache: bump it when the IR contract changes
// so stale cached controllers are re-validated from source.
const schemaVersion = "1"

// Options configures controller loading.
type Options struct {
	// CacheDir enables the content-hash cache when non-empty.
	CacheDir string
	Logger   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// LoadControllers reads one controller IR document per path,
// validates each against the CUE contract before unmarshaling, and
// joins them sorted by controller name. A duplicate controller name
// across files is an error: controller identity is the join key of
// every downstream analysis.
func LoadControllers(paths []string, opts Options) ([]ir.Controller, error) {
	v, err := validator.New()
	if err != nil {
		return nil, fmt.Errorf("building ir validator: %w", err)
	}
	log := opts.logger()

	var cache *controllerCache
	if opts.CacheDir != "" {
		cache = newControllerCache(opts.CacheDir, schemaVersion)
		if err := cache.Load(); err != nil {
			log.Warn("controller cache unavailable, loading cold", "dir", opts.CacheDir, "err", err)
			cache = nil
		}
	}

	controllers := make([]ir.Controller, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		c, err := loadOne(path, v, cache, log)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("controller %q defined by both %s and %s", c.Name, prev, path)
		}
		seen[c.Name] = path
		controllers = append(controllers, c)
	}

	if cache != nil {
		if err := cache.Save(); err != nil {
			log.Warn("saving controller cache", "err", err)
		}
	}

	sort.Slice(controllers, func(i, j int) bool {
		return controllers[i].Name < controllers[j].Name
	})
	return controllers, nil
}

func loadOne(path string, v *validator.Validator, cache *controllerCache, log *slog.Logger) (ir.Controller, error) {
	hash, err := hashFile(path)
	if err != nil {
		return ir.Controller{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	if cache != nil {
		if c, ok, err := cache.Get(path, hash); err != nil {
			log.Warn("cached controller unreadable, reloading", "path", path, "err", err)
		} else if ok {
			log.Debug("controller cache hit", "path", path, "controller", c.Name)
			return c, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ir.Controller{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := v.ValidateJSON(data); err != nil {
		return ir.Controller{}, fmt.Errorf("%s: %w", path, err)
	}

	var c ir.Controller
	if err := json.Unmarshal(data, &c); err != nil {
		return ir.Controller{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	log.Debug("controller loaded", "path", path, "controller", c.Name, "source_type", c.SourceType)

	if cache != nil {
		if err := cache.Put(path, hash, c); err != nil {
			log.Warn("caching controller", "path", path, "err", err)
		}
	}
	return c, nil
}

// LoadOverlays reads supplementary overlay documents, one per path.
func LoadOverlays(paths []string) ([]project.Overlay, error) {
	overlays := make([]project.Overlay, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading overlay %s: %w", path, err)
		}
		var o project.Overlay
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("decoding overlay %s: %w", path, err)
		}
		if o.Controller == "" {
			return nil, fmt.Errorf("overlay %s names no controller", path)
		}
		overlays = append(overlays, o)
	}
	return overlays, nil
}
