package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iotrustlab/CrossPLC/internal/config"
	"github.com/iotrustlab/CrossPLC/internal/fsm"
	"github.com/iotrustlab/CrossPLC/internal/loader"
	"github.com/iotrustlab/CrossPLC/internal/project"
)

// loadConfig resolves the effective configuration: an explicit
// --config file wins, otherwise the search path rooted at path.
func loadConfig(opts *RootOptions, path string) (*config.Config, error) {
	if opts.ConfigFile != "" {
		return config.LoadFile(opts.ConfigFile)
	}
	return config.Load(path)
}

// loadProject loads controllers and overlays under path and links
// them into a project. When path is a single IR file it is the only
// input; when it is a directory the configured globs are expanded
// relative to it.
func loadProject(opts *RootOptions, path string, strict bool) (*project.Project, *config.Config, error) {
	cfg, err := loadConfig(opts, path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	root := path
	var inputs, overlayPaths []string

	info, err := os.Stat(path)
	switch {
	case err != nil:
		return nil, nil, &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("cannot stat %s", path), Err: err}
	case info.IsDir():
		inputs, err = cfg.ResolveInputs(root)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving inputs: %w", err)
		}
		overlayPaths, err = cfg.ResolveOverlays(root)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving overlays: %w", err)
		}
	default:
		root = filepath.Dir(path)
		inputs = []string{path}
		overlayPaths, err = cfg.ResolveOverlays(root)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving overlays: %w", err)
		}
	}

	// Overlay documents match the input globs too; keep them out of
	// the controller list.
	inputs = dropOverlayInputs(inputs, overlayPaths)

	if len(inputs) == 0 {
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("no controller IR files found under %s", path))
	}

	controllers, err := loader.LoadControllers(inputs, loader.Options{CacheDir: cfg.CacheDir(root)})
	if err != nil {
		return nil, nil, err
	}

	overlays, err := loader.LoadOverlays(overlayPaths)
	if err != nil {
		return nil, nil, err
	}

	p, _, err := project.FromControllers(controllers, overlays, strict || cfg.StrictOverlays)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func dropOverlayInputs(inputs, overlays []string) []string {
	if len(overlays) == 0 {
		return inputs
	}
	skip := make(map[string]bool, len(overlays))
	for _, o := range overlays {
		skip[filepath.Clean(o)] = true
	}
	kept := inputs[:0]
	for _, in := range inputs {
		if !skip[filepath.Clean(in)] {
			kept = append(kept, in)
		}
	}
	return kept
}

// loadHints loads the FSM hints file named on the command line or in
// the configuration. A missing name yields no hints, not an error.
func loadHints(cfg *config.Config, root, flagPath string) (*fsm.HintsFile, error) {
	path := flagPath
	if path == "" {
		path = cfg.FSM.HintsFile
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
	}
	if path == "" {
		return nil, nil
	}
	return fsm.LoadHints(path)
}

// buildModels runs state machine inference over every controller.
func buildModels(p *project.Project, hints *fsm.HintsFile) map[string]fsm.Model {
	models := make(map[string]fsm.Model, len(p.Controllers))
	for i := range p.Controllers {
		c := &p.Controllers[i]
		var mcfg *fsm.Config
		if hints != nil {
			mcfg = hints.For(c.Name)
		}
		models[c.Name] = fsm.Extract(c, mcfg)
	}
	return models
}

// rootDir returns the directory a path-argument anchors relative
// lookups to.
func rootDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}
