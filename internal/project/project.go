package project

// The aggregator sits between the per-controller front ends and the
// analysis passes. Its job is to:
// 1. Join controller IRs into one read-only project snapshot
// 2. Apply supplementary overlays to controller tag context
// 3. Run dependency detection at project scope
// 4. Detect naming/type conflicts across controllers
//
// The aggregation is rebuilt on each analysis run; nothing here
// mutates the input IRs. A controller missing its expected overlay
// under strict mode is recorded, not fatal: analysis proceeds with
// reduced context.

import (
	"fmt"
	"sort"

	"github.com/iotrustlab/CrossPLC/internal/dataflow"
	"github.com/iotrustlab/CrossPLC/internal/ir"
)

// Overlay carries supplementary project metadata merged into one
// controller's IR: initial values, hardware addresses and descriptions
// the primary export format does not retain.
type Overlay struct {
	Controller  string       `json:"controller"`
	Description string       `json:"description,omitempty"`
	Tags        []OverlayTag `json:"tags"`
}

// OverlayTag is supplementary context for one tag.
type OverlayTag struct {
	Name        string `json:"name"`
	Initial     string `json:"initial,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
}

// Project is the full read-only aggregation of all controller IRs.
type Project struct {
	Controllers     []ir.Controller
	MissingOverlays []string
	Diags           ir.Diagnostics
}

// FromControllers builds the project snapshot: overlays are applied,
// references resolved, diagnostics collected. Controllers keep their
// declaration order; it anchors every deterministic report ordering
// downstream. The missing-overlay list is populated only under strict
// mode and never aborts the run.
func FromControllers(controllers []ir.Controller, overlays []Overlay, strict bool) (*Project, []string, error) {
	byName := make(map[string]Overlay, len(overlays))
	for _, o := range overlays {
		byName[o.Controller] = o
	}

	p := &Project{Controllers: make([]ir.Controller, 0, len(controllers))}
	for _, c := range controllers {
		if o, ok := byName[c.Name]; ok {
			c = applyOverlay(c, o)
		} else if strict {
			p.MissingOverlays = append(p.MissingOverlays, c.Name)
			p.Diags = append(p.Diags, ir.Diagnostic{
				Code:       ir.DiagMissingOverlay,
				Controller: c.Name,
				Detail:     "overlay not provided; tag and task context may be incomplete",
			})
		}

		diags, err := ir.ResolveReferences(&c)
		if err != nil {
			return nil, nil, fmt.Errorf("controller %q: %w", c.Name, err)
		}
		p.Diags = append(p.Diags, diags...)
		p.Controllers = append(p.Controllers, c)
	}
	return p, p.MissingOverlays, nil
}

// applyOverlay returns a copy of the controller with overlay context
// merged in. Overlay values never override what the front end already
// extracted; they only fill gaps.
func applyOverlay(c ir.Controller, o Overlay) ir.Controller {
	overlayTags := make(map[string]OverlayTag, len(o.Tags))
	for _, t := range o.Tags {
		overlayTags[t.Name] = t
	}

	tags := make([]ir.Tag, len(c.Tags))
	copy(tags, c.Tags)
	for i := range tags {
		ot, ok := overlayTags[tags[i].Name]
		if !ok {
			continue
		}
		if tags[i].Initial == "" {
			tags[i].Initial = ot.Initial
		}
		if tags[i].Address == "" {
			tags[i].Address = ot.Address
		}
		if tags[i].Description == "" {
			tags[i].Description = ot.Description
		}
	}
	c.Tags = tags
	c.HasOverlay = true
	return c
}

// ControllerNames returns controller names in declaration order.
func (p *Project) ControllerNames() []string {
	names := make([]string, 0, len(p.Controllers))
	for _, c := range p.Controllers {
		names = append(names, c.Name)
	}
	return names
}

// Controller returns the aggregated controller with the given name.
func (p *Project) Controller(name string) (*ir.Controller, bool) {
	for i := range p.Controllers {
		if p.Controllers[i].Name == name {
			return &p.Controllers[i], true
		}
	}
	return nil, false
}

// FindCrossPLCDependencies detects tags written by one controller and
// read by others, sorted by tag name then writer.
func (p *Project) FindCrossPLCDependencies() []dataflow.CrossDependency {
	deps := dataflow.FlowsBetween(dataflow.ControllerUnits(p.Controllers))
	sort.SliceStable(deps, func(i, j int) bool {
		if deps[i].Tag != deps[j].Tag {
			return deps[i].Tag < deps[j].Tag
		}
		return deps[i].Writer < deps[j].Writer
	})
	return deps
}

// CrossRoutineFlows runs dependency detection at routine granularity
// over the whole project.
func (p *Project) CrossRoutineFlows() []dataflow.CrossDependency {
	return dataflow.CrossRoutineFlows(p.Controllers)
}
