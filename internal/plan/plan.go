// Package plan loads the remediation plan: which functions to patch, how to
// find them, and which probes verify the result. Keeping targets in a plan
// file instead of hard-coded per-tool constants lets the same engine run
// against arbitrary trees and fixtures.
package plan

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/itayg2341/jansson/internal/model"
)

// Plan is the top-level structure of a redress plan file.
type Plan struct {
	// AllowList entries exempt scanner and probe matches on lines that
	// contain them. Every entry needs a reason suffix by convention
	// ("snprintf( /* bounded */") but only non-emptiness is enforced.
	AllowList []string          `yaml:"allow_list,omitempty"`
	Patches   []model.PatchSpec `yaml:"patches,omitempty"`
	Probes    []model.Probe     `yaml:"probes,omitempty"`
}

// Load reads and validates a plan file.
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, fmt.Errorf("plan %s: %w", path, err)
	}
	return p, nil
}

// Validate enforces the plan invariants: unique IDs, one locator strategy
// per patch, and non-empty probe patterns. Ambiguity here is a hard error;
// a sloppy plan must never reach the patcher.
func (p Plan) Validate() error {
	seen := make(map[string]struct{})
	for i, spec := range p.Patches {
		where := fmt.Sprintf("patch %d", i+1)
		if strings.TrimSpace(spec.ID) != "" {
			where = fmt.Sprintf("patch %q", spec.ID)
		}
		if strings.TrimSpace(spec.ID) == "" {
			return fmt.Errorf("%s: id is required", where)
		}
		if _, dup := seen[spec.ID]; dup {
			return fmt.Errorf("%s: duplicate id", where)
		}
		seen[spec.ID] = struct{}{}
		if strings.TrimSpace(spec.TargetFile) == "" {
			return fmt.Errorf("%s: file is required", where)
		}
		if spec.Replacement == "" {
			return fmt.Errorf("%s: replacement is required", where)
		}
		if err := validateLocator(spec.Locator); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
	}

	for i, probe := range p.Probes {
		where := fmt.Sprintf("probe %d", i+1)
		if strings.TrimSpace(probe.ID) != "" {
			where = fmt.Sprintf("probe %q", probe.ID)
		}
		if strings.TrimSpace(probe.ID) == "" {
			return fmt.Errorf("%s: id is required", where)
		}
		if _, dup := seen[probe.ID]; dup {
			return fmt.Errorf("%s: duplicate id", where)
		}
		seen[probe.ID] = struct{}{}
		if strings.TrimSpace(probe.File) == "" {
			return fmt.Errorf("%s: file is required", where)
		}
		if len(probe.ExpectedPresent) == 0 && len(probe.ExpectedAbsent) == 0 {
			return fmt.Errorf("%s: at least one expected_present or expected_absent marker is required", where)
		}
		for _, m := range append(append([]model.Marker{}, probe.ExpectedPresent...), probe.ExpectedAbsent...) {
			if strings.TrimSpace(m.Pattern) == "" {
				return fmt.Errorf("%s: marker pattern is required", where)
			}
			switch m.Kind {
			case "", model.MarkerContains, model.MarkerRegex:
			default:
				return fmt.Errorf("%s: unsupported marker kind %q", where, m.Kind)
			}
		}
	}

	for i, entry := range p.AllowList {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("allow_list entry %d: empty entries are not allowed", i+1)
		}
	}
	return nil
}

func validateLocator(loc model.Locator) error {
	switch loc.Kind {
	case model.LocatorExact:
		if loc.Anchor == "" {
			return fmt.Errorf("exact locator requires an anchor")
		}
		if loc.Signature != "" || loc.NextLineContains != "" {
			return fmt.Errorf("exact locator must not set signature fields")
		}
	case model.LocatorSignature:
		if strings.TrimSpace(loc.Signature) == "" {
			return fmt.Errorf("signature locator requires a signature")
		}
		if loc.Anchor != "" {
			return fmt.Errorf("signature locator must not set an anchor")
		}
	default:
		return fmt.Errorf("locator kind must be %q or %q", model.LocatorExact, model.LocatorSignature)
	}
	return nil
}

// PatchesFor returns the patches targeting one file, in plan order.
func (p Plan) PatchesFor(file string) []model.PatchSpec {
	var out []model.PatchSpec
	for _, spec := range p.Patches {
		if spec.TargetFile == file {
			out = append(out, spec)
		}
	}
	return out
}

// ProbesFor returns the probes targeting one file, in plan order.
func (p Plan) ProbesFor(file string) []model.Probe {
	var out []model.Probe
	for _, probe := range p.Probes {
		if probe.File == file {
			out = append(out, probe)
		}
	}
	return out
}

// TargetFiles returns every file named by a patch or probe, deduplicated,
// in first-mention order.
func (p Plan) TargetFiles() []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(file string) {
		if _, ok := seen[file]; ok {
			return
		}
		seen[file] = struct{}{}
		out = append(out, file)
	}
	for _, spec := range p.Patches {
		add(spec.TargetFile)
	}
	for _, probe := range p.Probes {
		add(probe.File)
	}
	return out
}
