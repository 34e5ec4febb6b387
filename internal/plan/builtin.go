package plan

import "github.com/itayg2341/jansson/internal/model"

// Default returns the built-in plan for the jansson tree: no patches (those
// are authored per finding), but the verification probes for the known
// remediation set, so `redress verify` is useful without a plan file.
func Default() Plan {
	return Plan{
		Probes: []model.Probe{
			{
				ID:   "memory-realloc-null-check",
				File: "src/memory.c",
				ExpectedPresent: []model.Marker{
					{Pattern: "if (newMemory == NULL && newSize != 0)"},
				},
			},
			{
				ID:   "strbuffer-bounds-check",
				File: "src/strbuffer.c",
				ExpectedPresent: []model.Marker{
					{Pattern: "if (strbuff->length + size >= strbuff->size)"},
				},
			},
			{
				ID:   "hashtable-input-validation",
				File: "src/hashtable.c",
				ExpectedPresent: []model.Marker{
					{Pattern: "if (!hashtable || !key || key_len == 0 || !value)"},
					{Pattern: "if (!hashtable || !key || key_len == 0)"},
				},
			},
			{
				ID:   "hashtable-seed-volatile",
				File: "src/hashtable_seed.c",
				ExpectedPresent: []model.Marker{
					{Pattern: "volatile uint32_t hashtable_seed"},
				},
			},
			{
				ID:   "no-unsafe-string-calls",
				File: "src/strconv.c",
				ExpectedAbsent: []model.Marker{
					{Pattern: `\b(strcpy|strcat|sprintf|gets)\s*\(`, Kind: model.MarkerRegex},
				},
				AllowList: []string{"snprintf("},
			},
			{
				ID:   "cmake-hardening-flags",
				File: "CMakeLists.txt",
				ExpectedPresent: []model.Marker{
					{Pattern: "-fstack-protector-strong"},
					{Pattern: "-D_FORTIFY_SOURCE=2"},
					{Pattern: "-fPIE"},
					{Pattern: "-Wformat-security"},
				},
			},
		},
	}
}
