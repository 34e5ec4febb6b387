package scanner

import (
	"strings"
	"testing"

	"github.com/itayg2341/jansson/internal/model"
)

const vulnerableSource = `#include <string.h>

static char scratch[64];

void copy_name(const char *name) {
    strcpy(scratch, name);
}

char *grow(size_t length, size_t size) {
    size_t total = length + size;
    return malloc(total);
}
`

func categories(findings []model.Finding) map[model.Category]int {
	out := make(map[model.Category]int)
	for _, f := range findings {
		out[f.Category]++
	}
	return out
}

func TestScan_DetectsAllCategories(t *testing.T) {
	findings := ScanAll("src/demo.c", vulnerableSource, Options{})
	counts := categories(findings)

	if counts[model.CategoryUnsafeCall] != 1 {
		t.Errorf("unsafe-call count = %d, want 1", counts[model.CategoryUnsafeCall])
	}
	if counts[model.CategoryUncheckedAllocation] != 1 {
		t.Errorf("unchecked-allocation count = %d, want 1", counts[model.CategoryUncheckedAllocation])
	}
	if counts[model.CategoryOverflowRisk] == 0 {
		t.Error("expected at least one overflow-risk finding")
	}

	for _, f := range findings {
		if f.File != "src/demo.c" {
			t.Errorf("finding file = %s", f.File)
		}
		if f.Line <= 0 {
			t.Errorf("finding line = %d", f.Line)
		}
	}
}

func TestScan_UnsafeCallLineNumber(t *testing.T) {
	findings := ScanAll("demo.c", vulnerableSource, Options{})
	for _, f := range findings {
		if f.Category == model.CategoryUnsafeCall {
			if f.Line != 6 {
				t.Errorf("strcpy reported on line %d, want 6", f.Line)
			}
			if !strings.Contains(f.MatchedText, "strcpy") {
				t.Errorf("matched text %q", f.MatchedText)
			}
			return
		}
	}
	t.Fatal("no unsafe-call finding")
}

func TestScan_SnprintfIsNotSprintf(t *testing.T) {
	text := "void f(char *buf) {\n    snprintf(buf, 16, \"%d\", 1);\n}\n"
	findings := ScanAll("fmt.c", text, Options{})
	for _, f := range findings {
		if f.Category == model.CategoryUnsafeCall {
			t.Errorf("snprintf flagged as unsafe: %+v", f)
		}
	}
}

func TestScan_AllowListExemptsLine(t *testing.T) {
	text := "void f(char *buf, const char *s) {\n" +
		"    sprintf(buf, \"%s\", s); /* vetted: bounded caller */\n" +
		"    sprintf(buf, \"%s\", s);\n" +
		"}\n"

	unfiltered := ScanAll("fmt.c", text, Options{})
	if got := categories(unfiltered)[model.CategoryUnsafeCall]; got != 2 {
		t.Fatalf("unfiltered unsafe-call count = %d, want 2", got)
	}

	filtered := ScanAll("fmt.c", text, Options{
		AllowList: []string{"vetted: bounded caller"},
	})
	unsafe := 0
	for _, f := range filtered {
		if f.Category == model.CategoryUnsafeCall {
			unsafe++
			if f.Line != 3 {
				t.Errorf("remaining finding on line %d, want 3", f.Line)
			}
		}
	}
	if unsafe != 1 {
		t.Errorf("filtered unsafe-call count = %d, want 1", unsafe)
	}
}

func TestScan_AllocationWithReleaseNotFlagged(t *testing.T) {
	text := "void f(void) {\n    char *p = malloc(8);\n    free(p);\n}\n"
	findings := ScanAll("mem.c", text, Options{})
	if got := categories(findings)[model.CategoryUncheckedAllocation]; got != 0 {
		t.Errorf("allocation with release flagged %d time(s)", got)
	}
}

func TestScan_FileScopedReleaseHeuristic(t *testing.T) {
	// The release may be on a different control path entirely; the check is
	// file-scoped, so this still counts as released.
	text := "void a(void) {\n    char *p = malloc(8);\n}\nvoid b(char *p) {\n    free(p);\n}\n"
	findings := ScanAll("mem.c", text, Options{})
	if got := categories(findings)[model.CategoryUncheckedAllocation]; got != 0 {
		t.Errorf("file-scoped heuristic flagged %d allocation(s)", got)
	}
}

func TestScan_NonUTF8DoesNotAbort(t *testing.T) {
	text := "char *p = malloc(8);\n\xff\xfe\nstrcpy(a, b);\n"
	findings := ScanAll("bin.c", text, Options{})
	counts := categories(findings)
	if counts[model.CategoryUnsafeCall] != 1 || counts[model.CategoryUncheckedAllocation] != 1 {
		t.Errorf("degraded scan lost findings: %v", counts)
	}
}

func TestScan_EmptyFile(t *testing.T) {
	if findings := ScanAll("empty.c", "", Options{}); len(findings) != 0 {
		t.Errorf("empty file produced findings: %v", findings)
	}
}

func TestScan_SequenceIsRestartable(t *testing.T) {
	seq := Scan("demo.c", vulnerableSource, Options{})

	var first, second []model.Finding
	for f := range seq {
		first = append(first, f)
	}
	for f := range seq {
		second = append(second, f)
	}
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("restarted sequence differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("finding %d differs across restarts", i)
		}
	}
}

func TestScan_EarlyBreakStopsIteration(t *testing.T) {
	count := 0
	for range Scan("demo.c", vulnerableSource, Options{}) {
		count++
		break
	}
	if count != 1 {
		t.Errorf("early break consumed %d findings", count)
	}
}
