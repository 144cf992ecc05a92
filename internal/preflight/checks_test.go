package preflight

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestCheck_String(t *testing.T) {
	t.Run("passed_with_required", func(t *testing.T) {
		c := Check{
			Name:     "test_check",
			Required: 100,
			Actual:   200,
			Passed:   true,
		}
		s := c.String()
		if !strings.Contains(s, "✓") {
			t.Error("Passed check should have ✓")
		}
		if !strings.Contains(s, "200") || !strings.Contains(s, "100") {
			t.Errorf("String() = %q, want actual and required values", s)
		}
	})

	t.Run("failed_check", func(t *testing.T) {
		c := Check{Name: "test_check", Message: "nope"}
		if s := c.String(); !strings.Contains(s, "✗") {
			t.Errorf("Failed check should have ✗, got %q", s)
		}
	})

	t.Run("warning_check", func(t *testing.T) {
		c := Check{Name: "test_check", Passed: true, Warning: true, Message: "warning message"}
		s := c.String()
		if !strings.Contains(s, "⚠") {
			t.Error("Warning check should have ⚠")
		}
		if !strings.Contains(s, "warning message") {
			t.Error("Should contain message")
		}
	})
}

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/patch/data/items.dat", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fs.MkdirAll("/out", 0o755); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestCheckPatchDir(t *testing.T) {
	fs := newFs(t)
	afero.WriteFile(fs, "/file.txt", []byte("x"), 0o644)
	fs.MkdirAll("/hidden-only/.git", 0o755)

	tests := []struct {
		name    string
		dir     string
		passed  bool
		warning bool
	}{
		{"populated", "/patch", true, false},
		{"missing", "/nope", false, false},
		{"not_a_directory", "/file.txt", false, false},
		{"hidden_only", "/hidden-only", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkPatchDir(fs, tt.dir)
			if c.Passed != tt.passed || c.Warning != tt.warning {
				t.Errorf("checkPatchDir(%q) = passed %v warning %v, want %v %v (%s)",
					tt.dir, c.Passed, c.Warning, tt.passed, tt.warning, c.Message)
			}
		})
	}
}

func TestCheckOutputBase(t *testing.T) {
	fs := newFs(t)

	if c := checkOutputBase(fs, "/out"); !c.Passed || c.Warning {
		t.Errorf("existing dir: %+v", c)
	}
	if c := checkOutputBase(fs, "/out/new"); !c.Passed || !c.Warning {
		t.Errorf("creatable dir: %+v", c)
	}
	if c := checkOutputBase(fs, "/missing/new"); c.Passed {
		t.Errorf("missing parent should fail: %+v", c)
	}

	entries, _ := afero.ReadDir(fs, "/out")
	if len(entries) != 0 {
		t.Errorf("writability probe left %d entries behind", len(entries))
	}
}

func TestCheckOutputBase_ReadOnly(t *testing.T) {
	fs := afero.NewReadOnlyFs(newFs(t))
	if c := checkOutputBase(fs, "/out"); c.Passed {
		t.Errorf("read-only dir should fail: %+v", c)
	}
}

func TestRunAll(t *testing.T) {
	fs := newFs(t)

	result := RunAll(fs, "/patch", "/out")
	if len(result.Checks) != 3 {
		t.Fatalf("len(Checks) = %d, want 3", len(result.Checks))
	}
	if !result.Checks[0].Passed || !result.Checks[1].Passed {
		t.Errorf("path checks should pass: %+v", result.Checks[:2])
	}

	result = RunAll(fs, "/nope", "/out")
	if result.Passed {
		t.Error("RunAll should fail with a missing patch dir")
	}
}

func TestPrintResults(t *testing.T) {
	result := &Result{
		Checks: []Check{
			{Name: "patch_dir", Passed: true, Message: "/patch (1 entries)"},
			{Name: "output_dir", Message: "/out is not writable"},
		},
	}

	var buf bytes.Buffer
	PrintResults(&buf, result)
	out := buf.String()

	if !strings.HasPrefix(out, "Preflight checks:") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "Fix: pass a writable folder") {
		t.Errorf("missing fix suggestion: %q", out)
	}
	if strings.Contains(out, "Fix: pass an existing") {
		t.Errorf("passed check should not print a fix: %q", out)
	}
}
