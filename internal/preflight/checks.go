// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
)

// minFileDescriptors is enough for the copy loop, the log file and the
// metrics listener.
const minFileDescriptors = 64

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

func (r *Result) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Passed {
		r.Passed = false
	}
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks for a generation from patchDir into
// outputBase.
func RunAll(fs afero.Fs, patchDir, outputBase string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 3),
		Passed: true,
	}
	result.add(checkPatchDir(fs, patchDir))
	result.add(checkOutputBase(fs, outputBase))
	result.add(checkFileDescriptors())
	return result
}

// checkPatchDir verifies the patch folder exists and has visible entries.
func checkPatchDir(fs afero.Fs, dir string) Check {
	info, err := fs.Stat(dir)
	if err != nil {
		return Check{Name: "patch_dir", Message: fmt.Sprintf("%s: %v", dir, err)}
	}
	if !info.IsDir() {
		return Check{Name: "patch_dir", Message: fmt.Sprintf("%s is not a directory", dir)}
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return Check{Name: "patch_dir", Message: fmt.Sprintf("%s: %v", dir, err)}
	}
	visible := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			visible++
		}
	}
	if visible == 0 {
		return Check{
			Name:    "patch_dir",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s has no visible entries", dir),
		}
	}
	return Check{
		Name:    "patch_dir",
		Passed:  true,
		Message: fmt.Sprintf("%s (%d entries)", dir, visible),
	}
}

// checkOutputBase verifies the output folder is writable, or that its
// parent exists so it can be created.
func checkOutputBase(fs afero.Fs, dir string) Check {
	info, err := fs.Stat(dir)
	if os.IsNotExist(err) {
		parent := filepath.Dir(dir)
		if pinfo, perr := fs.Stat(parent); perr == nil && pinfo.IsDir() {
			return Check{
				Name:    "output_dir",
				Passed:  true,
				Warning: true,
				Message: fmt.Sprintf("%s will be created", dir),
			}
		}
		return Check{Name: "output_dir", Message: fmt.Sprintf("%s: parent %s does not exist", dir, parent)}
	}
	if err != nil {
		return Check{Name: "output_dir", Message: fmt.Sprintf("%s: %v", dir, err)}
	}
	if !info.IsDir() {
		return Check{Name: "output_dir", Message: fmt.Sprintf("%s is not a directory", dir)}
	}

	f, err := afero.TempFile(fs, dir, ".aeco-preflight-*")
	if err != nil {
		return Check{Name: "output_dir", Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	name := f.Name()
	f.Close()
	fs.Remove(name)

	return Check{Name: "output_dir", Passed: true, Message: fmt.Sprintf("%s is writable", dir)}
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to check (restricted)",
		}
	}

	actual := int(limit.Cur)
	return Check{
		Name:     "file_descriptors",
		Required: minFileDescriptors,
		Actual:   actual,
		Passed:   actual >= minFileDescriptors,
	}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "patch_dir":
		return "pass an existing AECO patch folder with -patch-dir"
	case "output_dir":
		return "pass a writable folder with -output-dir"
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	default:
		return "see documentation"
	}
}
