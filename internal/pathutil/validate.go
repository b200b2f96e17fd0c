// Package pathutil validates and redacts filesystem paths before file
// operations touch them.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath shortens a path to .../<parent>/<base> so error messages and
// audit records do not leak full directory layouts.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ValidatePath checks that path resolves inside one of the allowed
// directories. Symlinks are resolved on the deepest existing ancestor, so a
// directory inside the allowed tree that links outside it is rejected, and
// the target file itself does not have to exist yet.
func ValidatePath(path string, allowed []string) error {
	if path == "" {
		return fmt.Errorf("path validation failed: path is empty")
	}
	if len(allowed) == 0 {
		return fmt.Errorf("path validation failed: no allowed directories configured")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	resolvedDir, err := resolveDeepest(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	resolved := filepath.Join(resolvedDir, filepath.Base(abs))

	for _, dir := range allowed {
		dirAbs, err := filepath.Abs(filepath.Clean(dir))
		if err != nil {
			continue
		}
		dirResolved, err := resolveDeepest(dirAbs)
		if err != nil {
			continue
		}
		if within(resolved, dirResolved) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(abs))
}

// resolveDeepest resolves symlinks on the deepest existing ancestor of dir
// and re-appends the not-yet-existing tail.
func resolveDeepest(dir string) (string, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}
	resolvedParent, err := resolveDeepest(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// within reports whether path equals base or sits below it. The trailing
// separator keeps "/tmp/foo" from matching "/tmp/foobar".
func within(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}
