package overseer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// CheckCommands verifies that every worker's program can be executed and
// that its script exists and is readable. All specs are checked; the
// returned *MissingCommandsError lists every failure.
func CheckCommands(specs []WorkerSpec) error {
	var missing []MissingCommand
	for _, spec := range specs {
		if path, err := resolveProgram(spec); err != nil {
			missing = append(missing, MissingCommand{Worker: spec.Name, Path: path, Err: err})
		}
		if spec.Script == "" {
			continue
		}
		script := inDir(spec.Dir, spec.Script)
		if err := checkReadable(script); err != nil {
			missing = append(missing, MissingCommand{Worker: spec.Name, Path: script, Err: err})
		}
	}
	if len(missing) > 0 {
		return &MissingCommandsError{Missing: missing}
	}
	return nil
}

func resolveProgram(spec WorkerSpec) (string, error) {
	if !strings.ContainsRune(spec.Program, filepath.Separator) {
		path, err := exec.LookPath(spec.Program)
		if err != nil {
			return spec.Program, err
		}
		return path, nil
	}
	path := inDir(spec.Dir, spec.Program)
	info, err := os.Stat(path)
	if err != nil {
		return path, err
	}
	if info.IsDir() {
		return path, fmt.Errorf("is a directory")
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return path, fmt.Errorf("not executable: %w", err)
	}
	return path, nil
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.ErrNotExist
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return fmt.Errorf("not readable: %w", err)
	}
	return nil
}

// inDir resolves a relative path against the worker's working directory,
// which is also what the child process will see.
func inDir(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
