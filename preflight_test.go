package overseer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCommands(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "worker.py")
	require.NoError(t, os.WriteFile(script, []byte("print('hi')\n"), 0o644))
	program := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(program, []byte("#!/bin/sh\n"), 0o755))
	plain := filepath.Join(dir, "plain.sh")
	require.NoError(t, os.WriteFile(plain, []byte("#!/bin/sh\n"), 0o644))

	t.Run("all present", func(t *testing.T) {
		err := CheckCommands([]WorkerSpec{
			{Name: "path", Program: "sh", Script: script},
			{Name: "relative", Program: "sh", Script: "worker.py", Dir: dir},
			{Name: "binary", Program: program},
			{Name: "relative-binary", Program: "./run.sh", Dir: dir},
		})
		assert.NoError(t, err)
	})

	t.Run("every failure is reported", func(t *testing.T) {
		err := CheckCommands([]WorkerSpec{
			{Name: "weather", Program: "sh", Script: filepath.Join(dir, "weather_display.py")},
			{Name: "led", Program: "no-such-interpreter-xyz", Script: script},
			{Name: "plain", Program: plain},
			{Name: "dir", Program: "sh", Script: dir},
		})

		var missing *MissingCommandsError
		require.ErrorAs(t, err, &missing)
		require.Len(t, missing.Missing, 4)
		assert.Equal(t, "weather", missing.Missing[0].Worker)
		assert.Equal(t, filepath.Join(dir, "weather_display.py"), missing.Missing[0].Path)
		assert.ErrorIs(t, missing.Missing[0].Err, os.ErrNotExist)
		assert.Equal(t, "no-such-interpreter-xyz", missing.Missing[1].Path)
		assert.Equal(t, "plain", missing.Missing[2].Worker)
		assert.Equal(t, "dir", missing.Missing[3].Worker)
		assert.Contains(t, err.Error(), "weather")
	})
}
