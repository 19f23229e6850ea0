package fsutil

import (
	"fmt"
	"os"
)

// WriteFileAtomic writes data to a temporary file next to name and
// renames it into place, so a crash mid-write never leaves a partial
// file at name.
func WriteFileAtomic(fsys FileSystem, name string, data []byte, perm os.FileMode) error {
	tmp := name + ".tmp"
	if err := fsys.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, name); err != nil {
		fsys.Remove(tmp)
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, name, err)
	}
	return nil
}
