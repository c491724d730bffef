// Package osutil holds small OS-level constants shared across packages.
package osutil

import "io/fs"

const (
	// DirPermission is the mode used when creating data directories.
	DirPermission fs.FileMode = 0o755

	// FilePermission is the mode used for the snapshot database file.
	FilePermission fs.FileMode = 0o600
)
