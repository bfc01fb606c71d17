// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrRootMissing   = errors.New("root directory does not exist")
	ErrOutsideRoot   = errors.New("path escapes root")
	ErrRunInProgress = errors.New("conversion run already in progress")
	ErrNoManifest    = errors.New("manifest is not configured")
)
