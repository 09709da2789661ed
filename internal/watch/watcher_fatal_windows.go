// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// isFatalWatchError classifies fsnotify errors that mean the watcher is
// fundamentally broken and cannot recover. On Windows these correspond
// to handle and resource exhaustion.
func isFatalWatchError(err error) bool {
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
