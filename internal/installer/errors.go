package installer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInstalled is returned when uninstalling a name the registry does
	// not know.
	ErrNotInstalled = errors.New("plugin is not installed")
	// ErrGateBlocked is returned when a before-install or before-uninstall
	// hook refused.
	ErrGateBlocked = errors.New("blocked by plugin hook")
)

// InstallFailedError is the terminal error of an install pipeline.
type InstallFailedError struct {
	Plugin string
	Err    error
}

func (e *InstallFailedError) Error() string {
	return fmt.Sprintf("install %s failed: %v", e.Plugin, e.Err)
}

func (e *InstallFailedError) Unwrap() error { return e.Err }

// UninstallFailedError is the terminal error of an uninstall pipeline.
type UninstallFailedError struct {
	Plugin string
	Err    error
}

func (e *UninstallFailedError) Error() string {
	return fmt.Sprintf("uninstall %s failed: %v", e.Plugin, e.Err)
}

func (e *UninstallFailedError) Unwrap() error { return e.Err }

func errPreInstall() error   { return fmt.Errorf("pre-install check failed: %w", ErrGateBlocked) }
func errPreUninstall() error { return fmt.Errorf("pre-uninstall check failed: %w", ErrGateBlocked) }
