//go:build !windows

// Service management stubs for non-Windows platforms. The server runs in
// the foreground here; init integration is the init system's job.

package main

import "errors"

// errServiceUnsupported is returned by every service management command
// on platforms without SCM integration.
var errServiceUnsupported = errors.New("service management is only available on Windows; use your init system to run 'adei serve'")

// RunAsService reports false so the application runs in the foreground.
func RunAsService() (bool, error) {
	return false, nil
}

// InstallService is unsupported on this platform.
func InstallService() error { return errServiceUnsupported }

// UninstallService is unsupported on this platform.
func UninstallService() error { return errServiceUnsupported }

// StartService is unsupported on this platform.
func StartService() error { return errServiceUnsupported }

// StopService is unsupported on this platform.
func StopService() error { return errServiceUnsupported }

// RestartService is unsupported on this platform.
func RestartService() error { return errServiceUnsupported }

// ServiceStatus is unsupported on this platform.
func ServiceStatus() (string, error) { return "", errServiceUnsupported }
