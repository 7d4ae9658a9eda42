//go:build windows

// Windows service support via github.com/kardianos/service. The service
// runs the same server as 'adei serve' with the lifecycle driven by the
// service control manager instead of OS signals.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kardianos/service"

	"adei_backend/core"
	"adei_backend/logging"
)

// stopWait bounds how long Stop waits for the server to drain before
// reporting failure to the service manager.
const stopWait = 30 * time.Second

// Program implements service.Interface. Start launches the server in a
// goroutine and returns immediately, as the SCM requires; Stop cancels
// the context and waits for a clean exit.
type Program struct {
	ctx    context.Context
	cancel context.CancelFunc
	exit   chan struct{}
}

// Start is called when the service is started.
func (p *Program) Start(s service.Service) error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.exit = make(chan struct{})

	go p.run()

	return nil
}

// Stop is called when the service is stopped.
func (p *Program) Stop(s service.Service) error {
	p.cancel()

	select {
	case <-p.exit:
	case <-time.After(stopWait):
		return fmt.Errorf("timeout waiting for server to stop")
	}

	return nil
}

// run boots the server exactly as the serve command does. Configuration
// and logging come from the environment since there is no CLI here.
func (p *Program) run() {
	defer close(p.exit)

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return
	}

	log, err := logging.NewLogger(cfg.Development, cfg.LogFilePath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return
	}
	defer syncLogger(log)

	if err := runServer(p.ctx, cfg, log); err != nil {
		log.Errorw("Service run failed", "error", err.Error())
	}
}

// serviceConfig returns the SCM registration for the ADEI Explorer.
func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "ADEIExplorer",
		DisplayName: "ADEI Explorer Service",
		Description: "Serves the OIC Digital Economy Index dashboard and chat agent",
		Arguments:   []string{"serve"},
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

// newService builds the kardianos service handle shared by every
// management command.
func newService() (service.Service, error) {
	s, err := service.New(&Program{}, serviceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

// RunAsService runs the server under the service control manager.
// Returns true if running as a service, false if running interactively.
func RunAsService() (bool, error) {
	s, err := newService()
	if err != nil {
		return false, err
	}

	if service.Interactive() {
		return false, nil
	}

	if err := s.Run(); err != nil {
		return true, fmt.Errorf("service run failed: %w", err)
	}

	return true, nil
}

// InstallService registers the application as a Windows service.
func InstallService() error {
	s, err := newService()
	if err != nil {
		return err
	}

	if err := s.Install(); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}

	fmt.Println("Service installed successfully")
	return nil
}

// UninstallService removes the Windows service.
func UninstallService() error {
	s, err := newService()
	if err != nil {
		return err
	}

	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}

	fmt.Println("Service uninstalled successfully")
	return nil
}

// StartService starts the Windows service.
func StartService() error {
	s, err := newService()
	if err != nil {
		return err
	}

	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	fmt.Println("Service started successfully")
	return nil
}

// StopService stops the Windows service.
func StopService() error {
	s, err := newService()
	if err != nil {
		return err
	}

	if err := s.Stop(); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}

	fmt.Println("Service stopped successfully")
	return nil
}

// RestartService stops and then starts the Windows service.
func RestartService() error {
	s, err := newService()
	if err != nil {
		return err
	}

	if err := s.Restart(); err != nil {
		return fmt.Errorf("failed to restart service: %w", err)
	}

	fmt.Println("Service restarted successfully")
	return nil
}

// ServiceStatus reports the current service state as a display string.
func ServiceStatus() (string, error) {
	s, err := newService()
	if err != nil {
		return "", err
	}

	status, err := s.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get service status: %w", err)
	}

	switch status {
	case service.StatusRunning:
		return "Service is running", nil
	case service.StatusStopped:
		return "Service is stopped", nil
	default:
		return "Service status unknown", nil
	}
}
