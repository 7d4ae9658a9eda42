package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func serviceCommand() *cli.Command {
	return &cli.Command{
		Name:      "service",
		Usage:     "Manage the Windows service registration",
		UsageText: "adei service <install|uninstall|start|stop|restart|status>",
		Description: "Registers or controls the ADEI Explorer Windows service, which\n" +
			"runs the web server under the service control manager with\n" +
			"automatic start. On other platforms these commands report an\n" +
			"error; use the init system directly there.",
		Subcommands: []*cli.Command{
			{
				Name:   "install",
				Usage:  "register the service with automatic start",
				Action: func(*cli.Context) error { return InstallService() },
			},
			{
				Name:    "uninstall",
				Aliases: []string{"remove"},
				Usage:   "remove the service registration",
				Action:  func(*cli.Context) error { return UninstallService() },
			},
			{
				Name:   "start",
				Usage:  "start the installed service",
				Action: func(*cli.Context) error { return StartService() },
			},
			{
				Name:   "stop",
				Usage:  "stop the running service",
				Action: func(*cli.Context) error { return StopService() },
			},
			{
				Name:   "restart",
				Usage:  "restart the service",
				Action: func(*cli.Context) error { return RestartService() },
			},
			{
				Name:  "status",
				Usage: "show whether the service is running",
				Action: func(*cli.Context) error {
					status, err := ServiceStatus()
					if err != nil {
						return err
					}
					fmt.Println(status)
					return nil
				},
			},
		},
	}
}
