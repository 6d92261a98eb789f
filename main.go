package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var (
	version = "dev"

	configPath string
	logLevel   string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "path of the YAML config file (default: user config dir)",
			Destination: &configPath,
		},
		cli.StringFlag{
			Name:        "log-level, l",
			Usage:       "debug, info, warn or error (default: from config)",
			Destination: &logLevel,
		},
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "remindkeeper:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "remindkeeper"
	app.Usage = "keeps a precisely timed reminder armed for every upcoming calendar event"
	app.Version = version
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "start the reminder daemon with its tray icon",
			Action: runDaemon,
		},
		{
			Name:   "calendars",
			Usage:  "list the configured calendars and whether they can be read",
			Action: listCalendars,
		},
		{
			Name:   "events",
			Usage:  "list upcoming events and the reminders they need",
			Action: listEvents,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "final-offset, f",
					Usage: "final reminder offset in minutes, negative disables it",
					Value: 1,
				},
				cli.IntFlag{
					Name:  "limit, n",
					Usage: "maximum number of events to print",
					Value: 50,
				},
			},
		},
	}
	app.Action = runDaemon
	return app
}
