package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "chewy"
	app.HelpName = "chewy"
	app.Usage = "fit tasks into the free time around your calendar"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path to a YAML config file",
			EnvVar: "CHEWY_CONFIG",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the HTTP API",
			Action: serve,
		},
		{
			Name:  "migrate",
			Usage: "apply database migrations",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "down", Usage: "revert migrations instead"},
			},
			Action: migrate,
		},
		{
			Name:   "sync",
			Usage:  "import calendar events from the calendar directory",
			Action: syncCalendar,
		},
		{
			Name:      "generate",
			Usage:     "generate and store a schedule",
			ArgsUsage: "[--from DATE] [--to DATE]",
			Flags:     windowFlags(cli.BoolFlag{Name: "markdown, m", Usage: "print a rendered markdown summary"}),
			Action:    generate,
		},
		{
			Name:   "agenda",
			Usage:  "browse the stored schedule interactively",
			Flags:  windowFlags(),
			Action: agenda,
		},
		{
			Name:      "hash-password",
			Usage:     "print a bcrypt hash for auth.admin_pass",
			ArgsUsage: "PASSWORD",
			Action:    hashPassword,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "chewy: %v\n", err)
		os.Exit(1)
	}
}

func windowFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		cli.StringFlag{Name: "from", Usage: "window start (RFC3339 or YYYY-MM-DD); defaults to now"},
		cli.StringFlag{Name: "to", Usage: "window end; defaults to from + window_days"},
	}
	return append(flags, extra...)
}
