// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// rootCommand builds the weekly playlist; its only flag selects the week.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scarchive",
		Usage: "Archive a week of SoundCloud favorites into a playlist",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "week",
				Aliases: []string{"w"},
				Usage:   "Week relative to the current ISO week (0 current, -1 previous)",
				Value:   0,
			},
		},
		Action:   r.Weekly,
		Commands: r.register(),
	}
}

// setupCommand writes the configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config.toml from the example configuration or a browser request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "curl-file",
				Usage: "Path to .sh file containing a SoundCloud API request copied as cURL",
			},
		},
		Action: r.Setup,
	}
}
