// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/julianstephens/church-latin/internal/formatter"
	"github.com/urfave/cli/v3"
)

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a dotenv file with PocketBase credentials",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
}

// seedCommand runs one or more seeders against the backend
func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Create or update course content from JSON fixtures",
		ArgsUsage: "modules|lessons|quizzes|all ...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Delete every record of the collection before seeding",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would change without writing",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every record",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory containing the fixture files (overrides config)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a report file to this path",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format: " + formatList() + " (default: from --report extension)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON instead of the summary",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the run in the local history database",
			},
		},
		Action: r.Seed,
	}
}

// validateCommand checks fixtures offline
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate fixture files without contacting the backend",
		ArgsUsage: "[modules|lessons|quizzes|all ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory containing the fixture files (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Validate,
	}
}

// statusCommand reports backend health and collection sizes
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check backend health and count records per collection",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// historyCommand lists recorded seed runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent seed runs from the local history database",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "seeder",
				Usage: "Only show runs of this seeder",
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show a single run with its errors",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for configuration and the history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent history database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

func formatList() string {
	names := make([]string, 0, len(formatter.Formats))
	for _, f := range formatter.Formats {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
