package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	pkgconfig "github.com/starford/folio/pkg/config"
)

var version = "dev"

// options loads the config named by --config. A missing file means
// defaults; a present but invalid one is an error.
func options(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if p := cmd.String("library"); p != "" {
		cfg.Library.Path = p
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("%s: missing <%s> argument", cmd.Name, name)
	}
	return v, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "folio",
		Usage:   "Local-first writing library: projects, series, manuscripts and a shared codex on plain files",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "library",
				Aliases: []string{"l"},
				Usage:   "Library directory (overrides library.path)",
				Sources: cli.EnvVars("FOLIO_LIBRARY"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and library watcher (default)",
				Action: serve,
			},
			{
				Name:  "mcp",
				Usage: "Serve MCP tools over stdio",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.RunMCP(ctx, opts...)
				},
			},
			{
				Name:      "export-project",
				Usage:     "Write a project backup into the project's exports directory",
				ArgsUsage: "<project id or path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ref, err := requireArg(cmd, "project")
					if err != nil {
						return err
					}
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					file, err := internal.ExportProject(ctx, ref, opts...)
					if err != nil {
						return err
					}
					fmt.Println(file)
					return nil
				},
			},
			{
				Name:      "export-text",
				Usage:     "Write a project's manuscript as plain text into its exports directory",
				ArgsUsage: "<project id or path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ref, err := requireArg(cmd, "project")
					if err != nil {
						return err
					}
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					file, err := internal.ExportText(ctx, ref, opts...)
					if err != nil {
						return err
					}
					fmt.Println(file)
					return nil
				},
			},
			{
				Name:      "export-series",
				Usage:     "Write a backup of a series and all its projects",
				ArgsUsage: "<series id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireArg(cmd, "series id")
					if err != nil {
						return err
					}
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					file, err := internal.ExportSeries(ctx, id, opts...)
					if err != nil {
						return err
					}
					fmt.Println(file)
					return nil
				},
			},
			{
				Name:      "import-series",
				Usage:     "Import a series backup file as a new series",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					file, err := requireArg(cmd, "file")
					if err != nil {
						return err
					}
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					res, err := internal.ImportSeries(ctx, file, opts...)
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "import-project",
				Usage:     "Import a project backup file into an existing series",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "series", Usage: "Target series id", Required: true},
					&cli.StringFlag{Name: "index", Usage: "Series index of the imported project"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					file, err := requireArg(cmd, "file")
					if err != nil {
						return err
					}
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					p, err := internal.ImportProject(ctx, file, cmd.String("series"), cmd.String("index"), opts...)
					if err != nil {
						return err
					}
					return printJSON(p)
				},
			},
			{
				Name:  "reindex",
				Usage: "Rebuild the search index from the library",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					n, err := internal.Reindex(ctx, opts...)
					if err != nil {
						return err
					}
					fmt.Printf("indexed %d documents\n", n)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
