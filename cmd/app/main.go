package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vimwiki2neorg/internal"
	pkgconfig "github.com/starford/vimwiki2neorg/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

// loadConfig reads the config file and applies command-line overrides. The
// default path may be absent; an explicitly named file must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("source") {
		cfg.Source.Root = cmd.String("source")
	}
	if cmd.IsSet("dest") {
		cfg.Dest.Root = cmd.String("dest")
	}
	if cmd.IsSet("manifest") {
		cfg.Manifest.Path = cmd.String("manifest")
	}
	if cmd.IsSet("continue-on-error") {
		cfg.Convert.ContinueOnError = cmd.Bool("continue-on-error")
	}
	if cmd.IsSet("incremental") {
		cfg.Convert.Incremental = cmd.Bool("incremental")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func convert(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	switch cmd.Args().Len() {
	case 0:
	case 2:
		cfg.Source.Root = cmd.Args().Get(0)
		cfg.Dest.Root = cmd.Args().Get(1)
	default:
		return fmt.Errorf("expected SRC and DST arguments, got %d", cmd.Args().Len())
	}

	report, err := internal.Convert(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if report.HasFailures() {
		return fmt.Errorf("convert: %d file(s) failed", len(report.Failed))
	}
	return nil
}

func watch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Watch(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.ServeMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

func backlinks(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one TARGET argument")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sources, err := internal.Backlinks(cmd.Args().First(), internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("backlinks: %w", err)
	}
	for _, s := range sources {
		fmt.Fprintln(os.Stdout, s)
	}
	return nil
}

// treeFlags are set on the root command; cli/v3 flags apply to subcommands
// unless marked Local.
func treeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Usage:   "VimWiki source root (overrides source.root)",
			Sources: cli.EnvVars("VIMWIKI_ROOT"),
		},
		&cli.StringFlag{
			Name:    "dest",
			Aliases: []string{"d"},
			Usage:   "Neorg destination root (overrides dest.root)",
			Sources: cli.EnvVars("NEORG_ROOT"),
		},
		&cli.StringFlag{
			Name:  "manifest",
			Usage: "SQLite manifest path (overrides manifest.path, empty disables)",
		},
		&cli.BoolFlag{
			Name:  "continue-on-error",
			Usage: "Keep converting after a file fails",
		},
		&cli.BoolFlag{
			Name:  "incremental",
			Usage: "Skip files unchanged since the last recorded conversion (needs a manifest)",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:      "vimwiki2neorg",
		Usage:     "Convert a VimWiki tree into a Neorg tree",
		ArgsUsage: "[SRC DST]",
		Action:    convert,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		}, treeFlags()...),
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "Convert every .wiki file once",
				ArgsUsage: "[SRC DST]",
				Action:    convert,
			},
			{
				Name:   "watch",
				Usage:  "Convert, then reconvert files as they change",
				Action: watch,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live conversion events",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "backlinks",
				Usage:     "List source files linking to TARGET (needs a manifest)",
				ArgsUsage: "TARGET",
				Action:    backlinks,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
