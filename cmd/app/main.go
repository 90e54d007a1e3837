package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/cardbind/internal"
	"github.com/starford/cardbind/internal/cardservice"
	"github.com/starford/cardbind/internal/jsonvalue"
	pkgconfig "github.com/starford/cardbind/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func render(ctx context.Context, cmd *cli.Command) error {
	bundle := cmd.Args().First()
	if bundle == "" {
		return fmt.Errorf("render: bundle name is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req := cardservice.OpenRequest{
		Bundle:    bundle,
		Locale:    cmd.String("locale"),
		ColorMode: cmd.String("color-mode"),
		Width:     int(cmd.Int("width")),
		Height:    int(cmd.Int("height")),
		Density:   cmd.Float("density"),
	}
	if raw := cmd.String("data"); raw != "" {
		data, err := jsonvalue.Parse([]byte(raw))
		if err != nil || !data.IsObject() {
			return fmt.Errorf("render: --data must be a JSON object")
		}
		req.Data = data
	}

	cmds, err := internal.Render(ctx, req, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cmds)
}

func main() {
	cmd := &cli.Command{
		Name:   "cardbind",
		Usage:  "Headless card renderer: binds bundle data into templates and streams DOM commands",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("CARDBIND_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream and bundle watcher",
				Action: serve,
			},
			{
				Name:      "render",
				Usage:     "Render a bundle once and print its DOM commands as JSON",
				ArgsUsage: "<bundle>",
				Action:    render,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "locale", Usage: "BCP 47 locale (default from config)"},
					&cli.StringFlag{Name: "color-mode", Usage: "light or dark"},
					&cli.IntFlag{Name: "width", Usage: "Surface width in px"},
					&cli.IntFlag{Name: "height", Usage: "Surface height in px"},
					&cli.FloatFlag{Name: "density", Usage: "Device pixel density"},
					&cli.StringFlag{Name: "data", Usage: "JSON object merged into the card data"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve card tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
