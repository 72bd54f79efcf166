package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/promptdb/internal"
	"github.com/starford/promptdb/internal/parser"
	"github.com/starford/promptdb/internal/proof"
	"github.com/starford/promptdb/internal/store"
	pkgconfig "github.com/starford/promptdb/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	loaded, err := pkgconfig.LoadOrDefault(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !loaded {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
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
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// verify scores a proof given as a hex argument or read raw from --file.
func verify(_ context.Context, cmd *cli.Command) error {
	var blob []byte
	switch path := cmd.String("file"); {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read proof: %w", err)
		}
		blob = data
	case cmd.Args().Len() == 1:
		data, err := parser.DecodeProof(cmd.Args().First())
		if err != nil {
			return err
		}
		blob = data
	default:
		return fmt.Errorf("verify: expected one hex proof argument or --file")
	}

	dec, err := proof.DecoderFor(cmd.String("decoder"))
	if err != nil {
		return err
	}
	st := store.Open(store.WithDecoder(dec), store.WithLogger(slog.New(slog.DiscardHandler)))
	defer st.Close()

	res := st.VerifyProof(blob).Model()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Status.OK() {
		return fmt.Errorf("proof rejected: %s", res.Status)
	}
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "promptdb",
		Usage:  "Validated ingestion with provenance and PROMPT-scored proofs",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the REST API, SSE events and spool watcher",
				Flags:  []cli.Flag{configFlag},
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Flags:  []cli.Flag{configFlag},
				Action: serveMCP,
			},
			{
				Name:      "verify",
				Usage:     "Score a proof blob and print the result as JSON",
				ArgsUsage: "[hex]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "Read the raw proof blob from a file",
					},
					&cli.StringFlag{
						Name:  "decoder",
						Usage: "Proof decoder (raw or cbor)",
						Value: internal.ProofDecoderRaw,
					},
				},
				Action: verify,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
