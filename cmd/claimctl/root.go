package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/claimdesk/internal/adjudication"
	"github.com/opensource-finance/claimdesk/internal/config"
	"github.com/opensource-finance/claimdesk/internal/decision"
	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/repository"
	"github.com/opensource-finance/claimdesk/internal/rules"
	"github.com/opensource-finance/claimdesk/internal/rulestore"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "claimctl",
	Short: "claimctl - operator CLI for claimdesk",
	Long: `claimctl manages a claimdesk deployment from the command line.
It seeds master data, evaluates FNOL payloads against the configured
database and replays payload corpora against a running server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CLAIMDESK_CONFIG"), "path to claimdesk.yaml")
	rootCmd.AddCommand(seedCmd, evaluateCmd, replayCmd)
}

// openService wires the adjudication service the same way the server does,
// without a bus or damage model client.
func openService(ctx context.Context) (*adjudication.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return newService(ctx, cfg)
}

func newService(ctx context.Context, cfg *domain.Config) (*adjudication.Service, func(), error) {
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return nil, nil, fmt.Errorf("open repository: %w", err)
	}

	engine, err := rules.NewEngine()
	if err != nil {
		repo.Close()
		return nil, nil, err
	}

	svc := adjudication.NewService(
		repo,
		// No snapshot cache: a running server detects these writes through
		// the rule tables version, and the CLI always reads fresh tables.
		rulestore.NewLoader(repo, nil, 0),
		decision.NewProcessor(rules.NewFraudEvaluator(engine, nil)),
		nil, nil,
		adjudication.Options{MediaBaseURL: cfg.Server.MediaBaseURL},
	)
	return svc, func() { repo.Close() }, nil
}
