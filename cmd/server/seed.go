package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/samber/do"
	"github.com/serroba/speedsearch/internal/container"
	"github.com/serroba/speedsearch/internal/search"
	"github.com/serroba/speedsearch/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const seedTimeout = 5 * time.Minute

// seedCommand loads a word list into both term indexes.
func seedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load terms from a word list into the Redis and PostgreSQL indexes",
		Args:  cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
			path, _ := cmd.Flags().GetString("file")

			if err := seed(cmd.Context(), path, options); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}),
	}

	cmd.Flags().StringP("file", "f", "", "Word list, one term per line; # starts a comment")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func seed(ctx context.Context, path string, options *container.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	injector := do.New()
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.TermIndexPackage(injector)

	defer func() { _ = injector.Shutdown() }()

	logger := do.MustInvoke[*zap.Logger](injector)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	set, err := search.ReadTermSet(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	entries := set.Entries()

	pgIndex := do.MustInvoke[*store.PostgresTermIndex](injector)
	if err := pgIndex.Migrate(ctx); err != nil {
		return err
	}

	targets := []struct {
		engine search.Engine
		load   func(context.Context, []search.Entry) error
	}{
		{search.EngineRedis, do.MustInvoke[*store.RedisTermIndex](injector).Load},
		{search.EnginePostgres, pgIndex.Load},
	}

	for _, target := range targets {
		start := time.Now()

		if err := target.load(ctx, entries); err != nil {
			return fmt.Errorf("seed %s: %w", target.engine, err)
		}

		logger.Info("term index seeded",
			zap.String("engine", string(target.engine)),
			zap.Int("entries", len(entries)),
			zap.Duration("took", time.Since(start)),
		)
	}

	return nil
}
