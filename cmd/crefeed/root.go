package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"crefeed/internal/agent"
	"crefeed/internal/config"
	"crefeed/internal/marketdata"
	"crefeed/internal/notify"
	"crefeed/internal/pipeline"
	"crefeed/internal/poster"
	"crefeed/internal/queue"
	"crefeed/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// commandTimeout bounds one-shot CLI operations end to end.
const commandTimeout = 120 * time.Second

// app holds the wired pipeline shared across subcommands.
type app struct {
	cfg       config.Pipeline
	pipeline  *pipeline.Pipeline
	scheduler *pipeline.Scheduler
}

func (a *app) init(configPath string) error {
	creds := config.LoadCredentials()

	cfg, err := config.LoadPipeline(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	store, err := queue.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}

	provider := marketdata.NewProvider(creds.FREDKey)
	contentAgent := agent.New(creds.OpenAIKey, provider, cfg.Topics)
	socialPoster := poster.New(creds.LinkedInToken, creds.Twitter, cfg.DataDir)
	notifier := notify.New(creds.TelegramToken, creds.TelegramChat)

	a.pipeline = pipeline.New(contentAgent, store, socialPoster, notifier, cfg)
	a.scheduler = pipeline.NewScheduler(a.pipeline)

	if !contentAgent.HasLLM() {
		log.Info().Msg("no LLM credential configured, using fallback templates")
	}
	return nil
}

// Execute builds and runs the CLI.
func Execute() error {
	a := &app{}
	var configPath string

	root := &cobra.Command{
		Use:           "crefeed",
		Short:         "CRE content automation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "pipeline.yaml", "pipeline config file")

	root.AddCommand(
		generateCmd(a),
		queueCmd(a),
		postCmd(a),
		runCmd(a),
		serveCmd(a),
		dataCmd(a),
		statsCmd(a),
	)
	return root.Execute()
}

func generateCmd(a *app) *cobra.Command {
	var kind, topic string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one piece of content and queue it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			path, err := a.pipeline.GenerateAndQueue(ctx, a.pipeline.ResolveKind(kind), topic)
			if err != nil {
				return err
			}
			item, err := a.pipeline.Store().Read(path)
			if err != nil {
				return err
			}

			fmt.Printf("Generated: %s\n", item.Title)
			fmt.Printf("File: %s\n\n", path)
			fmt.Println(item.Body)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", pipeline.KindAuto, "content kind (short_post, long_article, auto)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic override (default: rotation)")
	return cmd
}

func queueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List the content queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.pipeline.Store().List()
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No content in queue")
				return nil
			}
			for i, item := range items {
				fmt.Printf("%d. %s\n", i+1, item.Title)
				fmt.Printf("   Created: %s | Status: %s\n", item.Created.Format("2006-01-02 15:04:05"), item.Status)
				fmt.Printf("   File: %s\n", filepath.Base(item.Path))
			}
			return nil
		},
	}
}

func postCmd(a *app) *cobra.Command {
	var platforms []string
	cmd := &cobra.Command{
		Use:   "post <file>",
		Short: "Post a queued record to social platforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			path := args[0]
			if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
				path = filepath.Join(a.pipeline.Store().Dir(), path)
			}

			results, err := a.pipeline.PostQueued(ctx, path, platforms)
			if err != nil {
				return err
			}
			for platform, result := range results {
				if result.Success {
					fmt.Printf("✅ %s: posted, id %s\n", platform, result.PostID)
				} else {
					fmt.Printf("❌ %s: %s\n", platform, result.ErrorMessage)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "platforms to post to (default: the record's own list)")
	return cmd
}

func runCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daily scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.scheduler.Start(); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			a.scheduler.Stop()
			return nil
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.ServerAddr
			}
			handler := server.NewHandler(a.pipeline, a.scheduler)
			log.Info().Str("addr", addr).Msg("dashboard API listening")
			return handler.Router().Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func dataCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "data",
		Short: "Fetch and print the current market data summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			summary := a.pipeline.Agent().MarketSummary(ctx)
			if summary == "" {
				fmt.Println("No market data available")
				return nil
			}
			fmt.Println(summary)
			return nil
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show posting statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.pipeline.Poster().Stats(days)
			if err != nil {
				return err
			}
			fmt.Printf("Posting statistics (last %d days)\n", days)
			fmt.Printf("Total: %d | Successful: %d | Failed: %d | Success rate: %.1f%%\n",
				stats.TotalPosts, stats.SuccessfulPosts, stats.FailedPosts, stats.SuccessRate)
			for platform, breakdown := range stats.Platforms {
				fmt.Printf("  %s: %d/%d\n", platform, breakdown.Successful, breakdown.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "window in days")
	return cmd
}
