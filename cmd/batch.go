package cmd

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/export"
	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/logger"
	"github.com/spigell/job-aggregator/internal/scheduler"
	"github.com/spigell/job-aggregator/internal/search"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the configured search and export the results to JSON and CSV",
	Run: func(cmd *cobra.Command, _ []string) {
		batch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addProfileFlags(batchCmd)
	batchCmd.Flags().StringP("output", "o", "", "output file, the CSV is written next to it (default comprehensive_job_results.json)")
	batchCmd.Flags().StringP("schedule", "s", "", "cron spec to repeat the export, e.g. \"@every 6h\"")

	viper.BindPFlag("export.output", batchCmd.Flags().Lookup("output"))
	viper.BindPFlag("export.schedule", batchCmd.Flags().Lookup("schedule"))
}

func batch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), logger.WithInitialFields(zap.String("command", cmd.Name())))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config.Export == nil {
		config.Export = &ExportConfig{}
	}

	profile := resolveProfile(cmd, config)
	if err := profile.Validate(); err != nil {
		logger.Fatal("invalid profile", zap.Error(err),
			zap.String("hint", "fill the profile section of the config or pass --skills, --roles and --locations"),
		)
	}

	svc, err := newService(config, logger)
	if err != nil {
		logger.Fatal("building the search service", zap.Error(err))
	}

	job := func(ctx context.Context) error {
		return exportOnce(ctx, svc, logger, profile, config.Export.Output)
	}

	if config.Export.Schedule == "" {
		if err := job(ctx); err != nil {
			logger.Fatal("exporting jobs", zap.Error(err))
		}
		return
	}

	s := scheduler.New(config.Export.Schedule, job, logger)
	if err := s.Start(ctx); err != nil {
		logger.Fatal("starting the scheduler", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("stopping", zap.String("reason", "got a signal"))
	s.Stop()
}

// exportOnce runs a fresh search so scheduled runs never reuse stale results.
func exportOnce(ctx context.Context, svc *search.Service, logger *zap.Logger, profile jobs.UserProfile, output string) error {
	svc.ClearCache()

	ranked, err := svc.All(ctx, profile)
	if err != nil {
		return fmt.Errorf("searching jobs: %w", err)
	}

	report := export.Build(profile, ranked, time.Now())
	jsonPath, csvPath, err := report.WriteFiles(output)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	report.Log(logger, export.ReportLimit)
	logger.Info("results exported", zap.String("json", jsonPath), zap.String("csv", csvPath), zap.Int("csv_rows", min(len(ranked), export.CSVLimit)))
	return nil
}
