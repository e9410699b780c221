package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/export"
	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/logger"
	"github.com/spigell/job-aggregator/internal/search"
)

const (
	PromptNext     = "Next page"
	PromptPrevious = "Previous page"
	PromptExport   = "Export"
	PromptQuit     = "Quit"
)

var errExit = errors.New("exit requested")

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search jobs for the configured profile and browse them page by page",
	Run: func(cmd *cobra.Command, _ []string) {
		runSearch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	addProfileFlags(searchCmd)
	searchCmd.Flags().IntP("page", "p", 1, "page to start with")
}

func runSearch(cmd *cobra.Command) {
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

	logger.Info("starting the search",
		zap.Strings("roles", profile.Preferences.Roles),
		zap.Strings("locations", profile.Preferences.Locations),
	)

	page, _ := cmd.Flags().GetInt("page")
	for {
		result, err := svc.Search(ctx, profile, page)
		if err != nil {
			logger.Fatal("searching jobs", zap.Error(err))
		}

		if result.Total == 0 {
			logger.Info("exiting", zap.String("reason", "no jobs found"))
			return
		}

		printPage(logger, result)

		next, err := promptAction(ctx, promptSelect, svc, logger, profile, result)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
		page = next
	}
}

// selectFunc shows a menu and returns the chosen item.
type selectFunc func(label string, items []string) (string, error)

func promptSelect(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
	}

	_, action, err := prompt.Run()
	return action, err
}

// pageOffset is the number of jobs listed before the current page. Only
// the last page may be short.
func pageOffset(result *search.Result) int {
	if result.HasNext {
		return (result.Page.Page - 1) * len(result.Jobs)
	}
	return result.Total - len(result.Jobs)
}

func menuItems(result *search.Result) []string {
	var items []string
	if result.HasNext {
		items = append(items, PromptNext)
	}
	if result.HasPrev {
		items = append(items, PromptPrevious)
	}
	return append(items, PromptExport, PromptQuit)
}

func printPage(logger *zap.Logger, result *search.Result) {
	offset := pageOffset(result)

	for idx, job := range result.Jobs {
		logger.Info(fmt.Sprintf("%d. %s at %s", offset+idx+1, job.Title, job.Company),
			zap.String("location", job.Location),
			zap.String("salary", job.Salary),
			zap.Int("match_score", job.MatchScore),
			zap.String("source", job.Source),
			zap.String("link", job.Link),
		)
	}

	logger.Info("current page",
		zap.Int("page", result.Page.Page),
		zap.Int("total_pages", result.TotalPages),
		zap.Int("total_jobs", result.Total),
		zap.Bool("cached", result.Cached),
	)
}

// promptAction asks what to do next and returns the page to show.
func promptAction(ctx context.Context, choose selectFunc, svc *search.Service, logger *zap.Logger, profile jobs.UserProfile, result *search.Result) (int, error) {
	items := menuItems(result)
	label := fmt.Sprintf("Page %d of %d. Proceed?", result.Page.Page, result.TotalPages)

	for {
		action, err := choose(label, items)
		if err != nil {
			return 0, err
		}

		switch action {
		case PromptNext:
			return result.Page.Page + 1, nil
		case PromptPrevious:
			return result.Page.Page - 1, nil
		case PromptExport:
			all, err := svc.All(ctx, profile)
			if err != nil {
				return 0, fmt.Errorf("collecting jobs for export: %w", err)
			}
			jsonPath, csvPath, err := export.Build(profile, all, time.Now()).DumpToTmpFile()
			if err != nil {
				return 0, fmt.Errorf("dump results to file: %w", err)
			}
			logger.Info("dumping result to file", zap.String("json", jsonPath), zap.String("csv", csvPath))
		case PromptQuit:
			logger.Info("exiting", zap.String("reason", "got quit from prompt"))
			return 0, errExit
		default:
			return 0, fmt.Errorf("invalid action: %s", action)
		}
	}
}
