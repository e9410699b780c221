package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/aggregator"
	"github.com/spigell/job-aggregator/internal/cache"
	"github.com/spigell/job-aggregator/internal/filtering"
	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/paging"
	"github.com/spigell/job-aggregator/internal/search"
	"github.com/spigell/job-aggregator/internal/secrets"
	"github.com/spigell/job-aggregator/internal/sources"
)

const credentialsHint = "set the key in the config, point *-file to a file or export the environment variable"

// newService wires sources, aggregator, cache and paginator from the config.
func newService(config *Config, logger *zap.Logger) (*search.Service, error) {
	adapters, err := newAdapters(config.Sources, logger)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no sources are enabled")
	}

	searchCfg := config.Search
	if searchCfg == nil {
		searchCfg = &SearchConfig{}
	}

	steps, err := prepareFilters(searchCfg, logger)
	if err != nil {
		return nil, err
	}

	agg := aggregator.New(adapters,
		aggregator.WithLogger(logger),
		aggregator.WithParallel(searchCfg.Parallel),
		aggregator.WithFilters(&filtering.Config{
			ExcludedCompanies: searchCfg.ExcludeCompanies,
			RedFlags:          searchCfg.RedFlags,
		}, steps...),
	)

	ttl := cache.DefaultTTL
	if config.Cache != nil && config.Cache.TTL > 0 {
		ttl = config.Cache.TTL
	}

	return search.New(agg, cache.New(ttl, cache.WithLogger(logger)),
		search.WithLogger(logger),
		search.WithPaginator(paging.New(searchCfg.PageSize, searchCfg.DiversifyWindow)),
	), nil
}

// prepareFilters builds the default pipeline with the configured steps
// switched off. Dedup and location filtering always run.
func prepareFilters(config *SearchConfig, logger *zap.Logger) ([]filtering.Filter, error) {
	steps := filtering.Default()

	for _, name := range config.DisabledFilters {
		name = strings.TrimSpace(name)
		switch name {
		case "":
			continue
		case filtering.NameDedup, filtering.NameLocation:
			return nil, fmt.Errorf("filter %q cannot be disabled", name)
		}
		if !filtering.DisableByName(steps, name, "disabled in config") {
			return nil, fmt.Errorf("unknown filter %q in search.disabled-filters", name)
		}
	}

	for _, status := range filtering.Describe(steps) {
		logger.Info("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	return steps, nil
}

func newAdapters(config *SourcesConfig, logger *zap.Logger) ([]aggregator.Adapter, error) {
	if config == nil {
		config = &SourcesConfig{}
	}

	client := sources.NewClient(logger, config.Timeout)
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}
	opts := []sources.Option{sources.WithLogger(logger)}

	var adapters []aggregator.Adapter
	add := func(sc *SourceConfig, source sources.Source) {
		adapters = append(adapters, aggregator.Adapter{
			Source:       source,
			Limit:        sc.Limit,
			Delay:        sc.Delay,
			MaxLocations: sc.MaxLocations,
		})
		logger.Debug("source enabled", zap.String("source", source.Name()), zap.Int("limit", sc.Limit), zap.Duration("delay", sc.Delay))
	}

	if sc := config.RemoteOK; enabled(sc) {
		add(sc, sources.NewRemoteOK(client, opts...))
	}

	if sc := config.LinkedIn; enabled(sc) {
		key, err := loadCredential(logger, sources.NameLinkedIn, secrets.Source{
			Name: "linkedin api key", Value: sc.APIKey, File: sc.APIKeyFile, Env: "RAPIDAPI_KEY",
		})
		if err != nil {
			return nil, err
		}
		add(sc, sources.NewLinkedIn(client, key, opts...))
	}

	if sc := config.JSearch; enabled(sc) {
		key, err := loadCredential(logger, sources.NameJSearch, secrets.Source{
			Name: "jsearch api key", Value: sc.APIKey, File: sc.APIKeyFile, Env: "RAPIDAPI_KEY",
		})
		if err != nil {
			return nil, err
		}
		add(sc, sources.NewJSearch(client, key, opts...))
	}

	if sc := config.Adzuna; enabled(sc) {
		appID, err := loadCredential(logger, sources.NameAdzuna, secrets.Source{
			Name: "adzuna app id", Value: sc.AppID, Env: "ADZUNA_APP_ID",
		})
		if err != nil {
			return nil, err
		}
		appKey, err := loadCredential(logger, sources.NameAdzuna, secrets.Source{
			Name: "adzuna app key", Value: sc.AppKey, File: sc.AppKeyFile, Env: "ADZUNA_APP_KEY",
		})
		if err != nil {
			return nil, err
		}
		add(sc, sources.NewAdzuna(client, appID, appKey, sc.Country, opts...))
	}

	return adapters, nil
}

func enabled(sc *SourceConfig) bool {
	return sc != nil && sc.Enabled
}

// loadCredential resolves an optional secret. A missing secret keeps the
// source enabled; its calls then fail with missing credentials.
func loadCredential(logger *zap.Logger, source string, src secrets.Source) (string, error) {
	value, err := secrets.LoadOptional(src)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", src.Name, err)
	}
	if value == "" {
		logger.Warn("credentials are not configured, the source will return no jobs",
			zap.String("source", source),
			zap.String("credential", src.Name),
			zap.String("hint", credentialsHint),
		)
	}
	return value, nil
}

// addProfileFlags registers flags overriding the configured profile.
func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("skills", "", "comma separated skills, overrides profile.skills")
	cmd.Flags().String("roles", "", "comma separated roles, overrides profile.roles")
	cmd.Flags().String("locations", "", "comma separated locations, overrides profile.locations")
	cmd.Flags().String("experience", "", "experience level, overrides profile.experience")
}

// resolveProfile merges the configured profile with command line overrides.
func resolveProfile(cmd *cobra.Command, config *Config) jobs.UserProfile {
	var profile jobs.UserProfile
	if p := config.Profile; p != nil {
		profile = jobs.UserProfile{
			Skills: p.Skills,
			Preferences: jobs.Preferences{
				Roles:      p.Roles,
				Locations:  p.Locations,
				Experience: p.Experience,
			},
		}
	}

	override := func(name string, apply func(string)) {
		if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
			apply(strings.TrimSpace(flag.Value.String()))
		}
	}
	override("skills", func(v string) { profile.Skills = jobs.SplitList(v) })
	override("roles", func(v string) { profile.Preferences.Roles = jobs.SplitList(v) })
	override("locations", func(v string) { profile.Preferences.Locations = jobs.SplitList(v) })
	override("experience", func(v string) { profile.Preferences.Experience = v })

	return profile.Clean()
}
