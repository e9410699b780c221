package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-aggregator/internal/server"
)

const (
	app = "job-aggregator"
)

type Config struct {
	Profile *ProfileConfig `mapstructure:"profile"`
	Server  server.Config  `mapstructure:"server"`
	Cache   *CacheConfig   `mapstructure:"cache"`
	Search  *SearchConfig  `mapstructure:"search"`
	Sources *SourcesConfig `mapstructure:"sources"`
	Export  *ExportConfig  `mapstructure:"export"`
}

// ProfileConfig is the search run by the search and batch commands.
type ProfileConfig struct {
	Skills     []string `mapstructure:"skills"`
	Roles      []string `mapstructure:"roles"`
	Locations  []string `mapstructure:"locations"`
	Experience string   `mapstructure:"experience"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type SearchConfig struct {
	PageSize         int      `mapstructure:"page-size"`
	DiversifyWindow  int      `mapstructure:"diversify-window"`
	Parallel         bool     `mapstructure:"parallel"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	RedFlags         []string `mapstructure:"red-flags"`
	DisabledFilters  []string `mapstructure:"disabled-filters"`
}

type SourcesConfig struct {
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RemoteOK  *SourceConfig `mapstructure:"remoteok"`
	LinkedIn  *SourceConfig `mapstructure:"linkedin"`
	JSearch   *SourceConfig `mapstructure:"jsearch"`
	Adzuna    *SourceConfig `mapstructure:"adzuna"`
}

type SourceConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Delay        time.Duration `mapstructure:"delay"`
	Limit        int           `mapstructure:"limit"`
	MaxLocations int           `mapstructure:"max-locations"`
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	AppID        string        `mapstructure:"app-id"`
	AppKey       string        `mapstructure:"app-key"`
	AppKeyFile   string        `mapstructure:"app-key-file"`
	Country      string        `mapstructure:"country"`
}

type ExportConfig struct {
	Output   string `mapstructure:"output"`
	Schedule string `mapstructure:"schedule"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-aggregator collects job postings from several job boards, scores them against a profile and serves them page by page",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-aggregator.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// setDefaults mirrors the rate limits and page sizes each board tolerates.
func setDefaults() {
	viper.SetDefault("server.addr", ":3000")
	viper.SetDefault("server.allow-origins", []string{"*"})
	viper.SetDefault("server.read-timeout", 60*time.Second)
	viper.SetDefault("server.write-timeout", 120*time.Second)

	viper.SetDefault("cache.ttl", 15*time.Minute)

	viper.SetDefault("search.page-size", 20)
	viper.SetDefault("search.diversify-window", 20)
	viper.SetDefault("search.parallel", false)

	viper.SetDefault("sources.timeout", 15*time.Second)

	viper.SetDefault("sources.remoteok.enabled", true)
	viper.SetDefault("sources.remoteok.delay", time.Second)
	viper.SetDefault("sources.remoteok.limit", 15)

	viper.SetDefault("sources.linkedin.enabled", true)
	viper.SetDefault("sources.linkedin.delay", 2*time.Second)
	viper.SetDefault("sources.linkedin.limit", 8)
	viper.SetDefault("sources.linkedin.max-locations", 2)

	viper.SetDefault("sources.jsearch.enabled", true)
	viper.SetDefault("sources.jsearch.delay", 2*time.Second)
	viper.SetDefault("sources.jsearch.limit", 10)

	viper.SetDefault("sources.adzuna.enabled", true)
	viper.SetDefault("sources.adzuna.delay", time.Second)
	viper.SetDefault("sources.adzuna.limit", 5)
	viper.SetDefault("sources.adzuna.country", "us")

	viper.SetDefault("export.output", "comprehensive_job_results.json")
}

func initConfig() {
	// .env is optional and only fills variables that are not set yet.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The default config file is optional; an explicit one must be readable.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
