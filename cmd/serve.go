package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/logger"
	"github.com/spigell/job-aggregator/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default :3000)")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	debug := viper.GetBool("debug")
	logger, err := logger.New(viper.GetBool("json"), debug, logger.WithInitialFields(zap.String("command", "serve")))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-aggregator server", zap.String("version", resolveVersion()))

	svc, err := newService(config, logger)
	if err != nil {
		logger.Fatal("building the search service", zap.Error(err))
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srvCfg := config.Server
	srvCfg.Debug = srvCfg.Debug || debug

	if err := server.New(svc, logger, srvCfg).ListenAndServe(ctx); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}
