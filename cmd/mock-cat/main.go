package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/internal/common/config"
	"github.com/amoylab/catclient/internal/mockcat"
	"github.com/amoylab/catclient/pkg/helper"
	"github.com/amoylab/catclient/pkg/logger"
	"github.com/amoylab/catclient/pkg/metrics"
	"github.com/amoylab/catclient/pkg/trace"
	"github.com/amoylab/catclient/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	port       int

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mock-cat",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mock-cat version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   cnst.MockName,
		Short: "Fake CheshireCat server",
		Long:  `mock-cat serves an in-memory CheshireCat REST and websocket API for local development`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", "mock-cat.yaml", "path to configuration file")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides the config")
	rootCmd.AddCommand(versionCmd)
}

func run(ctx context.Context) error {
	cfg, cfgPath, err := config.LoadConfig[config.MockCatConfig](configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if port > 0 {
		cfg.Port = port
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer lg.Sync()
	lg.Info("starting mock-cat", zap.String("version", version.Get()), zap.String("config", cfgPath))

	pidPath := helper.GetPIDPath(cfg.PID)
	removePID, err := helper.WritePID(pidPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := removePID(); err != nil {
			lg.Warn("failed to remove pid file", zap.String("path", pidPath), zap.Error(err))
		}
	}()

	if cfg.Tracing.Enabled {
		shutdown, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	srv, err := mockcat.New(*cfg, lg, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, ":"+strconv.Itoa(cfg.Port))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
