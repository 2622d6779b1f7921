package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/internal/common/config"
	"github.com/amoylab/catclient/internal/template"
	"github.com/amoylab/catclient/pkg/cheshirecat"
	"github.com/amoylab/catclient/pkg/logger"
	"github.com/amoylab/catclient/pkg/metrics"
	"github.com/amoylab/catclient/pkg/realtime"
	"github.com/amoylab/catclient/pkg/trace"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultConfigFile = "catctl.yaml"

// flags override values from the config file when set.
type flags struct {
	conf    string
	host    string
	port    int
	secure  bool
	apiKey  string
	token   string
	agentID string
	userID  string
	chatID  string
	format  string
}

type app struct {
	flags  flags
	cfg    *config.CatctlConfig
	logger *zap.Logger
	client *cheshirecat.Client
	render *template.Renderer

	closers []func()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           cnst.CommandName,
		Short:         "Talk to a CheshireCat server",
		Long:          `catctl drives the CheshireCat REST and websocket APIs from the command line`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.conf, "conf", "c", defaultConfigFile, "path to configuration file")
	pf.StringVar(&a.flags.host, "host", "", "server host")
	pf.IntVar(&a.flags.port, "port", 0, "server port")
	pf.BoolVar(&a.flags.secure, "secure", false, "use https and wss")
	pf.StringVar(&a.flags.apiKey, "api-key", "", "API key")
	pf.StringVar(&a.flags.token, "token", "", "JWT, wins over the API key")
	pf.StringVar(&a.flags.agentID, "agent", "", "agent id")
	pf.StringVar(&a.flags.userID, "user", "", "user id")
	pf.StringVar(&a.flags.chatID, "chat", "", "chat id")
	pf.StringVarP(&a.flags.format, "format", "o", "", "go template applied to the result, fields use their JSON names")

	root.AddCommand(
		versionCmd(),
		healthCmd(a),
		tokenCmd(a),
		chatCmd(a),
		listenCmd(a),
		memoryCmd(a),
		pluginsCmd(a),
		agentsCmd(a),
	)
	return root
}

func (a *app) loadConfig(cmd *cobra.Command) (*config.CatctlConfig, string, error) {
	cfg, path, err := config.LoadConfig[config.CatctlConfig](a.flags.conf)
	if err == nil {
		return cfg, path, nil
	}
	// a missing default file is fine, flags are enough
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("conf") {
		return config.NewCatctlConfig(), "", nil
	}
	return nil, path, fmt.Errorf("load config %s: %w", path, err)
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, cfgPath, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	a.applyFlags(cfg)
	a.cfg = cfg

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = lg
	a.closers = append(a.closers, func() { _ = lg.Sync() })
	lg.Debug("configuration loaded", zap.String("path", cfgPath))

	if cfg.Tracing.Enabled {
		shutdown, err := trace.InitTracing(cmd.Context(), &cfg.Tracing, lg)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		a.closers = append(a.closers, func() { _ = shutdown(context.Background()) })
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
		a.serveMetrics(m)
	}

	a.client = cheshirecat.New(cheshirecat.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Secure:  cfg.Server.Secure,
		APIKey:  cfg.Server.APIKey,
		Token:   cfg.Server.Token,
		Timeout: cfg.Server.Timeout,
	},
		cheshirecat.WithLogger(lg),
		cheshirecat.WithMetrics(m),
		cheshirecat.WithSessionOptions(realtime.WithOptions(sessionOptions(cfg.Session))),
	)
	a.closers = append(a.closers, func() { _ = a.client.Close() })
	return nil
}

func (a *app) applyFlags(cfg *config.CatctlConfig) {
	f := a.flags
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port > 0 {
		cfg.Server.Port = f.port
	}
	if f.secure {
		cfg.Server.Secure = true
	}
	if f.apiKey != "" {
		cfg.Server.APIKey = f.apiKey
	}
	if f.token != "" {
		cfg.Server.Token = f.token
	}
	if f.agentID != "" {
		cfg.Identity.AgentID = f.agentID
	}
	if f.userID != "" {
		cfg.Identity.UserID = f.userID
	}
	if f.chatID != "" {
		cfg.Identity.ChatID = f.chatID
	}
	if cfg.Identity.UserID == "" {
		cfg.Identity.UserID = "catctl-" + uuid.NewString()
	}
}

func sessionOptions(sc config.SessionConfig) realtime.Options {
	return realtime.Options{
		PingInterval:         sc.PingInterval,
		PongTimeout:          sc.PongTimeout,
		MaxReconnectAttempts: sc.MaxReconnectAttempts,
		ReconnectDelay:       sc.ReconnectDelay,
		ForceApplicationPing: sc.ApplicationPing,
	}
}

func (a *app) serveMetrics(m *metrics.Metrics) {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		addr = ":9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

func (a *app) teardown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// execute runs catctl with args and releases everything setup acquired.
func execute(ctx context.Context, args []string, out io.Writer) error {
	a := &app{}
	defer a.teardown()
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
