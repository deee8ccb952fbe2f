package cli

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"landrop/pkg/client"
	"landrop/pkg/config"
	"landrop/pkg/logger"
)

// options are shared by every subcommand through the root's persistent
// flags.
type options struct {
	configPath string
	serverAddr string
	logLevel   string

	cfg       *config.Config
	cfgSource string
	closeLog  func() error
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "landrop",
		Short: "Drop files onto this machine from any device on the LAN",
		Long: "landrop runs a small HTTP server that accepts multipart uploads into a\n" +
			"destination directory and streams upload progress to connected observers.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.closeLog != nil {
				return opts.closeLog()
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a landrop.yaml configuration file")
	flags.StringVarP(&opts.serverAddr, "server", "s", "", "Server address (host:port) for client commands")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSendCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newSetDirCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) load() error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
		o.cfgSource = o.configPath
	} else {
		cfg, o.cfgSource, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	out, closeFn, err := logger.OpenOutput(cfg.Logging.Output)
	if err != nil {
		return err
	}
	o.closeLog = closeFn
	logger.Configure(logger.Config{Level: level, Output: out, Format: cfg.Logging.Format})
	logger.Debug("configuration loaded", "source", o.cfgSource)

	o.cfg = cfg
	return nil
}

// requestTimeout bounds the one-shot info and set-dir calls. Uploads and
// event streams run without a deadline.
const requestTimeout = 10 * time.Second

// client builds an HTTP client for --server, defaulting to this host on
// the configured port. A zero timeout leaves requests unbounded.
func (o *options) client(timeout time.Duration) (*client.Client, error) {
	addr := o.serverAddr
	if addr == "" {
		addr = "localhost:" + strconv.Itoa(o.cfg.Server.Port)
	}
	var copts []client.Option
	if timeout > 0 {
		copts = append(copts, client.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	c, err := client.New(addr, copts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}
