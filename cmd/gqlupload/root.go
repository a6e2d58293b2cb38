package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jensneuse/abstractlogger"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/llehouerou/go-graphql-upload"
	"github.com/llehouerou/go-graphql-upload/internal/config"
)

type options struct {
	configPath string
	envFiles   []string
	endpoint   string
	token      string
	timeout    int
	debug      bool
	query      string
	queryFile  string
	vars       []string
	files      []string
	selectPath string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "gqlupload",
		Short: "send a GraphQL request, with file uploads when the query declares them",
		Long: `gqlupload sends a query to a GraphQL endpoint and prints the returned data.

Queries declaring an Upload variable ($file: Upload or $files: [Upload!]) are
sent as multipart requests; attach the files with --file name=path.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts, out)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.StringArrayVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")
	flags.StringVar(&opts.endpoint, "endpoint", "", "GraphQL endpoint URL")
	flags.StringVar(&opts.token, "token", "", "bearer token")
	flags.IntVar(&opts.timeout, "timeout", 0, "request timeout in seconds")
	flags.BoolVar(&opts.debug, "debug", false, "log request and response bodies")
	flags.StringVarP(&opts.query, "query", "q", "", "GraphQL document")
	flags.StringVarP(&opts.queryFile, "query-file", "f", "", "file holding the GraphQL document")
	flags.StringArrayVar(&opts.vars, "var", nil, "variable as name=value, JSON values keep their type")
	flags.StringArrayVar(&opts.files, "file", nil, "upload variable as name=path, repeat a name for a list")
	flags.StringVarP(&opts.selectPath, "select", "s", "", "print only this gjson path of the data")
	return cmd
}

// resolveConfig layers defaults, the config file, the environment and the
// flags, in increasing precedence.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.ApplyEnvOverrides(cfg)

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint = opts.endpoint
	}
	if flags.Changed("token") {
		cfg.Token = opts.token
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.debug
	}
	if cfg.Debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, err
		}
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func readQuery(opts *options) (string, error) {
	switch {
	case opts.query != "" && opts.queryFile != "":
		return "", errors.New("--query and --query-file are mutually exclusive")
	case opts.query != "":
		return opts.query, nil
	case opts.queryFile != "":
		b, err := os.ReadFile(opts.queryFile)
		if err != nil {
			return "", fmt.Errorf("read query: %w", err)
		}
		return string(b), nil
	default:
		return "", errors.New("one of --query or --query-file is required")
	}
}

func run(ctx context.Context, cfg *config.Config, opts *options, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	zl, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	log := abstractlogger.NewZapLogger(zl, abstractlogger.DebugLevel)

	query, err := readQuery(opts)
	if err != nil {
		return err
	}
	vars, err := parseVars(opts.vars)
	if err != nil {
		return err
	}
	opened, err := attachFiles(vars, query, opts.files)
	if err != nil {
		return err
	}
	defer opened.Close()

	client, err := graphql.NewClient(cfg.Endpoint,
		graphql.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		graphql.WithToken(cfg.Token),
		graphql.WithLogger(log),
		graphql.WithDebug(cfg.Debug),
	)
	if err != nil {
		return err
	}

	data, err := client.Request(ctx, query, vars)
	if err != nil {
		var re *graphql.RequestError
		if errors.As(err, &re) && re.Code() == graphql.ErrErrorsReceived {
			log.Error("graphql errors received", abstractlogger.Error(err))
		}
		return err
	}

	result := []byte(data)
	if opts.selectPath != "" {
		v := gjson.GetBytes(data, opts.selectPath)
		if !v.Exists() {
			return fmt.Errorf("--select %q: no such path in data", opts.selectPath)
		}
		result = []byte(v.Raw)
	}
	_, err = fmt.Fprintf(out, "%s\n", result)
	return err
}
