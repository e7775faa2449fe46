// Package cli wires configuration, the browser and the result sinks into a
// single cobra command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/browser"
	"mxshs/oddsranker/src/config"
	"mxshs/oddsranker/src/core"
	"mxshs/oddsranker/src/db"
	"mxshs/oddsranker/src/domain"
	"mxshs/oddsranker/src/logging"
	"mxshs/oddsranker/src/runner"
	"mxshs/oddsranker/src/sink"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "ODDSRANKER"

type Options struct {
	EnvFile     string
	Config      string
	Bookmaker   string
	Sports      []string
	ResultsDir  string
	Headless    bool
	HeadlessSet bool
	LogFile     string
	Debug       bool
	PostgresDSN string
	RedisAddr   string
	Top         int
}

func optionsFrom(v *viper.Viper) Options {
	return Options{
		EnvFile:     v.GetString("env"),
		Config:      v.GetString("config"),
		Bookmaker:   v.GetString("bookmaker"),
		Sports:      splitList(v.GetStringSlice("sport")),
		ResultsDir:  v.GetString("results-dir"),
		Headless:    v.GetBool("headless"),
		HeadlessSet: v.IsSet("headless"),
		LogFile:     v.GetString("log-file"),
		Debug:       v.GetBool("debug"),
		PostgresDSN: v.GetString("postgres-dsn"),
		RedisAddr:   v.GetString("redis-addr"),
		Top:         v.GetInt("top"),
	}
}

// NewRootCommand builds the command. Every flag can also be set through an
// ODDSRANKER_* environment variable, e.g. ODDSRANKER_REDIS_ADDR.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "oddsranker",
		Short:         "Ranks the matches of an odds comparison site by return rate.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), optionsFrom(v), in, out, errOut)
		},
	}

	flags := cmd.Flags()
	flags.String("env", ".env", "File holding USERNAME and PASSWORD.")
	flags.String("config", "", "Site configuration overriding the built-in one.")
	flags.String("bookmaker", "", "Bookmaker id, or \"all\". Prompts when empty.")
	flags.StringSlice("sport", nil, "Sports to extract (default every configured sport).")
	flags.String("results-dir", "results", "Directory receiving the ranked reports.")
	flags.Bool("headless", true, "Run Chrome without a window.")
	flags.String("log-file", "", "Also write JSON logs to this rotated file.")
	flags.Bool("debug", false, "Enable debug logging.")
	flags.String("postgres-dsn", "", "Store results in Postgres. Defaults to the DB_* keys of the env file.")
	flags.String("redis-addr", "", "Publish results to Redis streams at host:port.")
	flags.Int("top", 10, "Rows of the summary table per result set; 0 disables it.")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	return cmd
}

// Execute runs the command and maps its outcome to a process exit code.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cmd := NewRootCommand(in, out, errOut)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		var logged loggedError
		if !errors.As(err, &logged) {
			fmt.Fprintln(errOut, err)
		}
		return apperr.ExitCode(err)
	}
	return apperr.ExitOK
}

// loggedError marks an error already reported through the logger.
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }

func run(ctx context.Context, opts Options, in io.Reader, out, errOut io.Writer) (err error) {
	log := logging.New(logging.Options{
		Debug: opts.Debug,
		File:  opts.LogFile,
		Out:   out,
		Err:   errOut,
	})
	defer log.Sync()

	defer func() {
		if err != nil {
			log.Error("run failed", zap.Int("exit_code", apperr.ExitCode(err)), zap.Error(err))
			err = loggedError{err}
		}
	}()

	site, err := loadSite(opts.Config)
	if err != nil {
		return err
	}
	if opts.HeadlessSet {
		site.Browser.Headless = opts.Headless
	}

	env, err := config.ReadEnv(opts.EnvFile)
	if err != nil {
		return err
	}
	creds, err := config.LoadCredentials(opts.EnvFile)
	if err != nil {
		return err
	}

	sports, err := parseSports(opts.Sports)
	if err != nil {
		return err
	}

	choice := opts.Bookmaker
	if choice == "" {
		choice, err = PromptBookmaker(in, out, site.Bookmakers)
		if err != nil {
			return err
		}
	}

	plan, err := runner.NewPlan(site, choice, sports)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	sinks, closeSinks, err := openSinks(ctx, opts, env, runID, out, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	chrome, err := browser.NewChrome(browser.Options{
		Headless:             site.Browser.Headless,
		UserAgent:            site.Browser.UserAgent,
		IdleTimeout:          site.Browser.IdleTimeout,
		NavigationsPerSecond: site.Browser.NavigationsPerSecond,
	}, log.Named("browser"))
	if err != nil {
		return err
	}
	defer chrome.Close()

	r := runner.New(
		core.NewSessionManager(chrome, site, log),
		core.NewBookmakerSelector(chrome, site, log),
		core.NewExtractionOrchestrator(
			chrome,
			site,
			core.NewPaginationDiscoverer(chrome, site, log),
			core.NewMatchExtractor(site.Selector, log),
			log,
		),
		site,
		sinks,
		log,
	)

	log.Info("run started",
		zap.Int("passes", len(plan.Subsets)),
		zap.Strings("sports", sportNames(plan.Sports)),
	)
	if err := r.Run(ctx, creds, plan); err != nil {
		return err
	}

	log.Info("run finished")
	return nil
}

// splitList accepts both repeated flags and comma separated values, as
// environment variables arrive as a single string.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func loadSite(path string) (*config.Site, error) {
	if path == "" {
		return config.DefaultSite()
	}
	return config.LoadSite(path)
}

func parseSports(values []string) ([]domain.Sport, error) {
	var sports []domain.Sport
	for _, v := range values {
		s, err := domain.ParseSport(v)
		if err != nil {
			return nil, err
		}
		sports = append(sports, s)
	}
	return sports, nil
}

func sportNames(sports []domain.Sport) []string {
	names := make([]string, 0, len(sports))
	for _, s := range sports {
		names = append(names, s.String())
	}
	return names
}

// openSinks builds the file sink plus whichever optional sinks are
// configured. The returned func releases their connections.
func openSinks(ctx context.Context, opts Options, env map[string]string, runID string, out io.Writer, log *zap.Logger) (sink.Multi, func(), error) {
	sinks := sink.Multi{sink.NewFile(opts.ResultsDir, log)}
	var closers []func() error

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("close sink", zap.Error(err))
			}
		}
	}

	if opts.Top > 0 {
		sinks = append(sinks, &sink.Table{Out: out, Limit: opts.Top})
	}

	dsn := opts.PostgresDSN
	if dsn == "" {
		dsn = db.DSNFromEnv(env)
	}
	if dsn != "" {
		store, err := db.Open(ctx, dsn, runID, log)
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, store)
		closers = append(closers, store.Close)
	}

	if opts.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			closeAll()
			return nil, func() {}, fmt.Errorf("connect to redis %s: %w", opts.RedisAddr, err)
		}
		sinks = append(sinks, sink.NewRedis(client, runID, log))
		closers = append(closers, client.Close)
	}

	return sinks, closeAll, nil
}
