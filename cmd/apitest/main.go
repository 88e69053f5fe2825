package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jingweijiang/annotation-api-test/internal/application"
	"github.com/jingweijiang/annotation-api-test/internal/config"
	"github.com/jingweijiang/annotation-api-test/internal/logging"
)

var signalNotify = signal.Notify

type cli struct {
	app *kingpin.Application

	environment *string
	configDir   *string
	prefix      *string
	noEnv       *bool

	show     *kingpin.CmdClause
	get      *kingpin.CmdClause
	getPath  *string
	ping     *kingpin.CmdClause
	endpoint *string
}

func newCLI() *cli {
	app := kingpin.New("apitest", "API test harness - inspect layered configuration and probe the configured API")
	c := &cli{app: app}

	c.environment = app.Flag("env", "Target environment (development, staging, production, ...)").
		Envar("TEST_ENVIRONMENT").String()
	c.configDir = app.Flag("config-dir", "Directory holding default.yaml, <env>.yaml and local.yaml").
		Default(config.DefaultConfigDir).String()
	c.prefix = app.Flag("prefix", "Prefix of environment variables overriding configuration").
		Default(config.DefaultEnvPrefix).String()
	c.noEnv = app.Flag("no-env-overrides", "Ignore PREFIX_* environment variables").Bool()

	c.show = app.Command("show", "Print the merged configuration as YAML")
	c.get = app.Command("get", "Print a single value by dotted path")
	c.getPath = c.get.Arg("path", "Dotted path, e.g. api.base_url").Required().String()
	c.ping = app.Command("ping", "Send GET to an endpoint of the configured API")
	c.endpoint = c.ping.Arg("endpoint", "Endpoint relative to api.base_url").Default("/health").String()

	return c
}

func main() {
	c := newCLI()
	command := kingpin.MustParse(c.app.Parse(os.Args[1:]))

	cfg, err := c.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := c.run(command, cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (c *cli) loadConfig() (*config.Resolver, error) {
	return config.LoadDir(config.Options{
		Environment:      config.Environment(*c.environment),
		ConfigDir:        *c.configDir,
		EnvPrefix:        *c.prefix,
		SkipEnvOverrides: *c.noEnv,
	})
}

func (c *cli) run(command string, cfg *config.Resolver, out io.Writer) error {
	switch command {
	case c.show.FullCommand():
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err

	case c.get.FullCommand():
		value, err := cfg.MustGet(*c.getPath)
		if err != nil {
			return err
		}
		return printValue(out, value)

	case c.ping.FullCommand():
		return c.runPing(cfg, out)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (c *cli) runPing(cfg *config.Resolver, out io.Writer) error {
	logger, err := logging.New(cfg.String("logging.level", "info"))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	session, err := application.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.Close()

	ctx, cancel := interruptContext(context.Background())
	defer cancel()

	resp, err := session.Client().Get(ctx, *c.endpoint)
	if err != nil {
		session.Logger().Error("ping failed", zap.Error(err))
		return err
	}

	fmt.Fprintf(out, "%s %d %s\n", *c.endpoint, resp.StatusCode, resp.Duration)
	if !resp.IsSuccess() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// printValue writes scalars bare and mappings or lists as YAML.
func printValue(out io.Writer, value any) error {
	switch value.(type) {
	case map[string]any, []any:
		data, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
		_, err = out.Write(data)
		return err
	default:
		_, err := fmt.Fprintln(out, value)
		return err
	}
}

func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(quit)
	}()
	return ctx, cancel
}
