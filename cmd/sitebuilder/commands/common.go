package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Global carries process-wide collaborators into every command.
type Global struct {
	// Out receives user-facing command output.
	Out io.Writer
}

// CLI is the root command model and its global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitebuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd   `cmd:"" help:"Build the production site"`
	Dev        DevCmd     `cmd:"" default:"1" help:"Build into the dev output, serve it and rebuild on change"`
	Sass       SassCmd    `cmd:"" help:"Compile stylesheets only"`
	HTML       HTMLCmd    `cmd:"" name:"html" help:"Render pages only"`
	JS         JSCmd      `cmd:"" name:"js" help:"Bundle scripts only"`
	Tasks      TasksCmd   `cmd:"" help:"Show the task graphs"`
	Init       InitCmd    `cmd:"" help:"Write an example configuration file"`
	History    HistoryCmd `cmd:"" help:"List recent builds"`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print version information"`

	cfg    *config.Config `kong:"-"`
	cfgErr error          `kong:"-"`
}

// AfterApply runs after flag parsing: it loads the configuration once and
// installs the process logger it describes. A configuration error is kept
// for the commands that need a configuration.
func (c *CLI) AfterApply() error {
	c.cfg, c.cfgErr = config.Load(c.Config)
	logging := config.LoggingConfig{}
	if c.cfgErr == nil {
		logging = c.cfg.Logging
	}
	slog.SetDefault(logging.NewLogger(os.Stderr, c.Verbose))
	return nil
}

// LoadConfig returns the configuration loaded by AfterApply.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if c.cfgErr != nil {
		return nil, c.cfgErr
	}
	if c.cfg == nil {
		return config.Load(c.Config)
	}
	return c.cfg, nil
}

// openSite loads the configuration and wires a site for it.
func openSite(root *CLI) (*site.Site, error) {
	cfg, err := root.LoadConfig()
	if err != nil {
		return nil, err
	}
	return site.New(cfg, site.Options{}), nil
}

func closeSite(s *site.Site) {
	if err := s.Close(); err != nil {
		slog.Warn("Failed to release site resources", "error", err)
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// modeFor maps the --dev flag of the single-task commands.
func modeFor(dev bool) config.Mode {
	if dev {
		return config.ModeDev
	}
	return config.ModeProd
}
