package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// DevCmd implements the 'dev' command.
type DevCmd struct {
	Host string `help:"Override dev.host"`
	Port int    `short:"p" help:"Override dev.port (1-65535; 0 keeps the configured port)"`
}

func (d *DevCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if d.Host != "" {
		cfg.Dev.Host = d.Host
	}
	if d.Port != 0 {
		cfg.Dev.Port = d.Port
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	s := site.New(cfg, site.Options{})
	defer closeSite(s)

	ctx, cancel := signalContext()
	defer cancel()

	_, _ = fmt.Fprintf(g.Out, "Serving %s on http://%s (Ctrl+C to stop)\n", cfg.OutputDir(config.ModeDev), cfg.Dev.Addr())
	return s.Dev(ctx, nil)
}
