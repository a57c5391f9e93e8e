package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/WessleyAI/termscape/pkg/config"
)

// cli carries state shared by every subcommand once the root pre-run has
// loaded the configuration.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:   "termscape",
		Short: "Place 3D objects where search terms occur in a text corpus",
		Long: `termscape fetches a text corpus, finds every occurrence of the configured
search terms and turns each match into a batch of placement instructions for a
3D renderer.

Configuration comes from termscape.yaml (working directory or $HOME/.termscape),
TERMSCAPE_* environment variables and flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.bindFlags(cmd); err != nil {
				return err
			}
			return c.load(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default termscape.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "json", "log format: json or text")
	pf.Uint64("seed", 0, "random seed for placements and animations (0 = clock)")
	pf.Int("repeat", 5, "instructions per match")

	root.AddCommand(
		newPlaceCmd(c),
		newServeCmd(c),
		newPublishCmd(c),
		newConfigCmd(c),
	)
	return root
}

// flagKeys maps flag names to config keys. Subcommands reuse names, so
// binding happens for the command actually being run.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"seed":       "placement.seed",
	"repeat":     "placement.repeat",
	"addr":       "http.addr",
	"nats-url":   "nats.url",
}

func (c *cli) bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := c.v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) load(stderr io.Writer) error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = newLogger(stderr, cfg.Log)
	slog.SetDefault(c.log)
	return nil
}

// newLogger writes logs to w so stdout stays free for command output.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	level, _ := lc.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
