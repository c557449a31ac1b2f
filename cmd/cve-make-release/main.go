// Command cve-make-release packages a dated snapshot of the CVE feed
// repository into xz-compressed release archives
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"cverelease/internal/core/feed"
	"cverelease/internal/core/version"
	"cverelease/internal/modkit"
	"cverelease/internal/platform/config"
	perr "cverelease/internal/platform/errors"
	"cverelease/internal/platform/logger"
	ptime "cverelease/internal/platform/time"
	releasedom "cverelease/internal/services/release/domain"
	releasemod "cverelease/internal/services/release/module"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer, mods ...modkit.Option) int {
	if err := config.LoadDotenv(); err != nil {
		_, _ = fmt.Fprintf(stderr, "error: load .env: %v\n", err)
		return perr.ExitFailure
	}

	cmd := newRootCmd(mods...)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if e, ok := perr.As(err); ok {
			logger.Get().Debug().
				Str("code", e.Code().String()).
				Str("field", e.Field()).
				Str("op", e.Op()).
				AnErr("cause", perr.Root(err)).
				Msg(e.Message())
		}
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return perr.ExitCode(err)
	}
	return perr.ExitOK
}

type flags struct {
	date     string
	fetch    bool
	xzPreset int
	feedName string
}

func newRootCmd(mods ...modkit.Option) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "cve-make-release [flags] PATH",
		Short: "Package a CVE feed repository snapshot into release archives",
		Long: `Checks out the CVE feed repository as of a day and writes one
xz-compressed JSON archive per year from 1999, plus the all, recent and
modified feeds, into PATH. PATH must not exist or be empty.`,
		Version:       version.Info().String(),
		Args:          exactlyOnePath,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(args[0])
			if err != nil {
				return err
			}
			return release(cmd.Context(), opts, mods...)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return perr.Wrap(err, perr.ErrorCodeUsage, "invalid arguments")
	})

	fl := cmd.Flags()
	fl.StringVar(&f.date, "date", "", "snapshot date YYYY-MM-DD; omitted implies --fetch and today")
	fl.BoolVar(&f.fetch, "fetch", false, "sync the repository before checkout")
	preset := config.New().Prefix("CVE_RELEASE_").MayInt("XZ_PRESET", feed.DefaultPreset)
	fl.IntVar(&f.xzPreset, "xz-preset", preset, "xz compression preset 0..9 (env CVE_RELEASE_XZ_PRESET)")
	fl.StringVar(&f.feedName, "feed-name", "", "only create this feed: a year from 1999 on, all, recent or modified")
	return cmd
}

func exactlyOnePath(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return perr.WithField(perr.Usagef("expected exactly one output PATH, got %d arguments", len(args)), "PATH")
	}
	return nil
}

// options turns parsed flags into release options
func (f flags) options(path string) (releasedom.Options, error) {
	opts := releasedom.Options{
		Path:     path,
		Fetch:    f.fetch,
		FeedName: f.feedName,
		XZPreset: f.xzPreset,
	}
	if f.date != "" {
		d, err := ptime.ParseDay(f.date)
		if err != nil {
			return opts, perr.WithField(perr.Usagef("invalid --date %q, want YYYY-MM-DD", f.date), "date")
		}
		opts.Date = ptime.Ptr(d)
	}
	return opts, nil
}

func release(ctx context.Context, opts releasedom.Options, mods ...modkit.Option) error {
	logger.Init(logger.FromEnv())
	ctx = logger.WithRun(ctx, logger.NewRunID())
	log := logger.C(ctx)

	m, err := releasemod.New(modkit.Deps{Log: *log, Cfg: config.New()}, mods...)
	if err != nil {
		return err
	}
	ports, ok := modkit.PortsOf[releasemod.Ports](m)
	if !ok {
		return perr.Internalf("module %s exposes no release runner", m.Name())
	}

	rep, err := ports.Runner.Run(ctx, opts)
	if err != nil {
		return err
	}

	for _, fr := range rep.Feeds {
		log.Debug().
			Str("feed", fr.Name.Label()).
			Int("records", fr.Count).
			Int64("bytes", fr.Bytes).
			Msg("feed summary")
	}
	log.Info().
		Str("timestamp", ptime.FormatDay(rep.Timestamp)).
		Str("commit", rep.Revision.Hash).
		Bool("fetched", rep.Fetched).
		Int("records", rep.Records).
		Int("archives", len(rep.Feeds)).
		Dur("elapsed", rep.Elapsed).
		Str("path", opts.Path).
		Msg("release complete")
	return nil
}
