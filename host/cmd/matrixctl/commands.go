package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"greymatrix/core"
	"greymatrix/host/config"
	"greymatrix/host/imaging"
	"greymatrix/host/link"
	"greymatrix/hosted"
)

type command struct {
	name  string
	usage string
	help  string
	args  int
	run   func(ctx context.Context, cfg *config.Config, args []string) error
}

var commands = []command{
	{"info", "info", "print the controller dictionary and geometry", 0, runInfo},
	{"show", "show <image>", "send a PNG, JPEG, GIF or SVG image", 1, runShow},
	{"pixel", "pixel <x> <y> <level>", "set one pixel and show it", 3, runPixel},
	{"clear", "clear", "switch every LED off", 0, runClear},
	{"stats", "stats", "print the controller event counters", 0, runStats},
	{"trace", "trace", "make the controller dump its event trace", 0, runTrace},
	{"reset", "reset", "restart the controller", 0, runReset},
	{"run", "run <image>", "drive the locally wired matrix until interrupted", 1, runLocal},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// withLink connects to the controller and runs fn under the command timeout
func withLink(ctx context.Context, cfg *config.Config, fn func(ctx context.Context, l *link.Link) error) error {
	l, err := link.Open(cfg.Serial, log.Logger)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := l.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Serial.Device, err)
	}
	return fn(ctx, l)
}

func runInfo(ctx context.Context, cfg *config.Config, args []string) error {
	return withLink(ctx, cfg, func(ctx context.Context, l *link.Link) error {
		geo, err := l.Config(ctx)
		if err != nil {
			return err
		}
		dict := l.Dictionary()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "version\t%s\n", dict.Version)
		fmt.Fprintf(w, "build\t%s\n", dict.BuildVersions)
		fmt.Fprintf(w, "matrix\t%d rows x %d columns\n", geo.Rows, geo.Columns)
		fmt.Fprintf(w, "image\t%d x %d pixels\n", geo.ImageColumns, geo.ImageRows)
		fmt.Fprintf(w, "row period\t%d ticks\n", geo.CycleTicks)
		fmt.Fprintln(w, "\nconstants")
		for _, name := range dict.ConstantNames() {
			fmt.Fprintf(w, "  %s\t%s\n", name, dict.Config[name])
		}
		fmt.Fprintln(w, "\nmessages")
		for _, m := range dict.Messages() {
			dir := "command"
			if m.Response {
				dir = "response"
			}
			fmt.Fprintf(w, "  %d\t%s\t%s\n", m.ID, dir, m.Signature)
		}
		return w.Flush()
	})
}

func runShow(ctx context.Context, cfg *config.Config, args []string) error {
	return withLink(ctx, cfg, func(ctx context.Context, l *link.Link) error {
		geo, err := l.Config(ctx)
		if err != nil {
			return err
		}
		img, err := imaging.Load(args[0], geo.ImageColumns, geo.ImageRows)
		if err != nil {
			return err
		}
		rows := make([][]uint8, img.Height())
		for y := range rows {
			rows[y] = img.Row(y)
		}
		if err := l.SendImage(ctx, rows); err != nil {
			return err
		}
		log.Info().Str("image", args[0]).Int("width", img.Width()).Int("height", img.Height()).Msg("image shown")
		return nil
	})
}

func runPixel(ctx context.Context, cfg *config.Config, args []string) error {
	var v [3]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 {
			return fmt.Errorf("argument %q is not a non-negative number", a)
		}
		v[i] = n
	}
	if v[2] > int(core.MaxBrightness) {
		return fmt.Errorf("level %d is above %d", v[2], core.MaxBrightness)
	}
	return withLink(ctx, cfg, func(ctx context.Context, l *link.Link) error {
		if err := l.SetPixel(ctx, v[0], v[1], uint8(v[2])); err != nil {
			return err
		}
		return l.ShowFrame(ctx)
	})
}

func runClear(ctx context.Context, cfg *config.Config, args []string) error {
	return withLink(ctx, cfg, func(ctx context.Context, l *link.Link) error {
		return l.Clear(ctx)
	})
}

func runStats(ctx context.Context, cfg *config.Config, args []string) error {
	return withLink(ctx, cfg, func(ctx context.Context, l *link.Link) error {
		s, err := l.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("primary=%d secondary=%d frames=%d errors=%d\n", s.Primary, s.Secondary, s.Frames, s.Errors)
		return nil
	})
}

func runTrace(ctx context.Context, cfg *config.Config, args []string) error {
	return withLink(ctx, cfg, func(ctx context.Context, l *link.Link) error {
		return l.DumpTrace(ctx)
	})
}

func runReset(ctx context.Context, cfg *config.Config, args []string) error {
	return withLink(ctx, cfg, func(ctx context.Context, l *link.Link) error {
		return l.Reset(ctx)
	})
}

// localControl is a display control that owns hardware resources
type localControl interface {
	core.DisplayControl
	Close() error
}

func newLocalControl(l config.Local) (localControl, error) {
	switch l.Driver {
	case config.DriverPeriph:
		return hosted.NewPeriphControl(hosted.PeriphConfig{
			Rows:            l.RowPins,
			Columns:         l.ColumnPins,
			RowActiveLow:    l.RowActiveLow,
			ColumnActiveLow: l.ColumnActiveLow,
		})
	default:
		return newCdevControl(l)
	}
}

func runLocal(ctx context.Context, cfg *config.Config, args []string) error {
	if err := cfg.Local.Validate(); err != nil {
		return err
	}
	m := cfg.Local.Matrix()
	img, err := imaging.Load(args[0], m.ImageColumns(), m.ImageRows())
	if err != nil {
		return err
	}

	control, err := newLocalControl(cfg.Local)
	if err != nil {
		return err
	}
	defer func() {
		if err := control.Close(); err != nil {
			log.Warn().Err(err).Msg("closing GPIO")
		}
	}()

	r, err := hosted.NewRunner(m, cfg.Local.TickPeriod(), control, hosted.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	r.ShowImage(img)
	log.Info().Str("driver", cfg.Local.Driver).Int("rows", m.Rows).Int("columns", m.Columns).Msg("driving local matrix; interrupt to stop")
	return r.Run(ctx)
}
