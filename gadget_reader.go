package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/phil-mansfield/gadgetreader/lib/compress"
	"github.com/phil-mansfield/gadgetreader/lib/config"
	"github.com/phil-mansfield/gadgetreader/lib/fail"
	"github.com/phil-mansfield/gadgetreader/lib/metrics"
	"github.com/phil-mansfield/gadgetreader/lib/snapio"
	"github.com/phil-mansfield/gadgetreader/lib/stats"
	"github.com/phil-mansfield/gadgetreader/lib/thread"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{ FullTimestamp: true })

	app := newApp(os.Stdout, log)
	if err := app.Run(os.Args); err != nil {
		fail.External(log, "%s", err.Error())
	}
}

// state is everything the commands need which is set up from the global
// flags before any command runs.
type state struct {
	cfg *config.Config
	rd *snapio.Reader
	// m is nil unless --metrics-file was given.
	m *metrics.Metrics
}

func newApp(out io.Writer, log *logrus.Logger) *cli.App {
	st := &state{ }
	headFlag := &cli.IntFlag{ Name: "head", Value: 0,
		Usage: "Print the first `K` positions" }

	app := &cli.App{
		Name: "gadget_reader",
		Usage: "Read dark matter positions from Gadget-2 snapshots",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{ Name: "config", TakesFile: true,
				Usage: "Read settings from the config `FILE`" },
			&cli.IntFlag{ Name: "threads",
				Usage: "Run on `N` threads, -1 uses every core" },
			&cli.IntFlag{ Name: "workers",
				Usage: "Read `N` files at once, -1 uses every core" },
			&cli.BoolFlag{ Name: "check-footers",
				Usage: "Check the trailing length of every block" },
			&cli.BoolFlag{ Name: "verbose", Aliases: []string{ "v" },
				Usage: "Log every file that is read" },
			&cli.StringFlag{ Name: "metrics-file", TakesFile: true,
				Usage: "Write Prometheus metrics to `FILE` on exit" },
		},
		Before: func(c *cli.Context) error {
			return st.setup(c, log)
		},
		After: func(c *cli.Context) error {
			if st.m == nil { return nil }
			return st.m.Export(c.String("metrics-file"))
		},
	}

	app.Commands = []*cli.Command{
		{
			Name: "header",
			Usage: "Print the header of a snapshot file",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				fileName, err := oneArg(c)
				if err != nil { return err }
				hd, err := st.rd.ReadHeader(fileName)
				if err != nil { return err }
				printHeader(c.App.Writer, fileName, hd)
				return nil
			},
		},
		{
			Name: "positions",
			Usage: "Read the positions in a single snapshot file",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{ headFlag },
			Action: func(c *cli.Context) error {
				fileName, err := oneArg(c)
				if err != nil { return err }
				_, block, err := st.rd.ReadPositions(fileName)
				if err != nil { return err }

				fmt.Fprintf(c.App.Writer, "%d positions read from %s " +
					"(%d-byte floats)\n", len(block.X), fileName, block.Width)
				printHead(c.App.Writer, block.X, c.Int("head"))
				return nil
			},
		},
		{
			Name: "all",
			Usage: "Read the positions in every file of a snapshot",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{ headFlag },
			Action: func(c *cli.Context) error {
				snap, err := st.readAll(c)
				if err != nil { return err }

				w := c.App.Writer
				fmt.Fprintf(w, "%d of %d particles read from %d files\n",
					snap.NRead, snap.Header.NPartTotal, len(snap.Files))
				printFailures(w, snap.Failures())
				printHead(w, snap.X, c.Int("head"))
				return nil
			},
		},
		{
			Name: "counts",
			Usage: "Print the particle counts declared by every file",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				fileName, err := oneArg(c)
				if err != nil { return err }
				counts, err := st.rd.SummarizeCounts(fileName)
				if err != nil { return err }
				if st.m != nil { st.m.ObserveCounts(counts) }

				w := c.App.Writer
				for _, count := range counts {
					if count.Err != nil {
						fmt.Fprintf(w, "%3d: %s (%s)\n", count.Index,
							snapio.Kind(count.Err), count.Err.Error())
					} else {
						fmt.Fprintf(w, "%3d: %d/%d\n", count.Index,
							count.NPart, count.NPartTotal)
					}
				}
				fmt.Fprintf(w, "sum: %d\n", snapio.SumCounts(counts))
				return nil
			},
		},
		{
			Name: "stats",
			Usage: "Print summary statistics of every position in a snapshot",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				snap, err := st.readAll(c)
				if err != nil { return err }
				printStats(c.App.Writer, st.cfg, snap, log)
				return nil
			},
		},
		{
			Name: "export",
			Usage: "Write every position in a snapshot to a zstd-compressed file",
			ArgsUsage: "FILE OUT",
			Action: func(c *cli.Context) error {
				if c.Args().Len() != 2 {
					return errors.Errorf("%s takes exactly two arguments, a " +
						"snapshot file and an output file, but got %d",
						c.Command.Name, c.Args().Len())
				}
				snap, err := st.readAll(c)
				if err != nil { return err }

				out := c.Args().Get(1)
				hd := compress.NewHeader(snap.Header, len(snap.X),
					exportWidth(snap))
				err = compress.WriteFile(out, hd, snap.X,
					st.cfg.Export.ZstdLevel, compress.NewBuffer())
				if err != nil {
					return errors.Wrapf(err, "could not write %s", out)
				}

				fmt.Fprintf(c.App.Writer, "%d positions written to %s\n",
					len(snap.X), out)
				return nil
			},
		},
		{
			Name: "example_config",
			Usage: "Print an example config file",
			Action: func(c *cli.Context) error {
				fmt.Fprint(c.App.Writer, config.Example())
				return nil
			},
		},
	}

	return app
}

// setup reads the config file, applies the global flags on top of it, and
// creates the Reader. Threads sets GOMAXPROCS while Workers only limits how
// many files are open at once.
func (st *state) setup(c *cli.Context, log *logrus.Logger) error {
	cfg := config.Default()
	if name := c.String("config"); name != "" {
		var err error
		cfg, err = config.Read(name)
		if err != nil { return err }
	}

	if c.IsSet("threads") { cfg.Gadget.Threads = c.Int("threads") }
	if c.IsSet("workers") { cfg.Gadget.Workers = c.Int("workers") }
	if c.IsSet("check-footers") {
		cfg.Gadget.CheckFooters = c.Bool("check-footers")
	}
	if c.Bool("verbose") { cfg.Gadget.LogLevel = "debug" }
	if err := cfg.Validate(); err != nil { return err }

	log.SetLevel(cfg.Level())

	threads, err := thread.Set(cfg.Gadget.Threads)
	if err != nil { return err }
	cfg.Gadget.Threads = threads
	workers := cfg.NumWorkers()
	cfg.Gadget.Workers = workers

	st.cfg = cfg
	st.rd = snapio.NewReader(snapio.Config{
		CheckFooters: cfg.Gadget.CheckFooters,
		Workers: workers,
		Log: log,
	})
	if c.String("metrics-file") != "" { st.m = metrics.New() }

	return nil
}

// readAll reads every file in the snapshot named by the first argument.
func (st *state) readAll(c *cli.Context) (*snapio.Snapshot, error) {
	if c.Args().Len() < 1 {
		return nil, errors.Errorf("%s needs the name of a snapshot file",
			c.Command.Name)
	}

	start := time.Now()
	snap, err := st.rd.ReadAllPositions(c.Args().First())
	if err != nil { return nil, err }
	if st.m != nil { st.m.ObserveSnapshot(snap, start) }
	return snap, nil
}

func oneArg(c *cli.Context) (string, error) {
	if c.Args().Len() != 1 {
		return "", errors.Errorf("%s takes exactly one argument, the name " +
			"of a snapshot file, but got %d", c.Command.Name, c.Args().Len())
	}
	return c.Args().First(), nil
}

// exportWidth returns the float width of the first file that had any
// positions. Snapshots without positions are written in single precision.
func exportWidth(snap *snapio.Snapshot) int {
	for _, res := range snap.Files {
		if res.Err == nil && res.Width != 0 { return res.Width }
	}
	return 4
}

func printHeader(w io.Writer, fileName string, hd *snapio.Header) {
	fmt.Fprintf(w, "%-12s %s\n", "File", fileName)
	fmt.Fprintf(w, "%-12s %d\n", "NPart", hd.NPart)
	fmt.Fprintf(w, "%-12s %d\n", "NPartTotal", hd.NPartTotal)
	fmt.Fprintf(w, "%-12s %d\n", "NumFiles", hd.NumFiles)
	fmt.Fprintf(w, "%-12s %g\n", "Mass", hd.Mass)
	fmt.Fprintf(w, "%-12s %g\n", "Time", hd.Time)
	fmt.Fprintf(w, "%-12s %g\n", "Redshift", hd.Redshift)
	fmt.Fprintf(w, "%-12s %.6f\n", "a", hd.ScaleFactor())
	fmt.Fprintf(w, "%-12s %g\n", "BoxSize", hd.BoxSize)
	fmt.Fprintf(w, "%-12s %g\n", "Omega0", hd.Omega0)
	fmt.Fprintf(w, "%-12s %g\n", "OmegaLambda", hd.OmegaLambda)
	fmt.Fprintf(w, "%-12s %g\n", "HubbleParam", hd.HubbleParam)
	fmt.Fprintf(w, "%-12s %d\n", "FlagSFR", hd.FlagSFR)
	fmt.Fprintf(w, "%-12s %d\n", "FlagFeedback", hd.FlagFeedback)
	fmt.Fprintf(w, "%-12s %d\n", "FlagCooling", hd.FlagCooling)
}

func printHead(w io.Writer, x [][3]float64, k int) {
	for i := 0; i < k && i < len(x); i++ {
		fmt.Fprintf(w, "%10d %.6g %.6g %.6g\n", i, x[i][0], x[i][1], x[i][2])
	}
}

func printFailures(w io.Writer, failures []snapio.FileResult) {
	for _, res := range failures {
		fmt.Fprintf(w, "file %d (%s) skipped: %s\n", res.Index,
			snapio.Kind(res.Err), res.Err.Error())
	}
}

func printStats(
	w io.Writer, cfg *config.Config, snap *snapio.Snapshot, log *logrus.Logger,
) {
	L := snap.Header.BoxSize
	s := stats.Summarize(snap.X, L)

	fmt.Fprintf(w, "%-8s %d\n", "N", s.N)
	fmt.Fprintf(w, "%-8s %.6g\n", "Mean", s.Mean)
	fmt.Fprintf(w, "%-8s %.6g\n", "Std", s.Std)
	fmt.Fprintf(w, "%-8s %.6g\n", "Min", s.Min)
	fmt.Fprintf(w, "%-8s %.6g\n", "Max", s.Max)
	fmt.Fprintf(w, "%-8s %.6g\n", "Center", s.Center)
	fmt.Fprintf(w, "%-8s %.4f\n", "c/a", s.CA)
	fmt.Fprintf(w, "%-8s %.4f\n", "b/a", s.BA)

	maxN := cfg.Stats.MaxPotentialParticles
	if maxN == 0 || len(snap.X) == 0 { return }

	x := stats.Subsample(snap.X, maxN)
	if len(x) < len(snap.X) {
		log.Infof("Potential computed for %d of %d particles", len(x),
			len(snap.X))
	}
	pe := stats.Potential(x, L, cfg.Stats.Softening)
	im := stats.MostBound(pe)
	fmt.Fprintf(w, "%-8s %.6g\n", "Bound", x[im])
}
