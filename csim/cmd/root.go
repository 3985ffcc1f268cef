// Package cmd provides the command-line interface of csim.
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
)

// NewRootCmd creates the csim command. Flag defaults are read from the
// environment when the command is created.
func NewRootCmd() *cobra.Command {
	opts := options{}

	rootCmd := &cobra.Command{
		Use:   "csim [-hv] -s <num> -E <num> -b <num> -t <file>",
		Short: "csim replays a memory trace against a simulated cache.",
		Long: `csim replays a Valgrind memory trace against a set-associative ` +
			`cache and reports the number of hits, misses and evictions. ` +
			`A full set evicts its most recently used line.`,
		Example: "  csim -s 4 -E 1 -b 4 -t traces/yi.trace\n" +
			"  csim -v -s 8 -E 2 -b 4 -t traces/yi.trace",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := opts.validate()
			if errors.Is(err, errMissingArgument) {
				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: Missing required command line argument\n", cmd.Name())
				fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())

				return err
			}

			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := rootCmd.Flags()
	flags.IntVarP(&opts.setBits, "set-bits", "s", envInt(envSetBits),
		"Number of set index bits.")
	flags.IntVarP(&opts.lines, "lines", "E", envInt(envLines),
		"Number of lines per set.")
	flags.IntVarP(&opts.blockBits, "block-bits", "b", envInt(envBlockBits),
		"Number of block offset bits.")
	flags.StringVarP(&opts.tracePath, "trace", "t", envString(envTrace, ""),
		"Trace file.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Print the outcome of every trace record.")
	flags.StringVar(&opts.policy, "policy", envString(envPolicy, "mru"),
		"Replacement policy, mru or lru.")
	flags.StringVar(&opts.recordPath, "record", "",
		"Record every access into the SQLite database <path>.sqlite3.")
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "",
		"Write a CPU profile of the replay to this file.")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve the final cache state over HTTP until interrupted.")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"Port of the monitoring server. A random port is used if unset.")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"Open the monitoring server in a browser.")

	return rootCmd
}

// Execute runs the csim command and exits the process.
func Execute() {
	if err := loadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "csim: %v\n", err)
		atexit.Exit(1)
	}

	err := NewRootCmd().Execute()
	if err != nil {
		if !errors.Is(err, errMissingArgument) {
			fmt.Fprintf(os.Stderr, "csim: %v\n", err)
		}

		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func run(ctx context.Context, opts options, out io.Writer) (err error) {
	model, err := cache.MakeBuilder().
		WithLog2NumSets(opts.setBits).
		WithWayAssociativity(opts.lines).
		WithLog2BlockSize(opts.blockBits).
		WithReplacePolicy(opts.policy).
		Build("Cache")
	if err != nil {
		return err
	}

	f, err := trace.Open(opts.tracePath)
	if err != nil {
		return err
	}
	defer f.Close()

	replayer := trace.NewReplayer(model)
	if opts.verbose {
		replayer.AcceptHook(trace.NewVerboseTracer(log.New(out, "", 0)))
	}

	var dbTracer *trace.DBTracer
	if opts.recordPath != "" {
		recorder := datarecording.New(opts.recordPath)
		defer closeRecording(recorder, &err)

		dbTracer = trace.NewDBTracer(recorder)
		model.AcceptHook(dbTracer)
	}

	profile := new(bytes.Buffer)
	if opts.cpuProfile != "" || opts.monitor {
		if err := pprof.StartCPUProfile(profile); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
	}

	stats, err := replayer.Replay(trace.NewReader(opts.tracePath, f))

	if opts.cpuProfile != "" || opts.monitor {
		pprof.StopCPUProfile()
	}

	if err != nil {
		return err
	}

	if dbTracer != nil {
		dbTracer.RecordSummary(model)
	}

	fmt.Fprintf(out, "hits:%d misses:%d evictions:%d\n",
		stats.Hits, stats.Misses, stats.Evictions)

	if opts.cpuProfile != "" {
		if err := os.WriteFile(opts.cpuProfile, profile.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write cpu profile: %w", err)
		}
	}

	if opts.monitor {
		return serve(ctx, opts, model, profile.Bytes())
	}

	return nil
}

// closeRecording closes the recorder and reports its error through err unless
// err already holds one.
func closeRecording(recorder datarecording.DataRecorder, err *error) {
	closeErr := recorder.Close()
	if closeErr == nil {
		return
	}

	if *err != nil {
		log.Printf("close recording: %v", closeErr)
		return
	}

	*err = fmt.Errorf("close recording: %w", closeErr)
}

func serve(
	ctx context.Context,
	opts options,
	model *cache.Model,
	cpuProfile []byte,
) error {
	monitor := monitoring.NewMonitor().WithPortNumber(opts.monitorPort)
	monitor.RegisterSnapshot(model.Snapshot())
	monitor.RegisterCPUProfile(cpuProfile)

	url, err := monitor.StartServer()
	if err != nil {
		return err
	}

	if opts.openBrowser {
		if err := browser.OpenURL(url + "/api/stats"); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit.")
	<-ctx.Done()

	return nil
}
