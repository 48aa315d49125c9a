package main

import(
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abarden/ditherstack/pkg/dstack"
)

var(
	fConfigPath string
	fOutput     string
	fIterations int
	fExtinction float64
	fWindow     int
	fDumpDir    string
	fVerbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "ditherstack [flags] [data-dir]",
		Short: "Reduce dithered exposures into one combined image with variance and coverage planes",
		Long: `ditherstack registers a set of dithered detector exposures onto a
common canvas, iteratively estimates and removes a superflat and the
sky background while masking detected sources, and stacks the
corrected frames with an outlier-resistant median.

The config file carries the global parameters and the frame table
(per-frame offset and airmass); frames load from data-dir, or from the
config file's directory when no data-dir is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run,
	}

	root.Flags().StringVarP(&fConfigPath, "config", "c", "ditherstack.yaml", "config file with parameters and the frame table")
	root.Flags().StringVarP(&fOutput, "output", "o", "", "output bundle filename (overrides config)")
	root.Flags().IntVar(&fIterations, "iterations", 0, "refinement iterations (overrides config)")
	root.Flags().Float64Var(&fExtinction, "extinction", -1, "mean atmospheric extinction coefficient (overrides config)")
	root.Flags().IntVar(&fWindow, "window", 0, "sky neighborhood window (overrides config)")
	root.Flags().StringVar(&fDumpDir, "dump-dir", "", "also render every intermediate artifact to PNGs here")
	root.Flags().BoolVarP(&fVerbose, "verbose", "v", false, "debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if fVerbose {
		dstack.SetLogger(dstack.Logger().Level(zerolog.DebugLevel))
	} else {
		dstack.SetLogger(dstack.Logger().Level(zerolog.InfoLevel))
	}
	log := dstack.Logger()

	cfg, err := dstack.LoadConfig(fConfigPath)
	if err != nil {
		return err
	}

	// Override the config file with command line args, if relevant
	if fOutput != "" { cfg.Parameters.OutputFilename = fOutput }
	if fIterations > 0 { cfg.Parameters.Iterations = fIterations }
	if fExtinction >= 0 { cfg.Parameters.Extinction = fExtinction }
	if fWindow > 0 { cfg.Parameters.Window = fWindow }
	if fDumpDir != "" { cfg.Parameters.DumpDir = fDumpDir }

	dataDir := filepath.Dir(fConfigPath)
	if len(args) > 0 {
		dataDir = args[0]
	}

	descs, err := dstack.LoadFrames(cfg, dataDir)
	if err != nil {
		return err
	}

	reg := dstack.NewRegistry()
	if _, err := reg.Ingest(descs); err != nil {
		return err
	}
	if err := reg.LinkNeighbors(cfg.Parameters.Window); err != nil {
		return err
	}

	var store dstack.ArtifactStore = dstack.NewMemStore()
	if cfg.Parameters.DumpDir != "" {
		if err := os.MkdirAll(cfg.Parameters.DumpDir, 0o755); err != nil {
			return err
		}
		store = &dstack.DumpStore{ArtifactStore: store, Dir: cfg.Parameters.DumpDir}
	}

	detector := dstack.ThresholdDetector{
		Sigma: cfg.Parameters.DetectSigma,
		Grow:  cfg.Parameters.DetectGrow,
	}

	ctl := dstack.NewController(cfg, reg, store, detector)
	res, err := ctl.Run()
	if err != nil {
		return err
	}

	if err := res.WriteHDR(cfg.Parameters.OutputFilename); err != nil {
		return err
	}
	log.Info().Msgf("Output bundle written '%s'", cfg.Parameters.OutputFilename)

	prefix := strings.TrimSuffix(cfg.Parameters.OutputFilename, filepath.Ext(cfg.Parameters.OutputFilename))
	if err := res.WritePNGs(prefix); err != nil {
		return err
	}
	return nil
}
