package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/hotspot"
	"github.com/sells-group/hotspot-cli/internal/loader"
	"github.com/sells-group/hotspot-cli/internal/model"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run hot spot detection over a shapefile",
	Long:  "Loads polygon units from a shapefile, optionally joins an attribute CSV, computes Gi* z-scores, and writes classified results as CSV.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		shpPath, _ := cmd.Flags().GetString("shapefile")
		idField, _ := cmd.Flags().GetString("id-field")
		valueField, _ := cmd.Flags().GetString("value-field")
		attrPath, _ := cmd.Flags().GetString("attributes")
		attrID, _ := cmd.Flags().GetString("attr-id-column")
		attrValue, _ := cmd.Flags().GetString("attr-value-column")
		outPath, _ := cmd.Flags().GetString("output")
		save, _ := cmd.Flags().GetBool("save")

		units, err := loader.LoadShapefile(shpPath, idField, valueField)
		if err != nil {
			return eris.Wrap(err, "detect")
		}

		if attrPath != "" {
			values, err := loader.LoadAttributes(attrPath, attrID, attrValue)
			if err != nil {
				return eris.Wrap(err, "detect")
			}
			matched := loader.ApplyAttributes(units, values)
			zap.L().Info("attributes joined",
				zap.Int("matched", matched),
				zap.Int("units", len(units)),
			)
		}

		opts := detectOptions(cmd)
		analysis, err := hotspot.Detect(ctx, units, opts)
		if err != nil {
			return eris.Wrap(err, "detect")
		}

		if save {
			if err := persistAnalysis(cmd, shpPath, opts, analysis); err != nil {
				return err
			}
		}

		out := os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrap(err, "detect: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		return writeResultsCSV(out, analysis.Results)
	},
}

// detectOptions merges config defaults with any flags set on the command.
func detectOptions(cmd *cobra.Command) hotspot.Options {
	opts := hotspot.Options{
		VertexTolerance: cfg.Detect.VertexTolerance,
		HighThreshold:   model.Float(cfg.Detect.HighThreshold),
		LowThreshold:    model.Float(cfg.Detect.LowThreshold),
		Workers:         cfg.Detect.Workers,
	}
	if cmd.Flags().Changed("tolerance") {
		opts.VertexTolerance, _ = cmd.Flags().GetFloat64("tolerance")
	}
	if cmd.Flags().Changed("high-threshold") {
		v, _ := cmd.Flags().GetFloat64("high-threshold")
		opts.HighThreshold = model.Float(v)
	}
	if cmd.Flags().Changed("low-threshold") {
		v, _ := cmd.Flags().GetFloat64("low-threshold")
		opts.LowThreshold = model.Float(v)
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers, _ = cmd.Flags().GetInt("workers")
	}
	return opts
}

func persistAnalysis(cmd *cobra.Command, source string, opts hotspot.Options, analysis *model.Analysis) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return eris.New("detect: --save requires a configured store driver")
	}
	defer st.Close() //nolint:errcheck

	run, err := st.CreateRun(ctx, source, opts.Params())
	if err != nil {
		return eris.Wrap(err, "detect: create run")
	}
	if err := st.CompleteRun(ctx, run.ID, analysis.Diagnostics, analysis.Results); err != nil {
		return eris.Wrap(err, "detect: complete run")
	}

	zap.L().Info("run saved", zap.String("run_id", run.ID))
	fmt.Fprintf(os.Stderr, "run saved: %s\n", run.ID)
	return nil
}

func writeResultsCSV(out io.Writer, results []model.Result) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"unit_id", "z_score", "category"}); err != nil {
		return eris.Wrap(err, "detect: write csv")
	}
	for _, r := range results {
		z := ""
		if r.ZScore != nil {
			z = strconv.FormatFloat(*r.ZScore, 'f', -1, 64)
		}
		if err := w.Write([]string{r.ID, z, r.Category}); err != nil {
			return eris.Wrap(err, "detect: write csv")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "detect: flush csv")
}

func init() {
	detectCmd.Flags().String("shapefile", "", "path to polygon shapefile (.shp)")
	detectCmd.Flags().String("id-field", "GEOID", "DBF field holding the unit identifier")
	detectCmd.Flags().String("value-field", "", "DBF field holding the attribute value (omit when joining a CSV)")
	detectCmd.Flags().String("attributes", "", "optional attribute CSV to join by unit id")
	detectCmd.Flags().String("attr-id-column", "id", "attribute CSV column holding the unit id")
	detectCmd.Flags().String("attr-value-column", "value", "attribute CSV column holding the value")
	detectCmd.Flags().String("output", "", "output CSV path (default stdout)")
	detectCmd.Flags().Float64("tolerance", 0, "vertex quantization tolerance (default from config)")
	detectCmd.Flags().Float64("high-threshold", 0, "z-score at or above which a unit is a high cluster")
	detectCmd.Flags().Float64("low-threshold", 0, "z-score at or below which a unit is a low cluster")
	detectCmd.Flags().Int("workers", 0, "parallel workers (default GOMAXPROCS)")
	detectCmd.Flags().Bool("save", false, "persist the run to the configured store")

	_ = detectCmd.MarkFlagRequired("shapefile")

	rootCmd.AddCommand(detectCmd)
}
