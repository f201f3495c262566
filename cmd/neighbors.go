package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/hotspot-cli/internal/contiguity"
	"github.com/sells-group/hotspot-cli/internal/loader"
)

var neighborsCmd = &cobra.Command{
	Use:   "neighbors",
	Short: "Inspect the queen contiguity graph for a shapefile",
	Long:  "Builds the contiguity graph without running the statistic and prints per-unit degrees, useful for checking tolerance settings and spotting islands.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		shpPath, _ := cmd.Flags().GetString("shapefile")
		idField, _ := cmd.Flags().GetString("id-field")
		listEdges, _ := cmd.Flags().GetBool("edges")

		units, err := loader.LoadShapefile(shpPath, idField, "")
		if err != nil {
			return eris.Wrap(err, "neighbors")
		}

		opts := []contiguity.Option{}
		if cmd.Flags().Changed("tolerance") {
			tol, _ := cmd.Flags().GetFloat64("tolerance")
			opts = append(opts, contiguity.WithTolerance(tol))
		} else {
			opts = append(opts, contiguity.WithTolerance(cfg.Detect.VertexTolerance))
		}
		if cmd.Flags().Changed("workers") {
			n, _ := cmd.Flags().GetInt("workers")
			opts = append(opts, contiguity.WithWorkers(n))
		}

		graph, stats, err := contiguity.Build(ctx, units, opts...)
		if err != nil {
			return eris.Wrap(err, "neighbors")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UNIT\tDEGREE\tNEIGHBORS")
		for _, id := range graph.IDs() {
			neighbors := ""
			if listEdges {
				neighbors = strings.Join(graph.Neighbors(id), ",")
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", id, graph.Degree(id), neighbors)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "neighbors")
		}

		fmt.Fprintf(os.Stderr, "units: %d  edges: %d  islands: %d  invalid geometries: %d\n",
			len(graph.IDs()), stats.Edges, stats.Islands, stats.InvalidGeometries)
		return nil
	},
}

func init() {
	neighborsCmd.Flags().String("shapefile", "", "path to polygon shapefile (.shp)")
	neighborsCmd.Flags().String("id-field", "GEOID", "DBF field holding the unit identifier")
	neighborsCmd.Flags().Float64("tolerance", 0, "vertex quantization tolerance (default from config)")
	neighborsCmd.Flags().Int("workers", 0, "parallel workers (default GOMAXPROCS)")
	neighborsCmd.Flags().Bool("edges", false, "list each unit's neighbor ids")

	_ = neighborsCmd.MarkFlagRequired("shapefile")

	rootCmd.AddCommand(neighborsCmd)
}
