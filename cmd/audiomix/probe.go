package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/format"
	"github.com/pipelined/audiomix/metric"
)

func newProbeCmd(deps *dependencies) *cobra.Command {
	var metrics bool
	cmd := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Show format and duration of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			rate := deps.cfg.SampleRate
			for _, path := range args {
				in, err := format.OpenInput(path)
				if err != nil {
					return err
				}
				f := in.Format()
				d, err := format.InputDuration(in, rate)
				in.Close()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%v\t%d samples at %dHz\t%v\n", path, f, d, rate, audiomix.DurationOf(rate, d))
			}
			if metrics {
				printMetrics(cmd, metric.GetAll())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Print decoder metrics")
	return cmd
}

func printMetrics(cmd *cobra.Command, all map[string]map[string]string) {
	w := cmd.OutOrStdout()
	types := make([]string, 0, len(all))
	for t := range all {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		counters := make([]string, 0, len(all[t]))
		for c := range all[t] {
			counters = append(counters, c)
		}
		sort.Strings(counters)
		fmt.Fprintf(w, "%s\n", t)
		for _, c := range counters {
			fmt.Fprintf(w, "\t%s: %s\n", c, all[t][c])
		}
	}
}
