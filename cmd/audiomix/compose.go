package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipelined/audiomix/compose"
)

func newMixCmd(deps *dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "mix <a> <b> <out>",
		Short: "Mix two files",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.composer.Mix(args[0], args[1], args[2])
		},
	}
}

func newConcatCmd(deps *dependencies) *cobra.Command {
	var gap float64
	cmd := &cobra.Command{
		Use:   "concat <out> <file>...",
		Short: "Play files one after another",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("gap") {
				gap = deps.cfg.GapSeconds
			}
			return deps.composer.Concat(args[1:], gap, args[0])
		},
	}
	cmd.Flags().Float64VarP(&gap, "gap", "g", 0, "Silence between files in seconds")
	return cmd
}

func newCombineCmd(deps *dependencies) *cobra.Command {
	var req compose.CombineRequest
	cmd := &cobra.Command{
		Use:   "combine <out> <page>...",
		Short: "Combine voice pages with effects and looping background",
		Long:  "Combine voice pages into one sequence. Lead and trail effects are capped and faded out, background is looped under voice pages.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("gap") {
				req.GapSeconds = deps.cfg.GapSeconds
			}
			req.VoicePages = args[1:]
			if err := deps.composer.Combine(req, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Combined %d pages into %s\n", len(req.VoicePages), args[0])
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.LeadEffect, "lead", "", "Effect played before pages")
	flags.StringVar(&req.TrailEffect, "trail", "", "Effect played after pages")
	flags.BoolVar(&req.HasIntroPage, "intro", false, "First page is intro, background starts after it")
	flags.BoolVar(&req.HasEndingPage, "ending", false, "Last page is ending, background stops before it")
	flags.Float64VarP(&req.GapSeconds, "gap", "g", 0, "Silence between segments in seconds")
	flags.StringVarP(&req.Background, "background", "b", "", "Background music file")
	flags.Float64Var(&req.BackgroundVolume, "volume", 1, "Background volume")
	return cmd
}

func newLoudNormCmd(deps *dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "loudnorm <in> <out>",
		Short: "Normalize loudness",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.composer.LoudNorm(args[0], args[1])
		},
	}
}

func newConvertCmd(deps *dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert file into output format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.composer.Convert(args[0], args[1])
		},
	}
}
