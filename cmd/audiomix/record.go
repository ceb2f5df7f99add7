package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipelined/audiomix/capture"
	"github.com/pipelined/audiomix/live"
)

func newRecordCmd(deps *dependencies) *cobra.Command {
	var (
		duration time.Duration
		meter    bool
	)
	cmd := &cobra.Command{
		Use:   "record <out>",
		Short: "Record default input device",
		Long:  "Record audio from default input device until interrupted (Ctrl+C) or duration elapses.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			cfg := deps.cfg
			d, err := capture.DefaultDevice(cfg.SampleRate, cfg.Channels, capture.DefaultBufferSize)
			if err != nil {
				return err
			}
			r := capture.NewRecorder(d, live.New(args[0], cfg), cfg.SampleRate, cfg.Channels)
			if meter {
				w := cmd.ErrOrStderr()
				r.OnAmplitude = func(a int) {
					fmt.Fprintf(w, "\ramplitude %5d", a)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recording to %s\n", args[0])
			if err := r.Start(ctx); err != nil {
				return err
			}
			return r.Wait()
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop recording after duration")
	cmd.Flags().BoolVar(&meter, "meter", false, "Print amplitude every 100ms")
	return cmd
}
