package main

import (
	"github.com/spf13/cobra"

	"github.com/pipelined/audiomix/compose"
	"github.com/pipelined/audiomix/config"
)

// dependencies are resolved before any subcommand runs.
type dependencies struct {
	configPath string
	fileType   string
	bitRate    int
	sampleRate int
	channels   int

	cfg      *config.Config
	composer *compose.Composer
}

func newRootCmd() *cobra.Command {
	deps := &dependencies{}
	rootCmd := &cobra.Command{
		Use:           "audiomix",
		Short:         "Compose, align and re-encode audio files",
		Long:          "A CLI tool that mixes, concatenates, combines narrated sequences with looping background, normalizes loudness, converts and records audio.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return deps.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&deps.configPath, "config", "c", "", "Config file (toml or yaml)")
	flags.StringVarP(&deps.fileType, "type", "t", "", "Output file type: mp3 or wav")
	flags.IntVar(&deps.bitRate, "bit-rate", 0, "Output bit rate in bits per second")
	flags.IntVar(&deps.sampleRate, "sample-rate", 0, "Output sample rate")
	flags.IntVar(&deps.channels, "channels", 0, "Output number of channels")

	rootCmd.AddCommand(newMixCmd(deps))
	rootCmd.AddCommand(newCombineCmd(deps))
	rootCmd.AddCommand(newConcatCmd(deps))
	rootCmd.AddCommand(newLoudNormCmd(deps))
	rootCmd.AddCommand(newConvertCmd(deps))
	rootCmd.AddCommand(newProbeCmd(deps))
	rootCmd.AddCommand(newRecordCmd(deps))
	return rootCmd
}

// load reads configuration and applies flags that were set explicitly.
func (d *dependencies) load(cmd *cobra.Command) error {
	cfg, err := config.Load(d.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("type") {
		cfg.OutputFileType = d.fileType
	}
	if flags.Changed("bit-rate") {
		cfg.BitRate = d.bitRate
	}
	if flags.Changed("sample-rate") {
		cfg.SampleRate = d.sampleRate
	}
	if flags.Changed("channels") {
		cfg.Channels = d.channels
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.cfg = cfg
	d.composer = compose.New(cfg)
	return nil
}
