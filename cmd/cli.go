// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rtaudio/internal/config"
	"rtaudio/internal/log"
	"rtaudio/pkg/build"
)

// options holds the persistent flags. Only flags the user set override the
// configuration file.
type options struct {
	configPath string
	api        string
	input      string
	output     string
	sampleRate int
	frames     int
	lowLatency bool
	gain       float32
	logLevel   string
	tui        bool
	spectrum   string
	ws         string
	udp        string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	buildInfo := build.Get()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "f", "", "YAML configuration file (default: ./rtaudio.yaml or ./config.yaml)")
	flags.StringVar(&opts.api, "api", config.DefaultAPI, "Host API name; empty selects the host default")
	flags.StringVarP(&opts.input, "input", "i", config.DefaultDevice, "Input device name or substring, 'default' or 'none'")
	flags.StringVarP(&opts.output, "output", "o", config.DefaultDevice, "Output device name or substring, 'default' or 'none'")
	flags.IntVarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate, "Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.frames, "frames", "b", config.DefaultFrames, "The number of frames per buffer (affects latency)")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", false, "Use the devices' low latency defaults")
	flags.Float32VarP(&opts.gain, "gain", "g", config.DefaultGain, "Initial linear gain")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.BoolVar(&opts.tui, "tui", false, "Show the interactive level meter")
	flags.StringVar(&opts.spectrum, "spectrum", "", "Publish band levels using this FFT window, e.g. hann")
	flags.StringVar(&opts.ws, "ws", "", "Serve levels and parameters over WebSocket on this address, e.g. :8080")
	flags.StringVar(&opts.udp, "udp", "", "Send level packets over UDP to this address, e.g. 127.0.0.1:9090")

	rootCmd.AddCommand(
		newListCommand(opts),
		newFeedbackCommand(opts),
		newPlayCommand(opts),
		newRenderCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// load reads the configuration file and applies the flags the user set.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("api") {
		cfg.Audio.API = o.api
	}
	if changed("input") {
		cfg.Audio.InputDevice = o.input
		if o.input == config.NoDevice {
			cfg.Audio.InputChannels = 0
		}
	}
	if changed("output") {
		cfg.Audio.OutputDevice = o.output
		if o.output == config.NoDevice {
			cfg.Audio.OutputChannels = 0
		}
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if changed("frames") {
		cfg.Audio.FramesPerBuffer = o.frames
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	if changed("gain") {
		cfg.Processing.Gain = o.gain
	}
	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if changed("spectrum") {
		cfg.Processing.Spectrum = o.spectrum != ""
		cfg.Processing.Window = o.spectrum
	}
	if changed("ws") {
		cfg.Transport.WSEnabled = o.ws != ""
		cfg.Transport.WSAddress = o.ws
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = o.udp != ""
		cfg.Transport.UDPTargetAddress = o.udp
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	log.SetLevel(cfg.Level())
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.Get())
		},
	}
}
