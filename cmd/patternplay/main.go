// Package main is the entry point for the patternplay CLI
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/james-see/patternplay/internal/app"
	"github.com/james-see/patternplay/pkg/api"
	"github.com/james-see/patternplay/pkg/config"
	"github.com/james-see/patternplay/pkg/sink"
	"github.com/james-see/patternplay/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath  string
	dryRun      bool
	recordPath  string
	development bool
	flagCfg     = config.Default()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "patternplay",
	Short: "Live MIDI pattern playback",
	Long: `patternplay is a live-coding REPL for short MIDI patterns.

Define patterns from note names, transform them (transpose, reverse, speed,
shift) and play them on a MIDI output. Stopping playback always silences
every sounding note.

Examples:
  patternplay
  patternplay --port "IAC Driver Bus 1" --channel 10
  patternplay run melody.pp
  patternplay run melody.pp --record take.mid
  echo "seq c4 e4 g4" | patternplay run - --dry-run
  patternplay ports
  patternplay serve --listen :8080`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage: true,
	RunE:         runREPL,
}

var runCmd = &cobra.Command{
	Use:   "run <script|->",
	Short: "Execute a command script and wait for playback to finish",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	Args:  cobra.NoArgs,
	RunE:  runPorts,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	pf.IntVarP(&flagCfg.Tempo, "tempo", "t", flagCfg.Tempo, "Tempo in BPM (20-300)")
	pf.IntVar(&flagCfg.Velocity, "velocity", flagCfg.Velocity, "Default note velocity (0-127)")
	pf.Float64Var(&flagCfg.NoteLength, "length", flagCfg.NoteLength, "Default note length in beats")
	pf.DurationVar(&flagCfg.Latency, "latency", flagCfg.Latency, "Output latency compensation")
	pf.IntVar(&flagCfg.Channel, "channel", flagCfg.Channel, "MIDI channel (1-16)")
	pf.StringVarP(&flagCfg.Port, "port", "p", flagCfg.Port, "MIDI output port name or index")
	pf.BoolVar(&flagCfg.AllChannels, "all-channels", flagCfg.AllChannels, "Send all-notes-off on all 16 channels")
	pf.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&flagCfg.LogFile, "log-file", flagCfg.LogFile, "Write logs to this file")
	pf.BoolVar(&dryRun, "dry-run", false, "Record output in memory instead of sending MIDI")
	pf.BoolVar(&development, "dev", false, "Human readable console logs")
	pf.StringVar(&recordPath, "record", "", "Capture all output to this MIDI file")

	// serve command
	serveCmd.Flags().StringVarP(&flagCfg.Listen, "listen", "l", flagCfg.Listen, "Listen address")

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the config file and applies flags the user set
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("tempo") {
		cfg.Tempo = flagCfg.Tempo
	}
	if flags.Changed("velocity") {
		cfg.Velocity = flagCfg.Velocity
	}
	if flags.Changed("length") {
		cfg.NoteLength = flagCfg.NoteLength
	}
	if flags.Changed("latency") {
		cfg.Latency = flagCfg.Latency
	}
	if flags.Changed("channel") {
		cfg.Channel = flagCfg.Channel
	}
	if flags.Changed("port") {
		cfg.Port = flagCfg.Port
	}
	if flags.Changed("all-channels") {
		cfg.AllChannels = flagCfg.AllChannels
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagCfg.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = flagCfg.LogFile
	}
	if flags.Changed("listen") {
		cfg.Listen = flagCfg.Listen
	}
	return cfg, cfg.Validate()
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	notifier := &tui.Notifier{}
	a, err := app.New(cfg, app.Options{
		DryRun:      dryRun,
		Development: development,
		Quiet:       true,
		Record:      recordPath,
		OnFinish:    notifier.Finished,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(a.Interp, notifier)
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.Options{DryRun: dryRun, Development: development, Record: recordPath})
	if err != nil {
		return err
	}
	defer a.Close()

	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Interp.Run(r, cmd.OutOrStdout()); err != nil {
		return err
	}

	res, err := a.Player.Wait(ctx)
	if err != nil {
		// interrupted: Close stops and flushes
		fmt.Fprintln(cmd.ErrOrStderr(), "interrupted, stopping playback")
		return nil
	}
	if res.Err != nil {
		return res.Err
	}
	if a.Recorder != nil {
		fmt.Fprint(cmd.OutOrStdout(), a.Recorder.String())
	}
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports := sink.Ports()
	defer sink.CloseDriver()
	if len(ports) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No MIDI output ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", p.Index, p.Name)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.Options{DryRun: dryRun, Development: development, Record: recordPath})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Swagger docs available at http://localhost%s/swagger/index.html\n", cfg.Listen)
	return api.NewServer(a.Interp, a.Log.Named("api")).Serve(ctx, cfg.Listen)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
