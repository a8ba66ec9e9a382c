// Package main is the entry point for midi2deluge CLI
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/james-see/midi2deluge/pkg/api"
	"github.com/james-see/midi2deluge/pkg/config"
	"github.com/james-see/midi2deluge/pkg/converter"
	"github.com/james-see/midi2deluge/pkg/deluge"
	"github.com/james-see/midi2deluge/pkg/transcribe"
	"github.com/james-see/midi2deluge/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile   string
	templatePath string
	outputFile   string
	outputDir    string
	midiDir      string
	basicPitch   string
	serverPort   int
	separate     bool
	verbose      bool

	sonifyMIDI       bool
	saveModelOutputs bool
	saveNotes        bool

	cfg    config.Config
	logger = log.New(io.Discard, "", 0)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midi2deluge",
	Short: "Convert MIDI and audio into Synthstrom Deluge songs",
	Long: `midi2deluge turns MIDI files, JSON clip lists and audio recordings
into Synthstrom Deluge song XML.

Every non-drum MIDI track becomes an instrument clip with its own preset and
colour, cloned from a template song.

Examples:
  midi2deluge template data/deluge_songs
  midi2deluge convert bass.mid lead.mid -o song.xml
  midi2deluge convert *.mid --separate --output-dir songs/
  midi2deluge clips melody.mid -o melody.json
  midi2deluge inject melody.json
  midi2deluge transcribe recordings/
  midi2deluge tui
  midi2deluge serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>...",
	Short: "Convert MIDI files or clip lists into a song",
	Long: `Reads every input (.mid or .json) and writes one combined song, or one
song per input with --separate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

var injectCmd = &cobra.Command{
	Use:   "inject <clips.json>",
	Short: "Inject a JSON clip list into the template",
	Long:  `Writes output.xml next to the template, or to --output when given.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInject,
}

var validateCmd = &cobra.Command{
	Use:   "validate <clips.json>",
	Short: "Check a JSON clip list without writing a song",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var clipsCmd = &cobra.Command{
	Use:   "clips <input.mid>",
	Short: "Export the clips of a MIDI file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runClips,
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-dir>",
	Short: "Transcribe audio with basic-pitch and build a song",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the instrument presets clips are assigned from",
	Args:  cobra.NoArgs,
	RunE:  runPresets,
}

var templateCmd = &cobra.Command{
	Use:   "template [dir]",
	Short: "Write the built-in template song",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplate,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&templatePath, "template", "t", "", "Template song (default data/deluge_songs/base.XML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output song path")
	convertCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory")
	convertCmd.Flags().BoolVar(&separate, "separate", false, "Write one song per input")

	// inject command
	injectCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output song path")

	// clips command
	clipsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .json file path")

	// transcribe command
	transcribeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output song path")
	transcribeCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory")
	transcribeCmd.Flags().StringVar(&midiDir, "midi-dir", "", "Directory for transcribed MIDI files")
	transcribeCmd.Flags().StringVar(&basicPitch, "basic-pitch", "", "basic-pitch executable")
	transcribeCmd.Flags().BoolVar(&sonifyMIDI, "sonify-midi", false, "Also render the MIDI to audio")
	transcribeCmd.Flags().BoolVar(&saveModelOutputs, "save-model-outputs", false, "Keep raw model outputs")
	transcribeCmd.Flags().BoolVar(&saveNotes, "save-notes", false, "Keep note event CSVs")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default 8080)")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(clipsCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig layers flags over the config file and environment
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	if templatePath != "" {
		cfg.TemplatePath = templatePath
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if midiDir != "" {
		cfg.MIDIDir = midiDir
	}
	if basicPitch != "" {
		cfg.BasicPitch = basicPitch
	}
	if serverPort != 0 {
		cfg.Port = serverPort
	}
	if cmd.Flags().Changed("separate") {
		cfg.Separate = separate
	}

	if verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return nil
}

func newConverter() *converter.Converter {
	conv := converter.New(cfg.TemplatePath)
	conv.SetLogger(logger)
	return conv
}

func printResult(res *converter.ConversionResult) {
	fmt.Printf("Wrote %s (%d clips, %s)\n", res.Output, res.Clips, humanize.Bytes(uint64(res.Size)))
	for _, p := range res.Presets {
		fmt.Printf("  preset: %s\n", p)
	}
	for _, skipped := range res.Skipped {
		fmt.Printf("  skipped: %s\n", skipped)
	}
}

func convertInputs(inputs []string) error {
	conv := newConverter()

	if cfg.Separate {
		results, err := conv.ConvertSeparate(inputs, cfg.OutputDir)
		for _, res := range results {
			printResult(res)
		}
		return err
	}

	output := outputFile
	if output == "" {
		output = filepath.Join(cfg.OutputDir, converter.CombinedOutputName(inputs))
	}

	fmt.Printf("Converting %s -> %s\n", strings.Join(inputs, ", "), output)
	res, err := conv.ConvertFiles(inputs, output)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	return convertInputs(args)
}

func runInject(cmd *cobra.Command, args []string) error {
	clips, err := deluge.ReadClipsFile(args[0])
	if err != nil {
		return err
	}

	res, err := newConverter().ConvertClips(clips, outputFile)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	clips, err := deluge.ReadClipsFile(args[0])
	if err == nil {
		err = deluge.Check(clips)
	}
	if err != nil {
		return fmt.Errorf("%s is not valid: %w", args[0], err)
	}
	fmt.Printf("%s is valid (%d clips)\n", args[0], len(clips))
	return nil
}

func runClips(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := outputFile
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".json"
	}

	clips, err := newConverter().ClipsFromFile(input)
	if err != nil {
		return err
	}

	data, err := deluge.EncodeClips(clips)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s (%d clips)\n", input, output, len(clips))
	return nil
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tr := transcribe.New(cfg.BasicPitch)
	tr.SetLogger(logger)

	fmt.Printf("Transcribing audio in %s...\n", args[0])
	midiFiles, err := tr.Transcribe(ctx, args[0], cfg.MIDIDir, transcribe.Options{
		SonifyMIDI:       sonifyMIDI,
		SaveModelOutputs: saveModelOutputs,
		SaveNotes:        saveNotes,
	})
	if err != nil {
		return err
	}
	if len(midiFiles) == 0 {
		return fmt.Errorf("no MIDI files found in %s", cfg.MIDIDir)
	}
	fmt.Printf("Found %d MIDI file(s) to convert\n", len(midiFiles))

	if outputFile == "" && !cfg.Separate {
		outputFile = filepath.Join(cfg.OutputDir, transcribe.OriginalName(midiFiles[0])+".xml")
	}
	return convertInputs(midiFiles)
}

func runPresets(cmd *cobra.Command, args []string) error {
	for _, p := range deluge.Catalog() {
		fmt.Println(p)
	}
	fmt.Printf("\n%d presets, colour offsets %d..%d\n", deluge.MaxClips, deluge.MinColorOffset, deluge.MaxColorOffset)
	return nil
}

func runTemplate(cmd *cobra.Command, args []string) error {
	dir := filepath.Dir(cfg.TemplatePath)
	if len(args) == 1 {
		dir = args[0]
	}
	path, err := deluge.WriteDefaultTemplate(dir)
	if err != nil {
		return err
	}
	fmt.Printf("Template available at %s\n", path)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(newConverter())
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", cfg.Port)
	return api.StartServer(cfg.Port, newConverter())
}
