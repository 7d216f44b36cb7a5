// Package main is the entry point for the midigen CLI
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/freeman-jiang/midigen/pkg/api"
	"github.com/freeman-jiang/midigen/pkg/converter"
	"github.com/freeman-jiang/midigen/pkg/tokens"
	"github.com/freeman-jiang/midigen/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile       string
	printTokens      bool
	printReadable    bool
	defaultVelocity  uint8
	velocityBuckets  int
	shiftGranularity int
	maxTimeShift     int
	serverHost       string
	serverPort       int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midigen",
	Short: "Convert MIDI files to token sequences and back",
	Long: `midigen converts standard MIDI files into discrete token sequences
for sequence-generation models, and converts token sequences (including
model-generated, possibly malformed ones) back into playable MIDI files.

Examples:
  midigen tokenize song.mid -o song.tokens
  midigen tokenize song.mid --readable
  midigen detokenize song.tokens -o song.mid --velocity 80
  midigen convert song.mid -o song.tokens
  midigen tui
  midigen serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <input.mid>",
	Short: "Convert a MIDI file to a token sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

var detokenizeCmd = &cobra.Command{
	Use:   "detokenize <input.tokens>",
	Short: "Convert a token file back to a playable MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetokenize,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between MIDI and token files",
	Long:  `Automatically detects the input format and converts to the output format based on file extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the vocabulary layout for the active configuration",
	RunE:  runVocab,
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
	// Quantization flags, shared by every codec command
	rootCmd.PersistentFlags().IntVar(&velocityBuckets, "buckets", 32, "Number of velocity quantization buckets (1-128)")
	rootCmd.PersistentFlags().IntVar(&shiftGranularity, "granularity", 120, "Time-shift step size in ticks")
	rootCmd.PersistentFlags().IntVar(&maxTimeShift, "max-shift", 1920, "Largest time shift a single token can carry, in ticks")
	rootCmd.PersistentFlags().Uint8VarP(&defaultVelocity, "velocity", "v", 64, "Velocity for note-on tokens lacking a velocity token (0-127)")

	tokenizeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output token file path")
	tokenizeCmd.Flags().BoolVarP(&printTokens, "print-tokens", "p", false, "Print the token IDs")
	tokenizeCmd.Flags().BoolVarP(&printReadable, "readable", "r", false, "Print human-readable token descriptions")

	detokenizeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	serveCmd.Flags().StringVar(&serverHost, "host", "", "Interface to bind (empty binds all interfaces)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(detokenizeCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(vocabCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func activeConfig() tokens.Config {
	return tokens.Config{
		VelocityBuckets:      velocityBuckets,
		TimeShiftGranularity: shiftGranularity,
		MaxTimeShift:         maxTimeShift,
		DefaultVelocity:      defaultVelocity,
	}
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runTokenize(cmd *cobra.Command, args []string) error {
	input := args[0]

	conv, err := converter.New(activeConfig())
	if err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	ids, err := conv.MIDIToTokens(data)
	if err != nil {
		return err
	}

	if printTokens {
		fmt.Println("Token sequence:")
		fmt.Println(ids)
		fmt.Printf("Total tokens: %d\n", len(ids))
	}
	if printReadable {
		fmt.Print(conv.TokensReadable(ids))
	}

	if outputFile != "" || (!printTokens && !printReadable) {
		output := getOutputPath(input, ".tokens")
		if err := os.WriteFile(output, []byte(tokens.FormatTokenText(ids)), 0644); err != nil {
			return err
		}
		fmt.Printf("Tokenized %s -> %s (%d tokens)\n", input, output, len(ids))
	}
	return nil
}

func runDetokenize(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".mid")

	conv, err := converter.New(activeConfig())
	if err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	ids, err := tokens.ParseTokenText(string(data))
	if err != nil {
		return err
	}

	result, err := conv.TokensToMIDI(ids)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result, 0644); err != nil {
		return err
	}

	fmt.Printf("Detokenized %s -> %s\n", input, output)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]

	conv, err := converter.New(activeConfig())
	if err != nil {
		return err
	}

	fmt.Printf("Converting %s -> %s\n", input, outputFile)
	if err := conv.ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runVocab(cmd *cobra.Command, args []string) error {
	vocab, err := tokens.NewVocab(activeConfig())
	if err != nil {
		return err
	}
	fmt.Printf("Vocabulary size: %d\n", vocab.Size())
	fmt.Println("NOTE_ON:        0-127")
	fmt.Println("NOTE_OFF:       128-255")
	fmt.Printf("TIME_SHIFT:     256-%d (%d buckets of %d ticks)\n", 255+vocab.ShiftBuckets(), vocab.ShiftBuckets(), vocab.Config().TimeShiftGranularity)
	fmt.Printf("VELOCITY:       %d-%d (%d buckets)\n", 256+vocab.ShiftBuckets(), vocab.StartID()-1, vocab.Config().VelocityBuckets)
	fmt.Printf("START_SEQUENCE: %d\n", vocab.StartID())
	fmt.Printf("END_SEQUENCE:   %d\n", vocab.EndID())
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverHost, serverPort)
}
