package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/blockcanvas/indy/internal/aicontext"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/intent"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/spf13/cobra"
)

var (
	summarizeNoHints   bool
	summarizeMaxDepth  int
	summarizeNoDefault bool
	summarizeNoEnums   bool

	contextCurrent string
	contextTarget  string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [blockType]",
	Short: "Print the schema summary the model sees for a block type",
	Long: `Print the compact schema summary of a block type. Without an argument
the registered block types are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.Default()
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			for _, d := range reg.Blocks() {
				fmt.Fprintf(out, "%-14s %s\n", d.Kind, d.Description)
			}
			return nil
		}

		desc, err := reg.Resolve(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, schema.Summarise(desc.Schema, schema.SummaryOptions{
			IncludeHints:    !summarizeNoHints,
			MaxDepth:        summarizeMaxDepth,
			ExcludeDefaults: summarizeNoDefault,
			ExcludeEnums:    summarizeNoEnums,
		}))
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context <blockType>",
	Short: "Print the AI context built for a block",
	Long: `Print, as JSON, the context the assistant sends to the model for a block.

Without --current this is the create context. With --current (a JSON file of
the block's data) the intent is classified and the update context printed;
--target then compresses it to one dot path, e.g. background.color.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	summarizeCmd.Flags().BoolVar(&summarizeNoHints, "no-hints", false, "omit content hints")
	summarizeCmd.Flags().IntVar(&summarizeMaxDepth, "max-depth", 0, "maximum nesting depth (0 = default)")
	summarizeCmd.Flags().BoolVar(&summarizeNoDefault, "no-defaults", false, "omit default values")
	summarizeCmd.Flags().BoolVar(&summarizeNoEnums, "no-enums", false, "omit enum values")

	contextCmd.Flags().StringVar(&contextCurrent, "current", "", "JSON file with the block's current data")
	contextCmd.Flags().StringVar(&contextTarget, "target", "", "dot path to compress the update context to")
}

func runContext(cmd *cobra.Command, args []string) error {
	reg := registry.Default()
	builder := aicontext.NewBuilder(reg)
	tokens, err := loadTokens()
	if err != nil {
		return err
	}

	var result any
	if contextCurrent == "" {
		if contextTarget != "" {
			return errors.ValidationError("--target requires --current")
		}
		result, err = builder.PrepareBlockAIContext(args[0], tokens, intent.Create)
		if err != nil {
			return err
		}
	} else {
		current, err := readBlockData(contextCurrent)
		if err != nil {
			return err
		}
		desc, err := reg.Resolve(args[0])
		if err != nil {
			return err
		}
		classified := intent.Classify(intent.Input{Current: current, DefaultData: desc.Defaults()})
		logger.WithField("intent", classified.Intent).Debug(classified.Reason)

		if classified.Intent != intent.Update {
			result, err = builder.PrepareBlockAIContext(args[0], tokens, classified.Intent)
		} else {
			built, buildErr := builder.PrepareBlockUpdateContext(args[0], current, tokens)
			err = buildErr
			result = built
			if err == nil && contextTarget != "" {
				result = aicontext.CompressBlockUpdateContextForTarget(built, contextTarget)
			}
		}
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readBlockData(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigErrorf("read %s: %v", path, err)
	}
	var current map[string]any
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, errors.ParseError(err, "block data must be a JSON object")
	}
	return current, nil
}
