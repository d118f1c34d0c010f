package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"codesense/internal/config"
	"codesense/internal/logging"
	"codesense/pkg/engine"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	jsonOutput bool

	// Logger
	logger *zap.Logger

	// Shared engine, built in PersistentPreRunE
	eng *engine.Engine
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "codesense",
	Short: "codesense - code intent inference engine",
	Long: `codesense infers architectural and behavioral intent from raw source text.

It classifies a snippet's purpose, extracts developer-stated goals, scores
goal/code alignment, flags structural anomalies, matches design-pattern
archetypes, learns labeled pattern prototypes, and fuses all of it into a
single confidence-scored report.

The engine is purely lexical: no AST, no execution, no guarantees beyond a
ranked, explainable hypothesis.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}

		path := configPath
		if path == "" {
			path = filepath.Join(ws, config.DefaultConfigPath)
		}
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		eng, err = engine.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize engine: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if eng != nil {
			_ = eng.Close()
		}
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// analyzeCmd runs the full synthesis over one snippet
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|code|-]",
	Short: "Run every analysis layer and print the fused report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args[0])
		if err != nil {
			return err
		}

		report := eng.Understand(context.Background(), code)
		if jsonOutput {
			return printJSON(report)
		}

		fmt.Printf("Report %s\n", report.ReportID)
		fmt.Printf("Overall score: %.2f\n", report.OverallScore)
		if report.Purpose != nil {
			fmt.Printf("Primary purpose: %s (%.2f)\n", report.Purpose.Primary.Category.Name, report.Purpose.Primary.Confidence)
		}
		if len(report.Archetypes) > 0 {
			fmt.Println("Archetypes:")
			for _, m := range report.Archetypes {
				fmt.Printf("  - %s (%.2f)\n", m.Template.Name, m.Confidence)
			}
		}
		if len(report.Goals) > 0 {
			fmt.Println("Goals:")
			for _, g := range report.Goals {
				fmt.Printf("  - [%s/%s] line %d: %s\n", g.Type, g.Priority, g.Line, g.Text)
			}
		}
		if len(report.Anomalies) > 0 {
			fmt.Println("Anomalies:")
			for _, a := range report.Anomalies {
				fmt.Printf("  - %s (%.2f): %s\n", a.Marker, a.Deviation, a.Reason)
			}
		}
		if len(report.Recommendations) > 0 {
			fmt.Println("Recommendations:")
			for _, r := range report.Recommendations {
				fmt.Printf("  - %s\n", r)
			}
		}
		if len(report.Degraded) > 0 {
			fmt.Printf("Degraded layers: %s\n", strings.Join(report.Degraded, ", "))
		}
		return nil
	},
}

// deepCmd is analyze plus derived relationships
var deepCmd = &cobra.Command{
	Use:   "deep [file|code|-]",
	Short: "Run a deep analysis with purpose/archetype relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args[0])
		if err != nil {
			return err
		}

		deep := eng.AnalyzeDeep(context.Background(), code)
		if jsonOutput {
			return printJSON(deep)
		}

		fmt.Printf("Report %s (overall %.2f)\n", deep.ReportID, deep.OverallScore)
		if len(deep.Relationships) == 0 {
			fmt.Println("No relationships derived.")
			return nil
		}
		fmt.Println("Relationships:")
		for _, rel := range deep.Relationships {
			fmt.Printf("  - [%s] %s -> %s: %s\n", rel.Kind, rel.From, rel.To, rel.Note)
		}
		return nil
	},
}

// discoverCmd analyzes a batch and surfaces shared archetypes
var discoverCmd = &cobra.Command{
	Use:   "discover [file...]",
	Short: "Analyze several samples and report the archetypes they share",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		samples := make([]string, 0, len(args))
		for _, arg := range args {
			code, err := readCode(arg)
			if err != nil {
				return err
			}
			samples = append(samples, code)
		}

		disc := eng.ComprehensiveAnalysisWithDiscovery(context.Background(), samples)
		if jsonOutput {
			return printJSON(disc)
		}

		fmt.Printf("Analyzed %d samples (average score %.2f)\n", len(disc.Reports), disc.AverageScore)
		if len(disc.CommonArchetypes) == 0 {
			fmt.Println("No archetype is shared by every sample.")
			return nil
		}
		fmt.Printf("Common archetypes: %s\n", strings.Join(disc.CommonArchetypes, ", "))
		return nil
	},
}

// goalsCmd extracts goal comments
var goalsCmd = &cobra.Command{
	Use:   "goals [file|code|-]",
	Short: "Extract TODO/FIXME/NOTE/OPTIMIZE goals from comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args[0])
		if err != nil {
			return err
		}

		goalList := eng.ExtractGoals(code)
		if jsonOutput {
			return printJSON(goalList)
		}
		if len(goalList) == 0 {
			fmt.Println("No goals found.")
			return nil
		}
		for _, g := range goalList {
			fmt.Printf("[%s/%s] line %d: %s\n", g.Type, g.Priority, g.Line, g.Text)
		}
		return nil
	},
}

// alignCmd scores a stated goal against code
var alignCmd = &cobra.Command{
	Use:   "align [goal] [file|code|-]",
	Short: "Score how well a stated goal aligns with the code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args[1])
		if err != nil {
			return err
		}

		alignment := eng.ScoreAlignment(args[0], code)
		if jsonOutput {
			return printJSON(alignment)
		}

		fmt.Printf("Aligned: %v (score %.2f)\n", alignment.Aligned, alignment.Score)
		for _, m := range alignment.Matches {
			fmt.Printf("  %s -> %s\n", m.GoalKeyword, m.CodeTerm)
		}
		return nil
	},
}

// archetypesCmd matches code against the catalogue
var archetypesCmd = &cobra.Command{
	Use:   "archetypes [file|code|-]",
	Short: "Rank the code against the archetype catalogue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args[0])
		if err != nil {
			return err
		}

		matches := eng.MatchArchetypes(code)
		if jsonOutput {
			return printJSON(matches)
		}
		if len(matches) == 0 {
			fmt.Println("No archetype matched.")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%s (%.2f)\n", m.Template.Name, m.Confidence)
		}
		return nil
	},
}

// learnCmd trains a labeled prototype
var learnCmd = &cobra.Command{
	Use:   "learn [label] [file|code|-]",
	Short: "Fold a labeled sample into the pattern prototypes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args[1])
		if err != nil {
			return err
		}

		if err := eng.LearnPatterns([]string{code}, []string{args[0]}); err != nil {
			return fmt.Errorf("learning failed: %w", err)
		}
		fmt.Printf("Learned sample for label %q\n", args[0])
		return nil
	},
}

// predictCmd predicts the nearest learned label
var predictCmd = &cobra.Command{
	Use:   "predict [file|code|-]",
	Short: "Predict the nearest learned label for the code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(args[0])
		if err != nil {
			return err
		}

		p := eng.Predict(code)
		if jsonOutput {
			return printJSON(p)
		}
		fmt.Printf("%s (%.2f)\n", p.Label, p.Confidence)
		return nil
	},
}

// similarityCmd compares two snippets
var similarityCmd = &cobra.Command{
	Use:   "similarity [fileA|code|-] [fileB|code]",
	Short: "Compute the pairwise similarity of two snippets",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := readCode(args[0])
		if err != nil {
			return err
		}
		b, err := readCode(args[1])
		if err != nil {
			return err
		}

		score := eng.Similarity(a, b)
		if jsonOutput {
			return printJSON(map[string]float64{"score": score})
		}
		fmt.Printf("%.4f\n", score)
		return nil
	},
}

// metricsCmd prints the cumulative suite counters
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show cumulative suite metrics for this engine instance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := eng.SuiteMetrics()
		if jsonOutput {
			return printJSON(snap)
		}
		fmt.Printf("Total analyses: %d\n", snap.TotalAnalyses)
		fmt.Printf("Average confidence: %.2f\n", snap.AverageConfidence)
		return nil
	},
}

// decayCmd ages stale stored prototypes
var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Reduce the inertia of stale stored prototypes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := eng.DecayPrototypes()
		if err != nil {
			return fmt.Errorf("decay failed: %w", err)
		}
		fmt.Printf("Decayed %d prototype(s)\n", n)
		return nil
	},
}

// readCode resolves a CLI argument into code text: "-" reads stdin, an
// existing file path reads the file, anything else is taken literally.
func readCode(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", arg, err)
		}
		return string(data), nil
	}
	return arg, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.codesense/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of text")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(deepCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(alignCmd)
	rootCmd.AddCommand(archetypesCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(similarityCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(decayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
