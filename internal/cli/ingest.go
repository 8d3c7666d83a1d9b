package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kushwanth-masupalli/QueryVault/clients/gemini"
	"github.com/kushwanth-masupalli/QueryVault/config"
	"github.com/kushwanth-masupalli/QueryVault/internal/ledger"
	"github.com/kushwanth-masupalli/QueryVault/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <glob>...",
	Short: "Extract, embed and store propositions from documents",
	Long: `Resolve documents matching the given glob patterns, extract atomic
propositions from each paragraph, embed them and upsert them into the index
with their text stored as metadata.

Examples:
  queryvault ingest document.txt
  queryvault ingest "docs/**/*.txt" "notes/*.md"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	paths, err := resolveDocuments(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents matched the given patterns")
	}

	if cfg.GoogleAPIKey == "" {
		return &config.MissingKeyError{Key: "GOOGLE_API_KEY"}
	}
	extractor, err := gemini.NewClient(cfg.GoogleAPIKey, gemini.DefaultModel, cfg.RequestTimeout())
	if err != nil {
		return fmt.Errorf("failed to create extraction client: %w", err)
	}

	var paragraphs []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read document %s: %w", path, err)
		}
		paragraphs = append(paragraphs, splitParagraphs(string(data))...)
	}
	if len(paragraphs) == 0 {
		return fmt.Errorf("matched documents contain no text")
	}

	fmt.Printf("Extracting propositions from %d paragraph(s) across %d document(s)...\n",
		len(paragraphs), len(paths))

	bar := progressbar.NewOptions(len(paragraphs),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	props, err := extractAll(ctx, extractor, paragraphs, func() { bar.Add(1) })
	if err != nil {
		return err
	}
	if len(props) == 0 {
		return fmt.Errorf("extraction produced no propositions")
	}

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Embedding and upserting %d proposition(s)...\n", len(props))
	result, ingestErr := p.Ingest(ctx, props)

	// Record intent even on partial failure: the ledger is what repair
	// reads, and a failed batch is exactly when it is needed.
	if ingestErr == nil || (result != nil && result.Written > 0) {
		pairs := make([]pipeline.RepairPair, len(props))
		for i, prop := range props {
			pairs[i] = pipeline.RepairPair{ID: prop.ID(), Content: strings.TrimSpace(prop.Content)}
		}
		if err := recordRun(pairs); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record run in ledger: %v\n", err)
		}
	}

	if ingestErr != nil {
		if result != nil && result.Written > 0 {
			fmt.Printf("Partial ingest: %d of %d propositions written\n", result.Written, result.Total)
		}
		return ingestErr
	}

	fmt.Printf("Stored %d proposition(s)\n", result.Written)
	preview := props
	if len(preview) > 10 {
		preview = preview[:10]
	}
	for _, prop := range preview {
		fmt.Printf("  %s: %s\n", prop.ID(), strings.TrimSpace(prop.Content))
	}
	if len(props) > len(preview) {
		fmt.Printf("  ... and %d more\n", len(props)-len(preview))
	}

	return nil
}

// extractAll runs the extractor over every paragraph, numbering propositions
// consecutively across paragraph boundaries so ids stay stable for the whole
// run. onParagraph fires after each paragraph for progress reporting.
func extractAll(ctx context.Context, extractor pipeline.PropositionExtractor, paragraphs []string, onParagraph func()) ([]pipeline.Proposition, error) {
	var props []pipeline.Proposition
	for _, paragraph := range paragraphs {
		sentences, err := extractor.ExtractPropositions(ctx, paragraph)
		if err != nil {
			return nil, fmt.Errorf("proposition extraction failed: %w", err)
		}
		for _, sentence := range sentences {
			props = append(props, pipeline.Proposition{
				Content:     sentence,
				SourceIndex: len(props),
			})
		}
		if onParagraph != nil {
			onParagraph()
		}
	}
	return props, nil
}

// resolveDocuments expands glob patterns into a sorted, de-duplicated list of
// file paths. A literal path that exists matches itself.
func resolveDocuments(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[match] {
				seen[match] = true
				paths = append(paths, match)
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// splitParagraphs splits document text into paragraphs on blank lines.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

func recordRun(pairs []pipeline.RepairPair) error {
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer l.Close()

	return l.RecordRun(cfg.Namespace, uuid.NewString(), pairs)
}
