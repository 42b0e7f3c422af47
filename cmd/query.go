package main

import (
	"encoding/json"
	"fmt"
	"io"

	"bovw/internal/db"
	"bovw/internal/feature"
	"bovw/internal/histogram"
	"bovw/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	queryTopK   int
	queryJSON   bool
	queryImages string
)

var queryCmd = &cobra.Command{
	Use:   "query <descriptor-file>...",
	Short: "Find the dataset images most similar to each query",
	Long: `Query loads the histogram dataset under <dir>/histograms and ranks it
against the histogram of each query descriptor file.

With --images the arguments are image paths whose descriptors were
precomputed into the given directory as <stem>.bin.

Examples:
  bovw query queries/img.bin
  bovw query -n 5 --json queries/*.bin
  bovw query --images ./query_descriptors photos/a.jpg photos/b.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

// QueryResult groups the ranking of one query image.
type QueryResult struct {
	Query   string                 `json:"query"`
	Results []histogram.Similarity `json:"results"`
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntVarP(&queryTopK, "top", "n", 0, "Results per query (overrides num_similar)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output results as JSON")
	queryCmd.Flags().StringVar(&queryImages, "images", "", "Treat arguments as images with descriptors precomputed in this directory")
}

func runQuery(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, err := db.New(conf)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Open(); err != nil {
		return err
	}

	var extractor feature.Extractor
	if queryImages != "" {
		extractor = feature.NewFileExtractor(queryImages)
	}

	var out []QueryResult
	for _, path := range args {
		desc, err := loadQuery(extractor, path)
		if err != nil {
			logger.Error("Query descriptors not loaded", "file", path, "error", err)
			continue
		}
		ranked, err := database.Query(desc, queryTopK)
		if err != nil {
			return fmt.Errorf("query %s: %w", desc.ImagePath, err)
		}
		out = append(out, QueryResult{Query: desc.ImagePath, Results: ranked})
	}
	return writeResults(cmd.OutOrStdout(), out)
}

// loadQuery reads a descriptor file, or extracts the features of an image
// when an extractor is given.
func loadQuery(extractor feature.Extractor, path string) (*feature.Descriptor, error) {
	if extractor == nil {
		return feature.LoadDescriptor(path)
	}
	features, err := extractor.Extract(path)
	if err != nil {
		return nil, err
	}
	return &feature.Descriptor{ImagePath: path, Features: features}, nil
}

func writeResults(w io.Writer, results []QueryResult) error {
	if queryJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s\n", r.Query)
		for i, s := range r.Results {
			fmt.Fprintf(w, "  %d. %s (%.6f)\n", i+1, s.Path, s.Distance)
		}
	}
	return nil
}
