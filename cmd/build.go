package main

import (
	"context"
	"fmt"

	"bovw/internal/dataset"
	"bovw/internal/db"

	"github.com/spf13/cobra"
)

var (
	buildClusters  int
	buildBackend   string
	buildNoIndex   bool
	buildNoWeights bool
)

var buildCmd = &cobra.Command{
	Use:   "build [descriptor-dir]",
	Short: "Build the vocabulary and histogram dataset",
	Long: `Build clusters every descriptor file (*.bin) of descriptor-dir into a
codebook, encodes each image as a histogram and writes the histogram dataset
under <dir>/histograms. descriptor-dir defaults to <dir>/descriptors.

Examples:
  bovw build
  bovw build -k 500 --backend lloyd ./descriptors`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().IntVarP(&buildClusters, "clusters", "k", 0, "Number of visual words (overrides num_clusters)")
	buildCmd.Flags().StringVar(&buildBackend, "backend", "", "Clustering backend: blas or lloyd")
	buildCmd.Flags().BoolVar(&buildNoIndex, "no-index", false, "Do not build the codebook index")
	buildCmd.Flags().BoolVar(&buildNoWeights, "no-reweight", false, "Skip IDF reweighting")
}

func runBuild(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("clusters") {
		conf.NumClusters = buildClusters
	}
	if cmd.Flags().Changed("backend") {
		conf.KMeansBackend = buildBackend
	}
	if buildNoIndex {
		conf.UseIndex = false
	}
	if buildNoWeights {
		conf.Reweight = false
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	dir := conf.DescriptorDir()
	if len(args) == 1 {
		dir = args[0]
	}
	descs, err := dataset.LoadDescriptors(dir)
	if err != nil {
		return err
	}

	database, err := db.New(conf)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Build(context.Background(), descs); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	stats := database.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "vocabulary: %d words of dimension %d\n", stats.Words, stats.Dimension)
	fmt.Fprintf(cmd.OutOrStdout(), "histograms: %d images (reweighted: %t)\n", stats.Images, stats.Reweighted)
	return nil
}
