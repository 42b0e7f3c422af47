package main

import (
	"bovw/internal/config"
	"bovw/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dataDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "bovw",
	Short: "bovw - bag of visual words image retrieval",
	Long: `bovw builds a visual vocabulary from local image descriptors, encodes
every image as a histogram of visual words and ranks a dataset by histogram
similarity.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "Working directory holding descriptors/ and histograms/")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

// loadConfig resolves the configuration for a command and applies the
// logging settings. Flags given on the command line win over the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		conf *config.Config
		err  error
	)
	if configPath != "" {
		conf, err = config.FromFile(configPath)
	} else {
		conf, err = config.NewConfig(".")
	}
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("dir") {
		conf.Dir = dataDir
	}
	if verbose {
		conf.LogLevel = logger.DebugLevel
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := logger.InitLogger(conf.LogLevel, conf.LogFile); err != nil {
		return nil, err
	}
	return conf, nil
}
