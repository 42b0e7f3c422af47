package main

import (
	"bovw/internal/db"
	"bovw/internal/server"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve encoding and similarity queries over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides server_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		conf.ServerAddr = serveAddr
	}

	database, err := db.New(conf)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Open(); err != nil {
		return err
	}
	return server.New(database).Run(conf.ServerAddr)
}
