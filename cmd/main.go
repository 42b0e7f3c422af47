package main

import (
	"os"

	"bovw/pkg/logger"
)

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
