package main

import (
	"os"

	"cgraph/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.New(logging.Config{Level: logging.Error}, nil).Error("command failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
