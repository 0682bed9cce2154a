package main

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"staking_tracker/internal/domain/entity"
)

// Exit codes.
const (
	exitFailure     = 1
	exitUnreachable = 2
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	root := &cobra.Command{
		Use:           "snapshot",
		Short:         "Staking snapshot engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand())

	if err := root.Execute(); err != nil {
		log.WithError(err).Error("snapshot failed")
		if errors.Is(err, entity.ErrEndpointUnreachable) {
			os.Exit(exitUnreachable)
		}
		os.Exit(exitFailure)
	}
}
