package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/threadcast/threadcast/config"
	"github.com/threadcast/threadcast/entity"
)

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "threadcast",
		Short:        "Streaming persona chat pipeline",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Missing .env is fine; the environment may be set directly.
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newChatCmd(),
	)

	return cmd
}

// loadPersonas expands each argument into persona yaml files (directories are
// scanned one level deep) and returns the registry keyed by persona name.
func loadPersonas(args []string) (map[string]entity.Persona, error) {
	var personaFiles []string
	for _, arg := range args {
		stat, err := os.Stat(arg)
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "persona-file or persona-files-dir does not exist")
		} else if err != nil {
			return nil, errors.WithStack(err)
		}
		if stat.IsDir() {
			files, err := os.ReadDir(arg)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read persona-files-dir")
			}
			for _, file := range files {
				if file.IsDir() ||
					(!strings.HasSuffix(file.Name(), ".yaml") && !strings.HasSuffix(file.Name(), ".yml")) {
					continue
				}
				personaFiles = append(personaFiles, fmt.Sprintf("%s/%s", arg, file.Name()))
			}
		} else {
			personaFiles = append(personaFiles, arg)
		}
	}
	if len(personaFiles) == 0 {
		return nil, errors.New("no persona files found")
	}

	personas, err := config.LoadPersonasFromFiles(personaFiles)
	if err != nil {
		return nil, err
	}

	registry := make(map[string]entity.Persona, len(personas))
	for _, persona := range personas {
		registry[persona.Name] = persona
	}
	return registry, nil
}
