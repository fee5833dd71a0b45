package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hastemap-dev/hastemap/internal/cli/config"
	"github.com/hastemap-dev/hastemap/internal/cli/ui"
	"github.com/hastemap-dev/hastemap/internal/haste/builder"
	"github.com/hastemap-dev/hastemap/internal/haste/watch"
	"github.com/hastemap-dev/hastemap/internal/logging"
)

var duplicatesRoot string

func init() {
	duplicatesCmd.Flags().StringVar(&duplicatesRoot, "root", ".", "Root directory to index")
}

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List haste names claimed by more than one file",
	Long:  "Build (or load from cache) the haste map and print every colliding module name.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		rootDir, err := filepath.Abs(duplicatesRoot)
		if err != nil {
			return fmt.Errorf("failed to resolve root: %w", err)
		}

		id := cfg.ID
		roots := cfg.Roots
		if len(roots) == 0 {
			roots = []string{rootDir}
		} else {
			for i, r := range roots {
				roots[i] = filepath.Join(rootDir, r)
			}
		}

		b := builder.New(builder.Config{
			RootDir:        rootDir,
			Roots:          roots,
			Extensions:     cfg.Extensions,
			ID:             id,
			CacheDirectory: cfg.Cache.Directory,
			Source:         watch.NewFSWalkSource(),
			Logger:         logging.New(false),
		}, nil)

		index, err := b.Build(cmd.Context())
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		ui.RenderDuplicates(os.Stdout, index, false)
		return nil
	},
}
