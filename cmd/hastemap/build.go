package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hastemap-dev/hastemap/internal/cli/config"
	"github.com/hastemap-dev/hastemap/internal/cli/ui"
	"github.com/hastemap-dev/hastemap/internal/haste"
	"github.com/hastemap-dev/hastemap/internal/haste/builder"
	"github.com/hastemap-dev/hastemap/internal/haste/watch"
	"github.com/hastemap-dev/hastemap/internal/logging"
)

var (
	buildJSON        bool
	buildVerbose     bool
	buildResetCache  bool
	buildComputeSha1 bool
	buildRoot        string
	buildID          string
	buildMaxWorkers  int
)

func init() {
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "Output the build summary as JSON")
	buildCmd.Flags().BoolVar(&buildVerbose, "verbose", false, "Show detailed build output")
	buildCmd.Flags().BoolVar(&buildResetCache, "reset-cache", false, "Ignore any existing cache and crawl from scratch")
	buildCmd.Flags().BoolVar(&buildComputeSha1, "sha1", false, "Compute a content digest for every tracked file")
	buildCmd.Flags().StringVar(&buildRoot, "root", ".", "Root directory to index")
	buildCmd.Flags().StringVar(&buildID, "id", "", "Cache namespace; defaults to the configured project id")
	buildCmd.Flags().IntVar(&buildMaxWorkers, "max-workers", 0, "Upper bound on parallel worker tasks; 0 uses workers.max from the config, and 0 there uses the logical CPU count")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Crawl the source tree and build (or refresh) the haste map",
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		rootDir, err := filepath.Abs(buildRoot)
		if err != nil {
			return fmt.Errorf("failed to resolve root: %w", err)
		}

		id := buildID
		if id == "" {
			id = cfg.ID
		}

		roots := cfg.Roots
		if len(roots) == 0 {
			roots = []string{rootDir}
		} else {
			for i, r := range roots {
				roots[i] = filepath.Join(rootDir, r)
			}
		}

		maxWorkers := buildMaxWorkers
		if maxWorkers == 0 {
			maxWorkers = cfg.Workers.Max
		}

		logger := logging.New(buildVerbose)
		defer logger.Sync()

		b := builder.New(builder.Config{
			RootDir:        rootDir,
			Roots:          roots,
			Extensions:     cfg.Extensions,
			Platforms:      cfg.Platforms,
			MaxWorkers:     maxWorkers,
			ForceInBand:    cfg.Workers.ForceInBand,
			ComputeSha1:    buildComputeSha1,
			ID:             id,
			CacheDirectory: cfg.Cache.Directory,
			ResetCache:     buildResetCache || cfg.Cache.Reset,
			RetainAllFiles: false,
			Source:         watch.NewFSWalkSource(),
			Logger:         logger,
		}, nil)

		index, err := b.Build(cmd.Context())
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		elapsed := time.Since(startTime)

		if buildJSON {
			return outputBuildJSON(index, elapsed)
		}

		ui.RenderBuildSummary(os.Stdout, index, false)
		fmt.Printf("\nbuild finished in %.2fs\n", elapsed.Seconds())
		return nil
	},
}

type buildSummaryJSON struct {
	Files          int     `json:"files"`
	Modules        int     `json:"modules"`
	Duplicates     int     `json:"duplicates"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

func outputBuildJSON(index *haste.HasteIndex, elapsed time.Duration) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildSummaryJSON{
		Files:          len(index.Files),
		Modules:        len(index.Map),
		Duplicates:     len(index.Duplicates),
		ElapsedSeconds: elapsed.Seconds(),
	})
}
