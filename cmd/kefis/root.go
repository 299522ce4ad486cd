package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kefis/kefis/internal/db"
	"github.com/kefis/kefis/internal/ingest"
	"github.com/kefis/kefis/internal/obs"
	"github.com/kefis/kefis/internal/ports"
)

// globalFlags holds persistent flag values shared by every subcommand.
var globalFlags struct {
	RegistryPath string
	ManifestPath string
	BlobRoot     string
}

var rootCmd = &cobra.Command{
	Use:   "kefis",
	Short: "kefis — Kenya fiscal transparency data pipeline",
	Long: `kefis discovers, fetches, parses, and loads Kenya's public budget,
audit, and statistical documents from Treasury, the Controller of
Budget, the Auditor-General, KNBS, the open data portal, and the
Commission on Revenue Allocation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	_ = godotenv.Load()
	obs.Init()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.RegistryPath, "registry", "",
		"path to a sources.yaml overriding the embedded default registry")
	pf.StringVar(&globalFlags.ManifestPath, "manifest", "etl_manifest.db",
		"path to the content-addressed fetch manifest")
	pf.StringVar(&globalFlags.BlobRoot, "blob-root", "etl_downloads",
		"root directory for mirrored document blobs")
}

// buildPipeline wires a Pipeline against Postgres, the manifest, and
// local blob storage — the dependency set every data-moving subcommand
// needs.
func buildPipeline(ctx context.Context) (*ingest.Pipeline, *db.Loader, func(), error) {
	pool, err := db.Connect(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect db: %w", err)
	}

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	registry, err := ingest.LoadRegistry(globalFlags.RegistryPath)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("load registry: %w", err)
	}

	manifest, err := ingest.OpenManifest(globalFlags.ManifestPath)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("open manifest: %w", err)
	}

	loader := db.NewLoader(pool)
	countryID, err := loader.EnsureCountry(ctx)
	if err != nil {
		manifest.Close()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ensure country: %w", err)
	}

	defaultFetch := ingest.FetchConfig{TimeoutSeconds: 30, MaxRetries: 3, RateLimitRPS: 1}
	pipeline := &ingest.Pipeline{
		Registry:  registry,
		Fetcher:   ingest.NewFetcher(manifest, defaultFetch),
		Manifest:  manifest,
		Blobs:     ports.NewLocalBlobStore(globalFlags.BlobRoot),
		Loader:    loader,
		CountryID: countryID,
	}

	cleanup := func() {
		manifest.Close()
		pool.Close()
	}
	return pipeline, loader, cleanup, nil
}
