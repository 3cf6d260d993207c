package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/blockcanvas/indy/internal/cms"
	"github.com/blockcanvas/indy/internal/indy"
	"github.com/blockcanvas/indy/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var pushWorkers int

var pushCmd = &cobra.Command{
	Use:   "push <site> [entry...]",
	Short: "Publish locally stored entries to the CMS",
	Long: `Copy entries from local storage to the CMS configured under cms.base_url.

Without entry arguments every entry of the site is pushed. Uploads run in
parallel and stop at the first failure.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().IntVar(&pushWorkers, "workers", 4, "concurrent uploads")
}

func runPush(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStore(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := pushEntries(cmd.Context(), store, cms.NewClient(cfg.CMS), args[0], args[1:], pushWorkers)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d entries of %s to %s\n", n, args[0], cfg.CMS.BaseURL)
	return nil
}

// pushEntries copies entries of site from src to dst and returns how many
// were copied. An empty entries list means all entries of the site.
func pushEntries(ctx context.Context, src storage.Store, dst indy.Saver, site string, entries []string, workers int) (int, error) {
	if len(entries) == 0 {
		listed, err := src.ListEntries(ctx, site)
		if err != nil {
			return 0, err
		}
		for _, e := range listed {
			entries = append(entries, e.Slug)
		}
	} else {
		// explicit entries must exist locally
		for _, e := range entries {
			if _, err := src.GetEntry(ctx, site, e); err != nil {
				return 0, err
			}
		}
	}
	if workers <= 0 {
		workers = 1
	}

	var pushed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, entry := range entries {
		g.Go(func() error {
			blocks, err := src.LoadBlocks(ctx, site, entry)
			if err != nil {
				return err
			}
			if err := dst.SaveBlocks(ctx, site, entry, blocks); err != nil {
				return fmt.Errorf("push %s/%s: %w", site, entry, err)
			}
			pushed.Add(1)
			logger.WithFields(logrus.Fields{"site": site, "entry": entry, "blocks": len(blocks)}).Debug("Pushed entry")
			return nil
		})
	}
	err := g.Wait()
	return int(pushed.Load()), err
}
