package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/index"
	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/search"
	"media-catalog/internal/startup"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// cliHit is one search result as the command line prints it.
type cliHit struct {
	Path     string              `json:"path"`
	Type     mediatypes.FileType `json:"type"`
	Size     int64               `json:"size"`
	Modified time.Time           `json:"modified,omitzero"`
	Match    string              `json:"match,omitempty"`
}

func newCLIHit(h index.Hit) cliHit {
	hit := cliHit{
		Type:     h.Item.Type,
		Size:     h.Item.Size,
		Modified: h.Item.Modified,
	}
	if h.Item.IsFolder() {
		hit.Path = h.Folder.Combine(h.Item.Name).Text()
	} else {
		hit.Path = h.File().Text()
	}
	if h.Match.Kind != search.NoMatch {
		hit.Match = h.Match.Kind.String()
	}
	return hit
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// quiet keeps the startup banner and configuration report out of command
// output unless debug logging was asked for.
func quiet() {
	if !logging.IsDebugEnabled() {
		logging.SetLevel(logging.LevelWarn)
	}
}

// loadCatalog fills a catalog from the database without scanning the media
// folders.
func loadCatalog(ctx context.Context) (*index.State, *database.Database, error) {
	quiet()
	cfg, err := startup.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	state := index.New(db, nil, index.Options{})
	idx := indexer.New(state, db, indexer.Config{Roots: mediaRoots(cfg)})
	if _, err := idx.LoadCache(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return state, db, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	state, db, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	q := search.ParseFromInput(strings.Join(args, " "), state)
	if q.IsEmpty() {
		return fmt.Errorf("search %q selects nothing", strings.Join(args, " "))
	}

	var hits []cliHit
	state.QueryItems(cmd.Context(), q, nil, func(h index.Hit) bool {
		hits = append(hits, newCLIHit(h))
		return queryLimit <= 0 || len(hits) < queryLimit
	})
	return writeHits(cmd.OutOrStdout(), hits, queryJSON || !isTerminal(os.Stdout))
}

func runCount(cmd *cobra.Command, args []string) error {
	state, db, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	q := search.ParseFromInput(strings.Join(args, " "), state)
	res := state.CountMatches(cmd.Context(), q)
	return writeCount(cmd.OutOrStdout(), res, queryJSON || !isTerminal(os.Stdout))
}

func runMaintenance(cmd *cobra.Command, _ []string) error {
	quiet()
	cfg, err := startup.LoadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if resetCatalog {
		if !assumeYes {
			if !isTerminal(os.Stdin) {
				return fmt.Errorf("refusing to reset %s without --yes", cfg.DatabasePath)
			}
			prompt := fmt.Sprintf("Delete every cached folder, item and thumbnail in %s?", cfg.DatabasePath)
			if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt) {
				return fmt.Errorf("reset cancelled")
			}
		}
		// A corrupt file cannot be opened, so the files go before the open.
		if err := database.Remove(cfg.DatabasePath); err != nil {
			return err
		}
		db, err := database.New(ctx, cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s reset\n", cfg.DatabasePath)
		return nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	if err := db.Maintenance(ctx, false); err != nil {
		return fmt.Errorf("maintenance failed: %w", err)
	}
	size := "unknown size"
	if info, err := os.Stat(cfg.DatabasePath); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Database compacted to %s in %v\n", size, time.Since(start).Round(time.Millisecond))
	return nil
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// writeHits prints hits as JSON, or as an aligned table for people.
func writeHits(w io.Writer, hits []cliHit, asJSON bool) error {
	if asJSON {
		if hits == nil {
			hits = []cliHit{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSIZE\tMODIFIED\tPATH")
	for _, h := range hits {
		size := "-"
		if h.Type != mediatypes.FileTypeFolder {
			size = humanize.Bytes(uint64(h.Size))
		}
		modified := "-"
		if !h.Modified.IsZero() {
			modified = humanize.Time(h.Modified)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.Type, size, modified, h.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s results\n", humanize.Comma(int64(len(hits))))
	return err
}

// writeCount prints a count result as JSON or as a sentence.
func writeCount(w io.Writer, res index.CountResult, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(res)
	}
	_, err := fmt.Fprintf(w, "%s files in %s folders, %s\n",
		humanize.Comma(int64(res.Files)), humanize.Comma(int64(res.Folders)), humanize.Bytes(uint64(res.Size)))
	return err
}
