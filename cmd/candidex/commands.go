package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/ingestion"
	"github.com/poiesic/candidex/reindex"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
)

// readCandidates decodes a JSON file holding one candidate or an array of them.
func readCandidates(path string) ([]*core.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var out []*core.Candidate
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return out, nil
	}
	var c core.Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []*core.Candidate{&c}, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func ingestCommand(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("at least one FILE is required")
	}
	w := c.App.Writer

	var records []*core.Candidate
	var documents []string
	for _, p := range paths {
		if !isJSON(p) {
			documents = append(documents, p)
			continue
		}
		cs, err := readCandidates(p)
		if err != nil {
			return err
		}
		records = append(records, cs...)
	}

	if c.Bool("dry-run") {
		invalid := 0
		for i, cand := range records {
			if err := core.ValidateCandidate(cand); err != nil {
				failure.Fprintf(w, "record %d: %v\n", i, err)
				invalid++
			}
		}
		fmt.Fprintf(w, "%d records (%d invalid), %d documents would be ingested\n",
			len(records), invalid, len(documents))
		return nil
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	in, err := db.NewIngester()
	if err != nil {
		return err
	}
	defer in.Release()

	items := in.IngestBatch(c.Context, records)
	items = append(items, in.IngestDocuments(c.Context, documents)...)

	failed := printBatch(w, items)
	if failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, len(items))
	}
	return nil
}

func printBatch(w io.Writer, items []ingestion.BatchItem) int {
	failed := 0
	for _, item := range items {
		label := item.Source
		if label == "" {
			label = fmt.Sprintf("record %d", item.Index)
		}
		if item.Err != nil {
			failure.Fprintf(w, "✗ %s: %v\n", label, item.Err)
			failed++
			continue
		}
		success.Fprintf(w, "✓ %s -> %s (%s)\n", label, item.Result.ID, item.Result.Candidate.Name)
		printWarnings(w, item.Result.Warnings)
	}
	return failed
}

func printWarnings(w io.Writer, warnings []core.Warning) {
	for _, wn := range warnings {
		warning.Fprintf(w, "  warning: %s\n", wn)
	}
}

func searchCommand(c *cli.Context) error {
	q := core.NewSearchQuery()
	q.Text = strings.Join(c.Args().Slice(), " ")
	q.Skills = c.StringSlice("skill")
	q.MatchAllSkills = c.Bool("match-all")
	q.Companies = c.StringSlice("company")
	q.Roles = c.StringSlice("role")
	q.Institutions = c.StringSlice("institution")
	q.Degrees = c.StringSlice("degree")
	q.Limit = c.Int("limit")
	q.Offset = c.Int("offset")
	q.SemanticWeight = c.Float64("semantic-weight")
	q.FuzzyWeight = c.Float64("fuzzy-weight")
	q.ExactWeight = c.Float64("exact-weight")
	q.Timeout = c.Duration("timeout")
	if err := core.ValidateQuery(&q); err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	resp, err := searcher.Search(c.Context, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	w := c.App.Writer
	if c.Bool("json") {
		return writeJSON(w, resp)
	}
	printResponse(w, resp)
	return nil
}

func printResponse(w io.Writer, resp *core.SearchResponse) {
	printWarnings(w, resp.Warnings)
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No matching candidates.")
		return
	}
	for i, r := range resp.Results {
		heading.Fprintf(w, "%2d. %s", i+1, r.Candidate.Name)
		fmt.Fprintf(w, "  [%s]  score %.4f\n", r.Candidate.ID, r.Score)
		for _, key := range []string{
			core.DetailSemantic, core.DetailFuzzy, core.DetailSkill,
			core.DetailCompany, core.DetailRole, core.DetailInstitution, core.DetailDegree,
		} {
			if v, ok := r.MatchDetails[key]; ok {
				fmt.Fprintf(w, "      %-18s %.4f\n", key, v)
			}
		}
	}
}

func getCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one ID is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cand, err := db.CandidateRepository().Get(c.Context, core.ID(c.Args().First()))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, cand)
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one ID is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	in, err := db.NewIngester()
	if err != nil {
		return err
	}
	defer in.Release()

	res, err := in.Delete(c.Context, core.ID(c.Args().First()))
	if err != nil {
		return err
	}
	success.Fprintf(c.App.Writer, "deleted %s\n", res.ID)
	printWarnings(c.App.Writer, res.Warnings)
	return nil
}

func listCommand(c *cli.Context) error {
	offset, limit := c.Int("offset"), c.Int("limit")
	if offset < 0 || limit <= 0 {
		return errors.New("offset must be >= 0 and limit must be > 0")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	store := db.CandidateRepository()
	total, err := store.Count(c.Context)
	if err != nil {
		return err
	}
	page, err := store.List(c.Context, offset, limit)
	if err != nil {
		return err
	}

	w := c.App.Writer
	for _, cand := range page {
		fmt.Fprintf(w, "%s  %s", cand.ID, cand.Name)
		if len(cand.Skills) > 0 {
			fmt.Fprintf(w, "  (%s)", strings.Join(cand.Skills, ", "))
		}
		fmt.Fprintln(w)
	}
	heading.Fprintf(w, "%d-%d of %d candidates\n", min(offset+1, total), offset+len(page), total)
	return nil
}

func printReindexReport(w io.Writer, r *reindex.Report) {
	heading.Fprintln(w, "Reindex report")
	fmt.Fprintf(w, "  scanned:         %d\n", r.Scanned)
	fmt.Fprintf(w, "  upserted:        %d\n", r.Upserted)
	fmt.Fprintf(w, "  unchanged:       %d\n", r.Unchanged)
	fmt.Fprintf(w, "  orphans removed: %d\n", r.OrphansRemoved)
	fmt.Fprintf(w, "  elapsed:         %s\n", r.Elapsed.Round(1e6))
	for _, f := range r.Failures {
		failure.Fprintf(w, "  ✗ %s %s: %v\n", f.Op, f.ID, f.Err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
