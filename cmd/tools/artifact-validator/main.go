// cmd/tools/artifact-validator/main.go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/datasource"
	"finquery-workers/internal/engine/aggregate"
	"finquery-workers/internal/engine/conversation"
	"finquery-workers/internal/engine/query"
	"finquery-workers/internal/models"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	if len(args) < 1 {
		help(out)
		return 1
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(out)
		path := fs.String("path", "configs/artifacts.json", "Path to artifact bundle")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return validateArtifacts(*path, out)

	case "records":
		fs := flag.NewFlagSet("records", flag.ContinueOnError)
		fs.SetOutput(out)
		path := fs.String("path", "configs/ledger.json", "Path to ledger file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return validateRecords(*path, out)

	case "schema":
		fs := flag.NewFlagSet("schema", flag.ContinueOnError)
		fs.SetOutput(out)
		kind := fs.String("kind", string(datasource.KindMovement), "Artifact kind (movement, anomaly, chart)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		raw, err := datasource.Schema(datasource.Kind(*kind))
		if err != nil {
			fmt.Fprintf(out, "Unknown artifact kind %q\n", *kind)
			return 1
		}
		fmt.Fprintln(out, string(raw))
		return 0

	case "ask":
		fs := flag.NewFlagSet("ask", flag.ContinueOnError)
		fs.SetOutput(out)
		records := fs.String("records", "configs/ledger.json", "Path to ledger file")
		artifacts := fs.String("artifacts", "", "Path to artifact bundle (optional)")
		anchor := fs.String("anchor", "", "Anchor date YYYY-MM-DD (default today)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return ask(*records, *artifacts, *anchor, in, out)

	case "help":
		help(out)
		return 0
	default:
		help(out)
		return 1
	}
}

func validateArtifacts(path string, out io.Writer) int {
	set, err := datasource.NewFileArtifactSource(path).LoadArtifacts(context.Background())
	if err != nil {
		fmt.Fprintf(out, "Artifact validation failed: %v\n", err)
		return 1
	}

	if dup := duplicateIDs(set); len(dup) > 0 {
		fmt.Fprintf(out, "Artifact validation failed: duplicate ids %s\n", strings.Join(dup, ", "))
		return 1
	}

	fmt.Fprintf(out, "Artifact validation passed: %d movements, %d anomalies, %d charts.\n",
		len(set.Movements), len(set.Anomalies), len(set.Charts))
	for _, m := range set.Movements {
		fmt.Fprintf(out, "  %-12s movement  %s %s -> %s (%s)\n", m.ID, m.Account, m.PreviousPeriod.Display(), m.CurrentPeriod.Display(), m.Significance)
	}
	for _, a := range set.Anomalies {
		fmt.Fprintf(out, "  %-12s anomaly   %s %s (%s)\n", a.ID, a.Account, a.Date.Format(models.DateLayout), a.Severity)
	}
	for _, c := range set.Charts {
		fmt.Fprintf(out, "  %-12s chart     %s %s\n", c.ID, c.Kind, c.Account)
	}
	return 0
}

func duplicateIDs(set models.ArtifactSet) []string {
	seen := make(map[string]int)
	for _, m := range set.Movements {
		seen[m.ID]++
	}
	for _, a := range set.Anomalies {
		seen[a.ID]++
	}
	for _, c := range set.Charts {
		seen[c.ID]++
	}
	var dup []string
	for id, n := range seen {
		if n > 1 {
			dup = append(dup, id)
		}
	}
	sort.Strings(dup)
	return dup
}

func validateRecords(path string, out io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(out, "Failed to read ledger: %v\n", err)
		return 1
	}
	records, skipped, err := datasource.ParseRecords(data)
	if err != nil {
		fmt.Fprintf(out, "Ledger validation failed: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "Ledger loaded: %d records, %d skipped.\n", len(records), skipped)
	if cov, ok := models.Coverage(records); ok {
		fmt.Fprintf(out, "Coverage: %s\n", cov.Display())
	}
	for _, account := range models.AccountsOf(records) {
		fmt.Fprintf(out, "  %s\n", account)
	}
	if skipped > 0 {
		return 1
	}
	return 0
}

// ask answers questions from in, one per line, in a single conversation.
func ask(recordsPath, artifactsPath, anchorStr string, in io.Reader, out io.Writer) int {
	log := logger.NewNoOpLogger()

	anchor := time.Now()
	if anchorStr != "" {
		parsed, err := time.Parse(models.DateLayout, anchorStr)
		if err != nil {
			fmt.Fprintf(out, "Invalid anchor date: %v\n", err)
			return 2
		}
		anchor = parsed
	}

	var artifacts datasource.ArtifactSource
	if artifactsPath != "" {
		artifacts = datasource.NewFileArtifactSource(artifactsPath)
	}
	dataset, err := datasource.Load(context.Background(), datasource.NewFileRecordSource(recordsPath, log), artifacts, "", log)
	if err != nil {
		fmt.Fprintf(out, "Failed to load dataset: %v\n", err)
		return 1
	}

	engine := query.NewEngine(dataset, query.Config{
		ConfidenceThreshold: 0.5,
		FollowUpMaxWords:    8,
		Aggregate:           aggregate.DefaultOptions(),
	}, log)
	session := conversation.NewSession("cli", time.Now)

	scanner := bufio.NewScanner(in)
	turn := 0
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return 0
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			return 0
		}
		turn++
		resp := engine.Process(context.Background(), session, models.RawQuery{Text: text, Turn: turn}, anchor)
		fmt.Fprintln(out, resp.Text)
		if len(resp.ReferencedArtifactIDs) > 0 {
			fmt.Fprintf(out, "[%s]\n", strings.Join(resp.ReferencedArtifactIDs, ", "))
		}
	}
}

func help(out io.Writer) {
	fmt.Fprintln(out, "Usage: artifact-validator <command> [options]")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  validate -path <file>      Validate an artifact bundle against the artifact schemas")
	fmt.Fprintln(out, "  records -path <file>       Load a ledger file and report skipped rows")
	fmt.Fprintln(out, "  schema -kind <kind>        Print the JSON schema for movement, anomaly or chart")
	fmt.Fprintln(out, "  ask -records <file> [-artifacts <file>] [-anchor YYYY-MM-DD]")
	fmt.Fprintln(out, "                             Answer questions read from stdin in one conversation")
	fmt.Fprintln(out, "  help                       Show this help")
}
