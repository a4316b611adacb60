// Package main provides a health check and integration test tool for the
// dashboard, plus a live follower for a run's events.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// loadEnv reads KEY=VALUE lines from path into the environment without
// overwriting variables that are already set. A missing file is ignored.
func loadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// runChecks runs the health check and, depending on the flags, the run
// lifecycle and file browser checks.
func runChecks(ctx context.Context, client *Client, test, all bool) []Result {
	results := []Result{client.CheckHealth(ctx)}
	if test || all {
		results = append(results, client.CheckRunLifecycle(ctx))
	}
	if all {
		results = append(results, client.CheckFileBrowser(ctx))
	}
	return results
}

// report writes results as text or JSON and reports whether all passed.
func report(w io.Writer, results []Result, asJSON bool) (bool, error) {
	passed := true
	for _, r := range results {
		passed = passed && r.Passed
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return passed, enc.Encode(results)
	}
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", status, r.Test, r.Message()); err != nil {
			return passed, err
		}
	}
	return passed, nil
}

// printEvent pretty prints a live event.
func printEvent(w io.Writer, msg domain.EventMessage) {
	formatted, _ := json.MarshalIndent(msg.Event, "", "  ")
	fmt.Fprintf(w, "\n[#%d %s] %s\n%s\n", msg.Sequence, msg.EventType, msg.Message, string(formatted))
}

func main() {
	baseURL := flag.String("url", "", "Dashboard base URL (defaults to DASHBOARD_URL)")
	test := flag.Bool("test", false, "Run integration tests")
	all := flag.Bool("all", false, "Run full test suite")
	asJSON := flag.Bool("json", false, "Output as JSON")
	follow := flag.String("follow", "", "Stream live events of the given run ID")
	envFile := flag.String("env-file", ".env", "File with KEY=VALUE defaults")
	flag.Parse()

	log.SetFlags(log.Ltime)

	if err := loadEnv(*envFile); err != nil {
		log.Printf("Failed to read %s: %v", *envFile, err)
	}
	if *baseURL == "" {
		*baseURL = os.Getenv("DASHBOARD_URL")
	}
	*baseURL = strings.TrimSuffix(*baseURL, "/")
	if *baseURL == "" {
		fmt.Println("Error: DASHBOARD_URL not set. Create .env, set the environment variable or pass --url.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := NewClient(*baseURL)

	if *follow != "" {
		fmt.Printf("Following run %s at %s (Ctrl+C to stop)\n", *follow, *baseURL)
		if err := client.Follow(ctx, *follow, func(msg domain.EventMessage) {
			printEvent(os.Stdout, msg)
		}); err != nil {
			log.Fatalf("Follow failed: %v", err)
		}
		fmt.Println("\nStopped")
		return
	}

	results := runChecks(ctx, client, *test, *all)
	passed, err := report(os.Stdout, results, *asJSON)
	if err != nil {
		log.Printf("Failed to write report: %v", err)
	}
	if !passed {
		os.Exit(1)
	}
}
