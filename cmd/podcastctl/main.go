// Command podcastctl is a thin CLI client for podcastd's HTTP API: trigger
// runs, inspect run history and progress, and read or update the dashboard
// config without going through a browser.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	base := flag.NewFlagSet("podcastctl", flag.ExitOnError)
	host := base.String("host", envOr("PODCASTD_ADDR", "http://localhost:8090"), "podcastd base URL")
	token := base.String("token", os.Getenv("DASHBOARD_TOKEN"), "bearer token for mutating routes")
	timeout := base.Duration("timeout", 120*time.Second, "request timeout")

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		runRun(base, args, host, token, timeout)
	case "runs":
		runList(base, args, host, timeout)
	case "progress":
		runProgress(base, args, host, timeout)
	case "delete":
		runDelete(base, args, host, token, timeout)
	case "config":
		runConfig(base, args, host, token, timeout)
	case "health":
		runHealth(base, args, host, timeout)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `podcastctl <command> [flags]

Commands:
  run       trigger an episode build (-date, -force, -window)
  runs      list run history (-runId, -page, -pageSize)
  progress  show live progress for a run (-runId)
  delete    delete a run's artifacts (-runId)
  config    get or set the dashboard config (-set <file>)
  health    print podcastd's health report

Global flags: -host, -token, -timeout`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runRun(base *flag.FlagSet, args []string, host, token *string, timeout *time.Duration) {
	date := base.String("date", "", "episode date, YYYY-MM-DD (default: today in the configured timezone)")
	force := base.Bool("force", false, "rebuild even if today's episode already exists")
	window := base.Int("window", 0, "override the ingestion lookback window, in hours")
	base.Parse(args)

	body, _ := json.Marshal(map[string]any{
		"date":            *date,
		"force_overwrite": *force,
		"window_hours":    *window,
	})

	resp := doRequest(*host, *token, *timeout, http.MethodPost, "/run", bytes.NewReader(body))
	printJSON(resp)
}

func runList(base *flag.FlagSet, args []string, host *string, timeout *time.Duration) {
	runID := base.String("runId", "", "fetch a single run by id")
	page := base.Int("page", 1, "page number")
	pageSize := base.Int("pageSize", 20, "page size")
	base.Parse(args)

	path := fmt.Sprintf("/runs?page=%d&pageSize=%d", *page, *pageSize)
	if *runID != "" {
		path = "/runs?runId=" + *runID
	}

	resp := doRequest(*host, "", *timeout, http.MethodGet, path, nil)
	printJSON(resp)
}

func runProgress(base *flag.FlagSet, args []string, host *string, timeout *time.Duration) {
	runID := base.String("runId", "", "run id to poll")
	base.Parse(args)
	if *runID == "" {
		log.Fatal("progress: -runId is required")
	}

	resp := doRequest(*host, "", *timeout, http.MethodGet, "/progress?runId="+*runID, nil)
	printJSON(resp)
}

func runDelete(base *flag.FlagSet, args []string, host, token *string, timeout *time.Duration) {
	runID := base.String("runId", "", "run id to delete")
	base.Parse(args)
	if *runID == "" {
		log.Fatal("delete: -runId is required")
	}

	doRequest(*host, *token, *timeout, http.MethodDelete, "/runs/"+*runID, nil)
	fmt.Println("deleted", *runID)
}

func runConfig(base *flag.FlagSet, args []string, host, token *string, timeout *time.Duration) {
	set := base.String("set", "", "path to a JSON file with the new dashboard config")
	base.Parse(args)

	if *set == "" {
		resp := doRequest(*host, "", *timeout, http.MethodGet, "/config", nil)
		printJSON(resp)
		return
	}

	raw, err := os.ReadFile(*set)
	if err != nil {
		log.Fatalf("config: read %s: %v", *set, err)
	}
	resp := doRequest(*host, *token, *timeout, http.MethodPut, "/config", bytes.NewReader(raw))
	printJSON(resp)
}

func runHealth(base *flag.FlagSet, args []string, host *string, timeout *time.Duration) {
	base.Parse(args)
	resp := doRequest(*host, "", *timeout, http.MethodGet, "/health", nil)
	printJSON(resp)
}

func doRequest(host, token string, timeout time.Duration, method, path string, body io.Reader) []byte {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, host+path, body)
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response: %v", err)
	}
	if resp.StatusCode/100 != 2 {
		log.Fatalf("%s %s: %s: %s", method, path, resp.Status, string(out))
	}
	return out
}

func printJSON(raw []byte) {
	if len(raw) == 0 {
		return
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		os.Stdout.Write(raw)
		fmt.Println()
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
