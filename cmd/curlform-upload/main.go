package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/curlform/internal/config"
	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "curlform server URL (e.g. https://curlform.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("CURLFORM_AUTH_API_KEY"), "ingest API key")
	dir := flag.String("path", "", "directory of timeline CSVs and landmark JSON files")
	dryRun := flag.Bool("dry-run", false, "analyze locally but don't send to server")
	configPath := flag.String("config", "", "optional config file for dry-run tracker settings")
	list := flag.Bool("list", false, "list previously uploaded files and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("curlform-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".curlform-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *list {
		files, err := state.Uploaded()
		if err != nil {
			log.Error("listing uploads failed", "error", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Printf("%s  %-40s  reps=%-3d  %s\n", f.UploadedAt.Format("2006-01-02 15:04"), f.Path, f.Reps, f.AnalysisID)
		}
		return
	}

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: curlform-upload -server <URL> -path <dir> [-api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Error("recordings directory not found", "path", *dir)
		os.Exit(1)
	}

	tracker := curl.DefaultConfig()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		tracker = cfg.Tracker
	}

	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(strings.TrimRight(*serverURL, "/"), *apiKey)
	} else {
		log.Info("DRY RUN mode: files will be analyzed locally but not sent")
	}

	uploader := upload.New(client, state, *dir, *dryRun, tracker, log)
	stats, err := uploader.Run()
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Reps counted:     %d\n", stats.RepsCounted)
	fmt.Printf("  Correct:          %d\n", stats.CorrectReps)
	fmt.Printf("  Incorrect:        %d\n", stats.IncorrectReps)

	if len(stats.Results) > 0 {
		fmt.Printf("\n  Per file:\n")
		for _, r := range stats.Results {
			fmt.Printf("    %-40s %-9s reps=%d correct=%d\n", r.Path, r.Kind, r.Result.TotalReps, r.Result.CorrectReps)
		}
	}
	fmt.Println()
}
