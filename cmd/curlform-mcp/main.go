package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/curlform/internal/curl"
	curlmcp "github.com/claude/curlform/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "curlform server URL (e.g. https://curlform.tail1234.ts.net)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("curlform-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: curlform-mcp -server <URL>\n")
		os.Exit(1)
	}

	// Thresholds reported by the form_rules resource are the defaults; the
	// server's own /mcp endpoint reports its configured values.
	s := curlmcp.New(curlmcp.NewHTTPClient(*serverURL), curl.DefaultConfig(), Version, log)
	log.Info("serving MCP over stdio", "server", *serverURL)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
}
