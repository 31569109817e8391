// cmd/kuzu-memory-mcp is the entry point for the kuzu-memory MCP (Model
// Context Protocol) server. It wires the embedded graph store through the
// kuzuclient pipeline so that every memory learned or recalled over JSON-RPC
// flows through classification, deduplication, and retention scoring.
//
// Startup sequence:
//  1. Resolve the project root and load config.yaml + KUZU_MEMORY_* env overrides.
//  2. Open the connection pool and storage schema.
//  3. Start the git history importer's watch loop, if enabled.
//  4. Create the JSON-RPC server, injecting the client as its Backend.
//  5. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: ALL logging MUST go to stderr. Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobmatnyc/kuzu-memory/internal/config"
	"github.com/bobmatnyc/kuzu-memory/internal/rpcserver"
	"github.com/bobmatnyc/kuzu-memory/pkg/kuzuclient"
)

func resolveProjectRoot() string {
	if v := os.Getenv("KUZU_MEMORY_PROJECT_ROOT"); v != "" {
		return v
	}
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to resolve working directory: %v", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return cwd
	}
	return root
}

func main() {
	// Redirect the default logger to stderr so that any incidental log calls
	// (e.g. from imported packages) never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("kuzu-memory-mcp: ")
	log.SetFlags(log.LstdFlags)

	projectRoot := resolveProjectRoot()

	cfg, err := config.Load(projectRoot)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	client, err := kuzuclient.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open kuzu-memory store at %s: %v", cfg.DatabasePath(), err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	if cfg.GitSync.Enabled {
		repoRoot, err := config.FindProjectRoot(projectRoot)
		if err != nil {
			repoRoot = projectRoot
		}
		watcher, err := client.WatchGitImport(ctx, repoRoot)
		if err != nil {
			log.Printf("warning: git history watch disabled: %v", err)
		} else {
			log.Printf("watching %s for new commits", repoRoot)
			defer watcher.Stop()
		}
	}

	srv := rpcserver.NewServer(client)
	transport := rpcserver.NewStdioTransport(srv)

	log.Println("ready — serving JSON-RPC 2.0 on stdin/stdout")

	if err := transport.Serve(ctx); err != nil {
		// A non-nil error here is normal (context cancellation) or indicates a
		// fatal stdin/stdout problem. Either way it is informational only.
		log.Printf("transport stopped: %v", err)
	}
}
