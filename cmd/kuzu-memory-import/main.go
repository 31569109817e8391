// cmd/kuzu-memory-import is a standalone CLI for the git history importer
// (spec §4.8): a one-shot or continuous scan of a repository's commit log,
// enqueuing accepted commits through the same learning pipeline the MCP
// server's learn() tool uses.
//
// Usage:
//
//	kuzu-memory-import [--repo DIR] [--full] [--watch]
//
// --full forces a rescan from the beginning of history instead of resuming
// from the persisted cursor; --watch keeps running and imports new commits
// as they land instead of exiting after one pass.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobmatnyc/kuzu-memory/internal/config"
	"github.com/bobmatnyc/kuzu-memory/pkg/kuzuclient"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("kuzu-memory-import: ")
	log.SetFlags(log.LstdFlags)

	repoFlag := flag.String("repo", "", "repository root to import (defaults to the discovered project root)")
	full := flag.Bool("full", false, "rescan the full commit history instead of resuming from the persisted cursor")
	watch := flag.Bool("watch", false, "keep running and import new commits as they land")
	flag.Parse()

	repoDir := *repoFlag
	if repoDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to resolve working directory: %v", err)
		}
		root, err := config.FindProjectRoot(cwd)
		if err != nil {
			repoDir = cwd
		} else {
			repoDir = root
		}
	}

	cfg, err := config.Load(repoDir)
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

	res, err := client.RunGitImport(ctx, repoDir, *full)
	if err != nil {
		log.Fatalf("git import failed: %v", err)
	}
	log.Printf("scanned %d commits, accepted %d, cursor at %s", res.Scanned, res.Accepted, res.LastSHA)

	if !*watch {
		return
	}

	watcher, err := client.WatchGitImport(ctx, repoDir)
	if err != nil {
		log.Fatalf("failed to start git watch: %v", err)
	}
	defer watcher.Stop()

	log.Printf("watching %s for new commits (ctrl-c to stop)", repoDir)
	<-ctx.Done()
}
