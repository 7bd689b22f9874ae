package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/df07/go-wavefront-tracer/pkg/loaders"
	"github.com/df07/go-wavefront-tracer/pkg/scene"
	"github.com/df07/go-wavefront-tracer/pkg/store"
	"github.com/df07/go-wavefront-tracer/web/server"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	scenesDir := flag.String("scenes", "", "Directory of .json scene files (default: auto-detect)")
	dbType := flag.String("db-type", "", "Database driver for saved traces: sqlite, pgx, genji or duckdb (empty disables saving)")
	dbPath := flag.String("db-path", "traces.sqlite", "Database file path or connection URL")
	flag.Parse()

	if *scenesDir == "" {
		*scenesDir = scene.FindScenesDir()
	} else {
		loaders.AllowSceneDir(*scenesDir)
	}

	var runStore *store.Store
	if *dbType != "" {
		var err error
		runStore, err = store.Open(store.Config{Driver: *dbType, DSN: *dbPath})
		if err != nil {
			log.Printf("Error opening database: %v", err)
			os.Exit(1)
		}
		defer runStore.Close()
		if err := runStore.Migrate(context.Background()); err != nil {
			log.Printf("Error migrating database: %v", err)
			os.Exit(1)
		}
		log.Printf("Saving traces to %s database %s", *dbType, *dbPath)
	}

	webServer := server.NewServer(*port, *scenesDir, runStore)

	log.Printf("Wavefront Tracer Web Server")
	log.Printf("Visit http://localhost:%d to start tracing", *port)

	if err := webServer.Start(); err != nil {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
