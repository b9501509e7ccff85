package main

import (
	"flag"
	"log"
	"os"

	"cesde/internal/app"
	"cesde/internal/config"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = config.DefaultPath
	}
	flag.StringVar(&path, "config", path, "path to the YAML config file")
	flag.Parse()

	if err := app.Run(path); err != nil {
		log.Fatalf("server: %v", err)
	}
}
