// Package main is the entry point for the midi2deluge API server
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/james-see/midi2deluge/pkg/api"
	"github.com/james-see/midi2deluge/pkg/config"
	"github.com/james-see/midi2deluge/pkg/converter"
)

func main() {
	configFile := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "Server port (default 8080)")
	template := flag.String("template", "", "Template song")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *template != "" {
		cfg.TemplatePath = *template
	}

	conv := converter.New(cfg.TemplatePath)
	conv.SetLogger(log.New(os.Stderr, "", log.LstdFlags))

	fmt.Printf("Starting midi2deluge API server on port %d...\n", cfg.Port)
	fmt.Printf("Template: %s\n", cfg.TemplatePath)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Port)

	if err := api.StartServer(cfg.Port, conv); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
