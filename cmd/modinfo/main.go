package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ksnyder9801/modplug"
	"github.com/ksnyder9801/modplug/loaders"
)

// This CLI tool prints the structure of a module file.

func main() {
	patterns := flag.Int("patterns", 0, "print the first N patterns of the order list")
	dumpYAML := flag.Bool("yaml", false, "print the summary as YAML")
	headerOnly := flag.Bool("header", false, "read the header only")
	verbose := flag.Bool("v", false, "log details")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: modinfo [flags] path/to/song.it...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	failed := false
	for _, path := range flag.Args() {
		if err := describe(path, logger, *headerOnly, *dumpYAML, *patterns); err != nil {
			log.Printf("%s: %v", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func describe(path string, logger *slog.Logger, headerOnly, dumpYAML bool, patterns int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sng, err := loaders.Load(data, loaders.Options{HeaderOnly: headerOnly, Logger: logger})
	if err != nil {
		return err
	}

	var length float64
	if !headerOnly {
		d, err := modplug.Duration(sng, modplug.Config{Logger: logger})
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		length = d.Seconds()
	}
	sum := newSummary(filepath.Base(path), sng, length)

	if dumpYAML {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(sum); err != nil {
			return err
		}
		return enc.Close()
	}
	if err := writeReport(os.Stdout, sum); err != nil {
		return err
	}
	if patterns > 0 && !headerOnly {
		fmt.Println()
		writePatterns(os.Stdout, sng, patterns)
	}
	return nil
}
