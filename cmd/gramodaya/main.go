package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gramodaya/internal/pipeline"

	_ "gramodaya/internal/storage/mssql"
	_ "gramodaya/internal/storage/postgres"
	_ "gramodaya/internal/storage/sqlite"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to pipeline config JSON")
	flag.Parse()

	if cfgPath == "" {
		fmt.Fprintln(os.Stderr, "usage: gramodaya -config path/to/pipeline.json")
		os.Exit(2)
	}

	raw, err := os.ReadFile(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		os.Exit(1)
	}

	var cfg pipeline.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
		os.Exit(1)
	}

	r := pipeline.NewDefaultRunner()
	if err := r.Run(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}
