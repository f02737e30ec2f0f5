package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/coffersTech/benchlog/internal/inspect"
)

func main() {
	query := flag.String("q", inspect.DefaultQuery, "JMESPath query evaluated over the loaded bundles")
	pretty := flag.Bool("pretty", false, "Pretty-print JSON output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-q query] [-pretty] bundle...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	doc, err := inspect.Load(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	res, err := inspect.Query(*query, doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
