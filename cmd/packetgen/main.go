package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hhhaiai/libpnet/pkg/generator"
	"github.com/hhhaiai/libpnet/pkg/parser"
)

func main() {
	var (
		output = flag.String("o", "", "Output file (default: input base name with .rs extension)")
		help   = flag.Bool("help", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.packet\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -o example.rs example.packet\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: input file is required\n")
		flag.Usage()
		os.Exit(1)
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Error: only one input file is allowed\n")
		flag.Usage()
		os.Exit(1)
	}

	inputFile := args[0]

	if *output == "" {
		ext := filepath.Ext(inputFile)
		base := filepath.Base(inputFile)
		if ext != "" {
			base = base[:len(base)-len(ext)]
		}
		*output = base + ".rs"
	}

	inputData, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input file %s: %v\n", inputFile, err)
		os.Exit(1)
	}

	file, err := parser.Parse(string(inputData))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing input: %v\n", err)
		os.Exit(1)
	}

	var items generator.SliceSink
	diags := generator.Generate(file, &items)
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s\n", d)
		}
		os.Exit(1)
	}

	code := "// This is auto-generated file. DO NOT EDIT. Use packetgen to regenerate it.\n\n" +
		strings.Join([]string(items), "\n\n") + "\n"
	if err := os.WriteFile(*output, []byte(code), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file %s: %v\n", *output, err)
		os.Exit(1)
	}

	fmt.Printf("Successfully generated %s\n", *output)
}
