// findigest renders the markdown digest from a finnews JSON document.
// It is fully offline: no network, no dedup, only formatting.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"finnews/internal/collect"
	"finnews/internal/render"
)

func main() {
	inputPath := flag.String("input", "", "collection JSON document (default: stdin)")
	tzName := flag.String("tz", "Asia/Taipei", "timezone for the digest header")
	maxTaiwan := flag.Int("max-tw", 8, "max items in the Taiwan section")
	maxGlobal := flag.Int("max-global", 8, "max items in the global section")
	flag.Parse()

	data, err := readInput(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	var result collect.Result
	if err := json.Unmarshal(data, &result); err != nil {
		fmt.Fprintf(os.Stderr, "parse document: %v\n", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(*tzName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown timezone %q: %v\n", *tzName, err)
		os.Exit(1)
	}

	fmt.Print(render.Digest(&result, render.Options{
		MaxTaiwan: *maxTaiwan,
		MaxGlobal: *maxGlobal,
		Location:  loc,
	}))
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
