// Command griddb is the interactive shell and script runner for the gridDB
// engine. Commands are read one per line from stdin (or a file via SOURCE)
// and executed to completion, one at a time.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/SimonWaldherr/gridDB/internal/config"
	"github.com/SimonWaldherr/gridDB/internal/engine"
	"github.com/SimonWaldherr/gridDB/internal/logger"
)

var (
	flagData       = flag.String("data", "", "Data directory (overrides config)")
	flagConfig     = flag.String("config", "", "Optional YAML config file")
	flagBlockSize  = flag.Int("block-size", 0, "Block size in KB (overrides config)")
	flagBlockCount = flag.Int("block-count", 0, "Buffer pool capacity in pages (overrides config)")
	flagPrintCount = flag.Int("print-count", 0, "Rows shown by PRINT (overrides config)")
	flagLogLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *flagConfig != "" {
		loaded, err := config.Load(*flagConfig)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *flagData != "" {
		cfg.DataDir = *flagData
	}
	if *flagBlockSize > 0 {
		cfg.BlockSize = *flagBlockSize
	}
	if *flagBlockCount > 0 {
		cfg.BlockCount = *flagBlockCount
	}
	if *flagPrintCount > 0 {
		cfg.PrintCount = *flagPrintCount
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	if err := logger.Init(cfg.LogLevel, ""); err != nil {
		fmt.Fprintln(os.Stderr, "log error:", err)
		os.Exit(1)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup error:", err)
		os.Exit(1)
	}
	defer eng.Close()

	// Suppress prompts when stdin is redirected from a file or pipe.
	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}
	if interactive {
		fmt.Println("griddb shell. One command per line; QUIT to leave.")
	}

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 1024), 1024*1024)
	for {
		if interactive {
			fmt.Print("griddb> ")
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				fmt.Fprintln(os.Stderr, "read error:", err)
			}
			return
		}
		if err := eng.Run(sc.Text()); err != nil {
			if errors.Is(err, engine.ErrQuit) {
				return
			}
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}
