package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"autograder/internal/cli/repl"
	runnercfg "autograder/internal/runner/config"
	"autograder/internal/runner/sandbox"
	"autograder/internal/runner/sandbox/engine"
	"autograder/pkg/utils/logger"
)

func main() {
	workRoot := flag.String("work-root", "", "Directory for execution workspaces (default: system temp)")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	flag.Parse()

	if err := logger.Init(logger.Config{Level: *logLevel, Format: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}

	eng, err := engine.NewEngine(engine.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init engine failed: %v\n", err)
		return
	}
	executor, err := sandbox.NewExecutor(eng, *workRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init executor failed: %v\n", err)
		return
	}

	session := repl.New(executor, runnercfg.DefaultPolicy())
	fmt.Println("autograder sandbox shell, type help for commands")
	session.Run(context.Background())
}
