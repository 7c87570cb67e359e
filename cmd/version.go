package cmd

import "fmt"

// Version information, injected at build time via ldflags.
var (
	AppVersion = "1.0.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

func printVersion() error {
	fmt.Printf("Hara AI %s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

func printHelp() {
	fmt.Println(`Hara AI - a terminal chat assistant

Usage:
  hara            start the interactive interface
  hara version    show version information
  hara help       show this help

Configuration lives in ~/.hara/config.yaml. The API key comes from
HARA_API_KEY or GEMINI_API_KEY; a key starting with "sk-or-" selects
the OpenRouter backend, anything else the native backend.`)
}
