// crewflow runs declarative crews from YAML definitions.
//
// Usage:
//
//	crewflow run --crew crew.yaml              # run a crew
//	crewflow run --config config.yaml --crew crew.yaml --save
//	crewflow validate --crew crew.yaml         # check a crew definition
//	crewflow runs --config config.yaml         # list persisted runs
//	crewflow cleanup --config config.yaml      # apply snapshot retention
//	crewflow version
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/config"
)

// Injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "runs":
		runList(os.Args[2:])
	case "cleanup":
		runCleanup(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// loadConfig resolves runtime configuration and builds the logger.
func loadConfig(path string) (*config.Config, *zap.Logger) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger
}

func printVersion() {
	fmt.Printf("crewflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`crewflow - multi-agent crew orchestration

Usage:
  crewflow <command> [options]

Commands:
  run       Run a crew from a YAML definition
  validate  Validate a crew definition without running it
  runs      List persisted run snapshots
  cleanup   Delete run snapshots past the retention window
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>   Runtime configuration file (YAML)
  --crew <path>     Crew definition file (required)
  --save            Persist the run snapshot to the configured store

Options for 'validate':
  --crew <path>     Crew definition file (required)

Options for 'runs' and 'cleanup':
  --config <path>   Runtime configuration file (YAML)

Examples:
  crewflow run --crew crew.yaml
  crewflow run --config /etc/crewflow/config.yaml --crew crew.yaml --save
  crewflow validate --crew crew.yaml
  crewflow runs --config config.yaml`)
}
