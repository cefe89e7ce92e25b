package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"postsapi/app/config"
	"postsapi/app/logger"
	"postsapi/service"
)

// CliVersion is the released version of the binary.
const CliVersion = "1.0.0"

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain dispatches os.Args to a command.
func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "help":
		printHelp()
	case "version":
		fmt.Printf("postsapi version %s\n", CliVersion)
	case "serve":
		cfg := loadConfig()
		log := logger.Init(cfg)
		defer log.Sync()
		if err := service.RunAppServer(cfg, log); err != nil {
			logger.Sugar.Errorf("server stopped: %+v", err)
			exit(1)
			return
		}
	case "check-config":
		cfg := loadConfig()
		out, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
		if err != nil {
			fmt.Printf("Failed to encode configuration: %v\n", err)
			exit(1)
			return
		}
		fmt.Println(string(out))
		fmt.Println("Configuration is valid")
	case "db":
		if code := service.HandleCommand(os.Args[2:], loadConfig()); code != 0 {
			exit(code)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		exit(1)
	}
}

// loadConfig resolves the configuration or exits on an invalid one.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		exit(1)
	}
	return cfg
}

func printHelp() {
	helpText := `Usage: postsapi <command> [options]
Commands:
  help                           Display this help message.
  version                        Show version information.
  serve                          Run the posts API server.
  check-config                   Print the resolved configuration and validate it.
  db <init|clean|backup|restore> Maintain the embedded badger store (see "db help").

Configuration is read from config/config.json (or $POSTSAPI_CONFIG) and
overridden by environment variables such as PORT, STORAGE and MONGO_URI.
`
	fmt.Println(helpText)
}
