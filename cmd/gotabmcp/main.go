package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "configure":
		if err := runConfigure(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("gotabmcp - Tabular Data MCP Server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gotabmcp serve       Start the MCP server")
	fmt.Println("  gotabmcp configure   Run interactive configuration wizard")
	fmt.Println("  gotabmcp doctor      Check configuration and print agent snippets")
	fmt.Println("  gotabmcp --help      Show this help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GOTABMCP_CONFIG_PATH    Config file (default .gotabmcp/config.json)")
	fmt.Println("  OPENAI_API_KEY          Enables analyze_with_ai")
	fmt.Println("  GOTABMCP_PG_CONNSTRING  Required when dataset.source is \"postgres\"")
}
