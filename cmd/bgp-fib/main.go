package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bgp-fib",
	Short: "IPv4 forwarding table with a lookup cache, fed by a BGP routing daemon",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}
