// Package main is the entry point for the devsess CLI application.
package main

import "devsess/internal/cli"

func main() {
	cli.Execute()
}
