package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/goToken/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gotoken: %v\n", err)
		os.Exit(1)
	}
}
