package main

import (
	"os"

	"github.com/de-tools/review-gate/pkg/runtime/terminal"
	"github.com/joho/godotenv"
)

func main() {
	// Local runs keep the token in a .env file; CI injects real env vars.
	_ = godotenv.Load()

	cli := terminal.NewCLI(terminal.Options{
		Output: os.Stdout,
	})

	os.Exit(cli.Execute())
}
