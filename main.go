package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/kushwanth-masupalli/QueryVault/internal/cli"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		godotenv.Load()
	}

	cli.Execute()
}
