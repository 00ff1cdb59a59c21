package main

import (
	"os"

	"cortez.fish/bite-pipeline/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
