package main

import (
	"os"

	"mira-backend/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
