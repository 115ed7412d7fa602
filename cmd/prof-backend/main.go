package main

import (
	"os"

	"github.com/marco741/prof-backend/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
