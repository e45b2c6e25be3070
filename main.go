package main

import (
	"log"

	"github.com/supportdesk/topup-api/app"
)

func main() {
	if err := app.SetupAndRunServer(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
