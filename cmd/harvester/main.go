package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/turbolytics/harvester/internal/cmd"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	cmd.Execute()
}
