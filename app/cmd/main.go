package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/stefanpietrusky/IEC/app/server"
	"github.com/stefanpietrusky/IEC/types"
)

func init() {
	loadEnvVariables()
}

func main() {
	s := server.NewServer(types.ConfigFromEnv())

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")
	s.Stop()
}

func loadEnvVariables() {
	// a missing .env file just means defaults and the process environment
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment defaults")
	}
}
