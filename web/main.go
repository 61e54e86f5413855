package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/df07/go-sphere-pathtracer/web/server"
)

func main() {
	port := flag.Int("port", 8080, "Port to serve on")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "Time allowed for in-flight renders to finish on shutdown")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	webServer := server.NewServer(*port)
	log.Printf("Render with http://localhost:%d/api/render?scene=random&width=400", *port)

	if err := webServer.Run(ctx, *shutdownTimeout); err != nil {
		log.Printf("Server error: %v", err)
		stop()
		os.Exit(1)
	}
}
