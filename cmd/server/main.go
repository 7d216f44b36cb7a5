// Package main is the entry point for the midigen API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/freeman-jiang/midigen/pkg/api"
)

func main() {
	host := flag.String("host", "", "Interface to bind (empty binds all interfaces)")
	port := flag.Int("port", 8080, "Server port")
	flag.Parse()

	display := *host
	if display == "" {
		display = "localhost"
	}
	fmt.Printf("Starting midigen API server on %s:%d...\n", display, *port)
	fmt.Printf("Swagger docs available at http://%s:%d/swagger/index.html\n", display, *port)

	if err := api.StartServer(*host, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
