// Command healthcheck exits non-zero unless the local queue bridge answers
// its health endpoint. It is meant for container HEALTHCHECK instructions.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("AGENIX_PORT")
	if port == "" {
		port = "8080"
	}
	flag.StringVar(&port, "port", port, "port of the queue bridge")
	flag.Parse()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/__admin/health", port))
	if err != nil {
		os.Exit(1)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
