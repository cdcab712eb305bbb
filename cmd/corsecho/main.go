// Command corsecho serves a small JSON document behind a CORS middleware.
// It is handy for trying out CORS configurations from a browser.
//
// Configuration comes from an optional YAML file (--config-file),
// which command-line flags and environment variables override:
//
//	address: ":8080"
//	metricsAddress: ":9090"
//	logLevel: debug
//	cors:
//	  origins:
//	  - https://example.com
//	  originPatterns:
//	  - http://localhost:8*
//	  methods: [GET, POST]
//	  maxAgeInSeconds: 600
//	originRegexps:
//	- ^https://[a-z]+\.example\.org$
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newCommand(func(ctx context.Context, cfg Config) error {
		srv, err := newServer(cfg)
		if err != nil {
			return err
		}
		return srv.run(ctx)
	})
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
