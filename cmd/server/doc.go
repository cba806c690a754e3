// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

/*
Package main is the entry point for the Vigilmap server.

Vigilmap lets an operator place surveillance cameras on a map, derives each
camera's field-of-view triangle and the covering circle of the committed
placement, and aggregates live detection events from the camera pipeline
into counters and a bounded alert buffer pushed to connected UIs.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("vigilmap")
	├── IngestSupervisor ("ingest-layer")
	│   ├── WebSocket detection source (optional)
	│   └── Pub/sub detection source (gochannel or NATS JetStream, optional)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub (UI push)
	│   ├── Heatmap simulator
	│   └── Health prober (optional)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi)

Startup order:

 1. Configuration: Koanf v2 (defaults, config file, environment)
 2. Logging: zerolog with JSON or console output
 3. Store: badger, sqlite or memory; the committed placement is loaded once
 4. Monitor: registry, coverage, viewport, placement session, aggregator
 5. Supervisor tree: runs until SIGINT or SIGTERM

# Configuration

Priority: Environment variables > Config file > Defaults

	HTTP_PORT=8088                        # HTTP listen port
	LOG_LEVEL=info                        # trace, debug, info, warn, error
	LOG_FORMAT=json                       # json or console
	CORS_ORIGINS=https://ops.example.com  # comma separated

	STREAM_WS_URL=ws://localhost:5000/ws  # raw detection websocket, empty disables
	STREAM_PUBSUB=none                    # none, gochannel or nats
	NATS_URL=nats://127.0.0.1:4222

	STORAGE_BACKEND=badger                # badger, sqlite or memory
	STORAGE_PATH=/data/vigilmap

	HEALTH_CAMERA_URL=http://localhost:5000/health
	HEALTH_DATA_URL=http://localhost:8000/health

The config file is found through CONFIG_PATH or ./config.yaml. Changes to
logging.level in the file are applied without a restart.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
server.shutdown_timeout, stream sources stop, and the store is closed after
the tree has returned.
*/
package main
