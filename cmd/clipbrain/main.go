// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	log.Fatal(newApp().Run(os.Args))
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "clipbrain",
		Usage: "Ingest short videos and search what was said in them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "worker",
						Usage: "Also run the ingestion worker in this process",
						Value: true,
					},
				},
			},
			{
				Name:   "worker",
				Usage:  "Run the ingestion worker and stale-job sweeper",
				Action: workerCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Submit a video URL for ingestion",
				ArgsUsage: "<url>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Run the pipeline in this process and wait for it to finish",
					},
				},
			},
			{
				Name:      "run",
				Usage:     "Run the pipeline for an existing queued job",
				ArgsUsage: "<job-id>",
				Action:    runCommand,
			},
			{
				Name:      "status",
				Usage:     "Show the state of a job",
				ArgsUsage: "<job-id>",
				Action:    statusCommand,
			},
			{
				Name:      "search",
				Usage:     "Search transcripts",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return",
						Value:   10,
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Only return videos carrying this keyword (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "platform",
						Usage: "Only return videos from this platform (repeatable)",
					},
				},
			},
			{
				Name:   "backfill",
				Usage:  "Compute embeddings for chunks stored without one",
				Action: backfillCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed per request",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding request",
						Value: 4,
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write every stored record to a zip archive",
				Action: exportCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Archive path (default: timestamped name in the current directory)",
					},
				},
			},
			{
				Name:   "sweep",
				Usage:  "Fail jobs that stopped making progress",
				Action: sweepCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
