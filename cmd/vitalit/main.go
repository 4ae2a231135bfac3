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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/vitalit"
	"github.com/poiesic/vitalit/ai"
	"github.com/poiesic/vitalit/chunk"
	"github.com/poiesic/vitalit/embed"
	"github.com/poiesic/vitalit/retrieval"
	pgstore "github.com/poiesic/vitalit/storage/pgvector"
	"github.com/urfave/cli/v2"
)

const dateFlagLayout = "2006-01-02"

func main() {
	// A .env file is optional; real env vars and flags win. Loaded before
	// flag parsing so EnvVars defaults see it.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "vitalit",
		Usage: "Semantic search and Q&A over personal health exports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:     "db",
				Aliases:  []string{"d"},
				Usage:    "Path to BadgerDB database directory",
				Required: true,
				EnvVars:  []string{"VITALIT_DB"},
			},
			&cli.StringFlag{
				Name:    "postgres",
				Usage:   "Postgres connection string; enables pgvector native search instead of the local vector store",
				EnvVars: []string{"VITALIT_POSTGRES"},
			},
			&cli.StringFlag{
				Name:    "ai-host",
				Usage:   "OpenAI-compatible API host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"VITALIT_AI_HOST"},
			},
			&cli.StringFlag{
				Name:    "ai-token",
				Usage:   "API token ('none' for local services)",
				Value:   "none",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "text-embedding-3-small",
				EnvVars: []string{"VITALIT_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "chat-model",
				Usage:   "Chat model name",
				Value:   "gpt-4o-mini",
				EnvVars: []string{"VITALIT_CHAT_MODEL"},
			},
			&cli.IntFlag{
				Name:    "embedding-dimension",
				Usage:   "Expected embedding vector length",
				Value:   ai.DefaultEmbeddingDimension,
				EnvVars: []string{"VITALIT_EMBEDDING_DIMENSION"},
			},
			&cli.StringFlag{
				Name:     "owner",
				Aliases:  []string{"o"},
				Usage:    "Owner partition id",
				Required: true,
				EnvVars:  []string{"VITALIT_OWNER"},
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Parse a health export file, embed it, and store it",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the export XML file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Chunking strategy (grouped, sequential)",
						Value: "grouped",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Concurrent embedding calls per batch",
						Value: embed.DefaultBatchSize,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Rank stored chunks against a query",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search query text",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of matches",
						Value: retrieval.DefaultLimit,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity",
						Value: retrieval.DefaultSimilarityThreshold,
					},
					&cli.StringSliceFlag{
						Name:  "metric-type",
						Usage: "Restrict to metric types (repeatable)",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Earliest observation date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Latest observation date (YYYY-MM-DD)",
					},
				},
			},
			{
				Name:   "ask",
				Usage:  "Ask a question grounded in the stored health data",
				Action: askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "The question to answer",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum context chunks",
						Value: retrieval.DefaultLimit,
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Remove a stored document and its export blob",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "document",
						Usage: "Document id to delete (empty deletes all of the owner's data)",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// buildService wires a Service from the global flags.
func buildService(c *cli.Context, extra ...vitalit.ServiceOption) (*vitalit.Service, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithToken(c.String("ai-token")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithEmbeddingDimension(c.Int("embedding-dimension")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []vitalit.ServiceOption{vitalit.WithAIConfig(aiConfig)}
	if connString := c.String("postgres"); connString != "" {
		store, err := pgstore.NewVectorStore(c.Context, &pgstore.Config{
			ConnString: connString,
			Dimension:  c.Int("embedding-dimension"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		opts = append(opts, vitalit.WithVectorStore(store))
	}
	opts = append(opts, extra...)

	service, err := vitalit.NewService(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return service, nil
}

func importCommand(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}

	var strategy chunk.Strategy
	switch c.String("strategy") {
	case "grouped":
		strategy = chunk.GroupedAdaptive
	case "sequential":
		strategy = chunk.SequentialFixed
	default:
		return fmt.Errorf("invalid strategy %q: must be grouped or sequential", c.String("strategy"))
	}

	service, err := buildService(c,
		vitalit.WithChunkOptions(chunk.WithStrategy(strategy)),
		vitalit.WithEmbedOptions(embed.WithBatchSize(c.Int("batch-size"))),
		vitalit.WithProgressWriter(os.Stderr),
	)
	if err != nil {
		return err
	}
	defer service.Close()

	result, err := service.ImportExport(context.Background(), c.String("owner"), data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Imported document %s\n", result.DocumentID)
	fmt.Printf("  records: %d (skipped %d)\n", result.Records, result.Skipped)
	fmt.Printf("  chunks embedded: %d\n", result.Processed)
	return nil
}

func searchCommand(c *cli.Context) error {
	opts := retrieval.Options{
		Limit:               c.Int("limit"),
		SimilarityThreshold: c.Float64("threshold"),
		MetricTypes:         c.StringSlice("metric-type"),
	}

	var err error
	if from := c.String("from"); from != "" {
		opts.TimeRangeStart, err = time.Parse(dateFlagLayout, from)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if to := c.String("to"); to != "" {
		opts.TimeRangeEnd, err = time.Parse(dateFlagLayout, to)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	service, err := buildService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	matches, err := service.Search(context.Background(), c.String("owner"), c.String("query"), opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(matches) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for i, m := range matches {
		fmt.Printf("[%d] %.1f%% %s\n", i+1, m.Similarity*100, m.ID)
		fmt.Println(indent(m.Content))
	}
	return nil
}

func askCommand(c *cli.Context) error {
	service, err := buildService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	session := service.NewSession()
	reply, err := service.Ask(context.Background(), c.String("owner"), c.String("question"), session,
		retrieval.Options{Limit: c.Int("limit")})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Println(reply)
	return nil
}

func deleteCommand(c *cli.Context) error {
	service, err := buildService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	owner := c.String("owner")
	document := c.String("document")
	if err := service.DeleteDocument(context.Background(), owner, document); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if document == "" {
		fmt.Printf("Deleted all documents for %s\n", owner)
	} else {
		fmt.Printf("Deleted document %s\n", document)
	}
	return nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

func setup(c *cli.Context) error {
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
