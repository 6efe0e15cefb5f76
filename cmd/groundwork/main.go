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
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/groundwork"
	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/reindex"
)

func main() {
	app := &cli.App{
		Name:  "groundwork",
		Usage: "Retrieval-augmented customer support knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (empty: in-memory)",
				EnvVars: []string{"GROUNDWORK_DB"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection URL (overrides --db)",
				EnvVars: []string{"GROUNDWORK_DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "cache",
				Usage:   "Path to the retrieval cache directory (empty: in-memory)",
				EnvVars: []string{"GROUNDWORK_CACHE"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the completion and embedding service",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Override the AI service endpoint, e.g. a local OpenAI-compatible server",
				EnvVars: []string{"GROUNDWORK_BASE_URL"},
			},
			&cli.StringFlag{
				Name:  "chat-model",
				Usage: "Chat completion model",
				Value: "gpt-4o-mini",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model",
				Value: "text-embedding-3-small",
			},
			&cli.IntFlag{
				Name:  "embedding-dimensions",
				Usage: "Embedding vector width",
				Value: 1536,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "worker",
				Usage:  "Run the background ingestion worker and dispatcher",
				Action: workerCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Add a document to the knowledge base and process it",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "Tenant UUID that owns the document",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the document content",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title (default: file name)",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Source type (text, markdown, html)",
						Value: "text",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Source URL recorded on the document",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Query the knowledge base",
				Action:    searchCommand,
				ArgsUsage: "QUERY...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "Tenant UUID to search within",
						Required: true,
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Interactive support conversation on stdin",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "Tenant UUID for the conversation",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "external-id",
						Usage: "External identifier recorded on the conversation",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild chunks and embeddings for a tenant's documents",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "Tenant UUID whose documents are reindexed",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to fetch per batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
				},
			},
			{
				Name:   "summarize",
				Usage:  "Generate and store a summary for a conversation",
				Action: summarizeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "Tenant UUID that owns the conversation",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "conversation",
						Usage:    "Conversation UUID",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newSystem(ctx context.Context, c *cli.Context) (*groundwork.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithAPIKey(c.String("api-key")),
		ai.WithBaseURL(c.String("base-url")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingDimensions(c.Int("embedding-dimensions")),
	)
	opts := []groundwork.SystemOption{
		groundwork.WithAIConfig(aiConfig),
		groundwork.WithCachePath(c.String("cache")),
	}
	if url := c.String("database-url"); url != "" {
		opts = append(opts, groundwork.WithPostgres(url))
	}
	sys, err := groundwork.NewSystem(ctx, c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open system: %w", err)
	}
	return sys, nil
}

func tenantID(c *cli.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.String("tenant"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenant id: %w", err)
	}
	return id, nil
}

func workerCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sys, err := newSystem(ctx, c)
	if err != nil {
		return err
	}
	defer sys.Close()

	dispatcher := sys.NewDispatcher()
	worker := sys.NewWorker()

	go dispatcher.Run(ctx)
	return worker.Run(ctx)
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	tenant, err := tenantID(c)
	if err != nil {
		return err
	}
	sourceType := core.SourceType(c.String("type"))
	if !sourceType.Valid() {
		return fmt.Errorf("invalid source type %q", c.String("type"))
	}

	content, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	title := c.String("title")
	if title == "" {
		title = c.String("file")
	}

	sys, err := newSystem(ctx, c)
	if err != nil {
		return err
	}
	defer sys.Close()

	doc := &core.Document{
		TenantID:   tenant,
		Title:      title,
		SourceURL:  c.String("url"),
		SourceType: sourceType,
		RawContent: string(content),
	}
	if err := sys.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	// Process inline rather than leaving the document to a worker, so the
	// command exits with the final status.
	pipeline := sys.NewPipeline()
	if err := pipeline.IngestDocument(ctx, tenant, doc.ID); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	ready, err := sys.Store().Documents().GetDocument(ctx, tenant, doc.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %q as %s (%d chunks)\n", ready.Title, ready.ID, ready.ChunkCount)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	tenant, err := tenantID(c)
	if err != nil {
		return err
	}
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}

	sys, err := newSystem(ctx, c)
	if err != nil {
		return err
	}
	defer sys.Close()

	results, err := sys.NewRetriever().Retrieve(ctx, tenant, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		section := ""
		if s, ok := hit.Metadata["section"].(string); ok && s != "" {
			section = " " + s
		}
		fmt.Printf("%d:%s [%0.3f] %s\n", i, section, hit.Score, hit.Content)
	}
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	sys, err := newSystem(ctx, c)
	if err != nil {
		return err
	}
	defer sys.Close()

	conv := &core.Conversation{TenantID: tenant, ExternalID: c.String("external-id")}
	if err := sys.Store().Conversations().CreateConversation(ctx, conv); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Conversation %s (ctrl-d to exit)\n", conv.ID)

	eng := sys.NewEngine()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := eng.ProcessMessage(ctx, tenant, conv.ID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Printf("assistant> %s\n", reply.Message.Content)
		if len(reply.Sources) > 0 {
			fmt.Printf("  confidence %0.3f, %d source(s)\n", reply.Confidence, len(reply.Sources))
		}
	}
	return scanner.Err()
}

func reindexCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tenant, err := tenantID(c)
	if err != nil {
		return err
	}
	config := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	sys, err := newSystem(ctx, c)
	if err != nil {
		return err
	}
	defer sys.Close()

	return sys.NewReindexer(config, os.Stderr).Run(ctx, tenant)
}

func summarizeCommand(c *cli.Context) error {
	ctx := context.Background()

	tenant, err := tenantID(c)
	if err != nil {
		return err
	}
	convID, err := uuid.Parse(c.String("conversation"))
	if err != nil {
		return fmt.Errorf("invalid conversation id: %w", err)
	}

	sys, err := newSystem(ctx, c)
	if err != nil {
		return err
	}
	defer sys.Close()

	summary, err := sys.NewEngine().SummarizeConversation(ctx, tenant, convID)
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}
	fmt.Println(summary)
	return nil
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
