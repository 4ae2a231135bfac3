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


package vitalit

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/vitalit/ai"
	"github.com/poiesic/vitalit/ai/openai"
	"github.com/poiesic/vitalit/chunk"
	"github.com/poiesic/vitalit/core"
	"github.com/poiesic/vitalit/embed"
	"github.com/poiesic/vitalit/export"
	"github.com/poiesic/vitalit/prompt"
	"github.com/poiesic/vitalit/retrieval"
	"github.com/poiesic/vitalit/storage"
	"github.com/poiesic/vitalit/storage/badger"
)

// Service ties the pipeline together: parse an export, chunk it, embed
// it, and answer questions grounded in the stored chunks.
type Service struct {
	backend        *badger.Backend
	vectorStore    storage.VectorStore
	blobStore      storage.BlobStore
	provider       ai.Provider
	parser         *export.Parser
	builder        *chunk.Builder
	assembler      *prompt.Assembler
	embedOpts      []embed.Option
	progressWriter io.Writer
	logger         *slog.Logger
}

// progressReportInterval is how often import progress lines are written.
const progressReportInterval = 10

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig       *ai.Config
	provider       ai.Provider
	vectorStore    storage.VectorStore
	chunkOpts      []chunk.Option
	embedOpts      []embed.Option
	promptOpts     []prompt.Option
	progressWriter io.Writer
	inMemory       bool
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider, bypassing the OpenAI
// factory. The service takes ownership and closes it.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithVectorStore replaces the default Badger vector store with an
// external backend, e.g. Postgres with pgvector for native search.
// The service takes ownership and closes it.
func WithVectorStore(store storage.VectorStore) ServiceOption {
	return func(o *serviceOptions) {
		o.vectorStore = store
	}
}

// WithChunkOptions forwards options to the chunk builder.
func WithChunkOptions(opts ...chunk.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.chunkOpts = append(o.chunkOpts, opts...)
	}
}

// WithEmbedOptions forwards options to embedding runs.
func WithEmbedOptions(opts ...embed.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.embedOpts = append(o.embedOpts, opts...)
	}
}

// WithPromptOptions forwards options to the context assembler.
func WithPromptOptions(opts ...prompt.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.promptOpts = append(o.promptOpts, opts...)
	}
}

// WithProgressWriter reports per-chunk embedding progress during imports,
// typically to os.Stderr.
func WithProgressWriter(w io.Writer) ServiceOption {
	return func(o *serviceOptions) {
		o.progressWriter = w
	}
}

// WithInMemory opens the Badger backend in memory, for tests and
// ephemeral use.
func WithInMemory() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// NewService opens the storage backend at filePath and wires the
// pipeline components.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	vectorStore := options.vectorStore
	if vectorStore == nil {
		vectorStore, err = badger.NewVectorStore(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	blobStore, err := badger.NewBlobStore(backend)
	if err != nil {
		vectorStore.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			blobStore.Close()
			vectorStore.Close()
			backend.Close()
			return nil, err
		}
	}

	assembler, err := prompt.NewAssembler(options.promptOpts...)
	if err != nil {
		provider.Close()
		blobStore.Close()
		vectorStore.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:        backend,
		vectorStore:    vectorStore,
		blobStore:      blobStore,
		provider:       provider,
		parser:         export.NewParser(),
		builder:        chunk.NewBuilder(options.chunkOpts...),
		assembler:      assembler,
		embedOpts:      options.embedOpts,
		progressWriter: options.progressWriter,
		logger:         slog.Default(),
	}, nil
}

// ImportResult summarizes one export import.
type ImportResult struct {
	DocumentID string
	Records    int
	Skipped    int
	Chunks     int
	Processed  int
}

// ImportExport parses a raw export, stores the original blob, and embeds
// its chunks under the owner partition. The document ID is derived from
// the content, so re-importing the same export replaces its chunks
// instead of duplicating them.
//
// If the embedding run fails after the blob write, the blob is deleted
// again so no orphaned export lingers without derived chunks.
func (s *Service) ImportExport(ctx context.Context, ownerID string, data []byte) (*ImportResult, error) {
	parsed, err := s.parser.Parse(string(data))
	if err != nil {
		return nil, err
	}

	documentID := core.DocumentIDFromContent(ownerID, string(data))
	result := &ImportResult{
		DocumentID: documentID,
		Records:    len(parsed.Records),
		Skipped:    parsed.Skipped,
	}

	if err := s.blobStore.Put(ctx, ownerID, documentID, data); err != nil {
		return nil, fmt.Errorf("%w: storing export blob: %w", core.ErrPersistence, err)
	}

	chunks := s.builder.Build(parsed.Records)
	result.Chunks = len(chunks)

	embedOpts := s.embedOpts
	if s.progressWriter != nil {
		tracker := embed.NewProgressTracker(s.progressWriter, len(chunks), progressReportInterval)
		embedOpts = append(embedOpts, embed.WithProgress(tracker))
	}

	orchestrator, err := embed.NewOrchestrator(s.vectorStore, s.provider.Embedder(), embedOpts...)
	if err != nil {
		s.compensateBlob(ctx, ownerID, documentID)
		return nil, err
	}
	defer orchestrator.Release()

	embedResult, err := orchestrator.EmbedDocument(ctx, ownerID, documentID, chunks)
	if err != nil {
		s.compensateBlob(ctx, ownerID, documentID)
		return nil, err
	}
	result.Processed = embedResult.Processed

	s.logger.Info("imported export",
		"owner", ownerID, "document", documentID,
		"records", result.Records, "skipped", result.Skipped, "chunks", result.Chunks)
	return result, nil
}

// compensateBlob removes the export blob written earlier in a failed
// import, so the two writes succeed or fail together.
func (s *Service) compensateBlob(ctx context.Context, ownerID, documentID string) {
	if err := s.blobStore.Delete(ctx, ownerID, documentID); err != nil {
		s.logger.Error("failed to remove orphaned export blob",
			"owner", ownerID, "document", documentID, "err", err)
	}
}

// Search returns the owner's chunks best matching the query.
func (s *Service) Search(ctx context.Context, ownerID, query string, opts retrieval.Options) ([]core.ChunkMatch, error) {
	retriever, err := retrieval.NewRetriever(s.vectorStore, s.provider.Embedder())
	if err != nil {
		return nil, err
	}
	return retriever.Search(ctx, ownerID, query, opts)
}

// NewSession starts a bounded conversation.
func (s *Service) NewSession(opts ...prompt.SessionOption) *prompt.Session {
	return prompt.NewSession(opts...)
}

// Ask retrieves context for the question, assembles a guarded prompt,
// and asks the chat model. The question and the reply are appended to
// the session history.
func (s *Service) Ask(ctx context.Context, ownerID, question string, session *prompt.Session, opts retrieval.Options) (string, error) {
	if session == nil {
		return "", fmt.Errorf("session required")
	}

	matches, err := s.Search(ctx, ownerID, question, opts)
	if err != nil {
		return "", err
	}

	assembled := s.assembler.Assemble(question, matches)
	session.Append(ai.RoleUser, question)

	reply, err := s.provider.ChatModel().Reply(ctx, assembled.Prompt, session.Turns())
	if err != nil {
		return "", err
	}
	session.Append(ai.RoleAssistant, reply)
	return reply, nil
}

// ExportBlob returns the original export content for a document.
func (s *Service) ExportBlob(ctx context.Context, ownerID, documentID string) ([]byte, error) {
	return s.blobStore.Get(ctx, ownerID, documentID)
}

// DeleteDocument removes a document's chunks and its stored export blob.
// An empty documentID removes everything the owner has.
func (s *Service) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	if err := s.vectorStore.DeleteByOwner(ctx, ownerID, documentID); err != nil {
		return fmt.Errorf("%w: deleting chunks: %w", core.ErrPersistence, err)
	}
	if documentID != "" {
		if err := s.blobStore.Delete(ctx, ownerID, documentID); err != nil {
			return fmt.Errorf("%w: deleting export blob: %w", core.ErrPersistence, err)
		}
	}
	return nil
}

// VectorStore exposes the underlying vector store.
func (s *Service) VectorStore() storage.VectorStore {
	return s.vectorStore
}

// Close shuts the service down in dependency order.
func (s *Service) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.vectorStore.Close(); err != nil {
		s.logger.Error("error closing vector store", "err", err)
		return err
	}
	if err := s.blobStore.Close(); err != nil {
		s.logger.Error("error closing blob store", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
