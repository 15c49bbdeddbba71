package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/docgraph/internal/pipeline"
	"github.com/OFFIS-RIT/docgraph/internal/queue"
	"github.com/OFFIS-RIT/docgraph/internal/storage"
	"github.com/OFFIS-RIT/docgraph/internal/util"
	"github.com/OFFIS-RIT/docgraph/pkg/ai"
	oai "github.com/OFFIS-RIT/docgraph/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/docgraph/pkg/ai/openai"
	"github.com/OFFIS-RIT/docgraph/pkg/enrich"
	"github.com/OFFIS-RIT/docgraph/pkg/graph"
	"github.com/OFFIS-RIT/docgraph/pkg/ingest"
	"github.com/OFFIS-RIT/docgraph/pkg/leaselock"
	"github.com/OFFIS-RIT/docgraph/pkg/loader"
	fsloader "github.com/OFFIS-RIT/docgraph/pkg/loader/io"
	s3loader "github.com/OFFIS-RIT/docgraph/pkg/loader/s3"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
	"github.com/OFFIS-RIT/docgraph/pkg/store/memory"
	pgxstore "github.com/OFFIS-RIT/docgraph/pkg/store/pgx"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
	sourceFS      = "fs"
	sourceS3      = "s3"
)

type runOptions struct {
	dataDir   string
	batchSize int
	project   string

	storeKind  string
	sourceKind string

	skipTimeline    bool
	skipOntology    bool
	skipEnhancement bool

	dedupeRelationships bool
	lenientJSON         bool
	noEmbeddings        bool
	uploadFailureLogs   bool
	printJSON           bool

	failedNodesLog         string
	failedRelationshipsLog string
}

// newRunOptions takes the defaults from the environment so flags only need
// to override them.
func newRunOptions() *runOptions {
	return &runOptions{
		dataDir:                util.GetEnv("DATA_DIR"),
		batchSize:              util.GetEnvInt("BATCH_SIZE", ingest.DefaultBatchSize),
		project:                util.GetEnvString("PROJECT_NAME", enrich.DefaultProject),
		storeKind:              util.GetEnvString("GRAPH_STORE", storePostgres),
		sourceKind:             util.GetEnvString("DATA_SOURCE", sourceFS),
		failedNodesLog:         ingest.DefaultFailedNodesLog,
		failedRelationshipsLog: ingest.DefaultFailedRelationshipsLog,
	}
}

// bind registers the run flags on cmd. The root command and the run
// subcommand share one set of options.
func (o *runOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.dataDir, "data-dir", o.dataDir, "directory (or S3 prefix) holding the JSON documents")
	f.IntVar(&o.batchSize, "batch-size", o.batchSize, "documents per node transaction")
	f.StringVar(&o.project, "project", o.project, "project name used for the timeline and ontology roots")
	f.StringVar(&o.storeKind, "store", o.storeKind, "graph store: postgres or memory")
	f.StringVar(&o.sourceKind, "source", o.sourceKind, "document source: fs or s3")
	f.BoolVar(&o.skipTimeline, "skip-timeline", false, "skip project timeline creation")
	f.BoolVar(&o.skipOntology, "skip-ontology", false, "skip domain ontology creation")
	f.BoolVar(&o.skipEnhancement, "skip-relationship-enhancement", false, "skip semantic relationship enhancement")
	f.BoolVar(&o.dedupeRelationships, "dedupe-relationships", false, "skip relationships that already exist with the same context")
	f.BoolVar(&o.lenientJSON, "lenient-json", false, "repair malformed JSON input instead of skipping the file")
	f.BoolVar(&o.noEmbeddings, "no-embeddings", false, "do not compute document embeddings")
	f.BoolVar(&o.uploadFailureLogs, "upload-failure-logs", false, "upload failure logs to AWS_BUCKET under runs/<run id>/")
	f.BoolVar(&o.printJSON, "json", false, "print the run summary as JSON to stdout")
	f.StringVar(&o.failedNodesLog, "failed-nodes-log", o.failedNodesLog, "file receiving nodes that could not be stored")
	f.StringVar(&o.failedRelationshipsLog, "failed-relationships-log", o.failedRelationshipsLog, "file receiving relationships that could not be stored")
}

func (o *runOptions) validate() error {
	if o.sourceKind != sourceFS && o.sourceKind != sourceS3 {
		return fmt.Errorf("unknown source %q, expected %s or %s", o.sourceKind, sourceFS, sourceS3)
	}
	if o.storeKind != storePostgres && o.storeKind != storeMemory {
		return fmt.Errorf("unknown store %q, expected %s or %s", o.storeKind, storePostgres, storeMemory)
	}
	if o.sourceKind == sourceFS && o.dataDir == "" {
		return errors.New("--data-dir (or DATA_DIR) is required")
	}
	if o.batchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive, got %d", o.batchSize)
	}
	return nil
}

func newRunCmd(opts *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract the documents and load them into the graph",
		Long: `Extract the documents and load them into the graph.

Examples:
  docgraph run --data-dir ./export
  docgraph run --data-dir ./export --store memory --json
  docgraph run --source s3 --data-dir wiki/ --dedupe-relationships`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runPipeline(cmd *cobra.Command, opts *runOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to create run id: %w", err)
	}
	logger.Info("[Run] Starting", "run_id", runID, "source", opts.sourceKind, "store", opts.storeKind)

	var (
		graphStore store.GraphStore
		lease      pipeline.Locker
	)
	switch opts.storeKind {
	case storeMemory:
		graphStore = memory.New(memory.WithRelationshipDedupe(opts.dedupeRelationships))
	default:
		databaseURL := util.GetEnv("DATABASE_URL")
		if err := pgxstore.Migrate(databaseURL); err != nil {
			return err
		}
		pool, err := pgxstore.Connect(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		graphStore = pgxstore.NewGraphStore(pool, pgxstore.WithRelationshipDedupe(opts.dedupeRelationships))
		lease = leaselock.New(pool)
	}

	files, err := newFileLoader(ctx, opts)
	if err != nil {
		return err
	}

	var embedder ai.EmbeddingClient
	if !opts.noEmbeddings {
		embedder, err = newEmbedder(util.GetEnvString("AI_ADAPTER", "ollama"))
		if err != nil {
			return err
		}
	}

	builderParams := graph.NewGraphBuilderParams{Lookup: graphStore}
	if embedder != nil {
		builderParams.Embedder = embedder
	}

	params := pipeline.NewPipelineParams{
		Store:    graphStore,
		Files:    files,
		Builder:  graph.NewGraphBuilder(builderParams),
		Embedder: embedder,
		Lease:    lease,
		Config: pipeline.Config{
			RunID:                  runID,
			Project:                opts.project,
			BatchSize:              opts.batchSize,
			Lenient:                opts.lenientJSON,
			SkipTimeline:           opts.skipTimeline,
			SkipOntology:           opts.skipOntology,
			SkipEnhancement:        opts.skipEnhancement,
			FailedNodesLog:         opts.failedNodesLog,
			FailedRelationshipsLog: opts.failedRelationshipsLog,
		},
	}

	notifier, closeNotifier := newNotifier(queue.ConfigFromEnv(), dialBroker)
	defer closeNotifier()
	if notifier != nil {
		params.Notifier = notifier
	}

	if opts.uploadFailureLogs {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			return err
		}
		params.Uploader = storage.Uploader{Client: client, Bucket: storage.Bucket(), Prefix: path.Join("runs", runID)}
	}

	summary, err := pipeline.NewPipeline(params).Run(ctx)
	if summary != nil && opts.printJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(summary); encErr != nil {
			logger.Error("[Run] Failed to write summary", "err", encErr)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("[Run] Interrupted", "run_id", runID)
		}
		return err
	}

	logger.Info("[Run] Finished",
		"run_id", runID,
		"files", summary.Load.FilesProcessed,
		"nodes", summary.Load.NodesCreated,
		"relationships", summary.Load.RelationshipsCreated,
		"errors", summary.Load.Errors,
	)
	return nil
}

func newFileLoader(ctx context.Context, opts *runOptions) (loader.GraphFileLoader, error) {
	if opts.sourceKind != sourceS3 {
		return fsloader.NewIOGraphFileLoader(opts.dataDir), nil
	}
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	bucket := storage.Bucket()
	if bucket == "" {
		return nil, errors.New("AWS_BUCKET is required for the s3 source")
	}
	return s3loader.NewS3GraphFileLoaderWithClient(bucket, opts.dataDir, client), nil
}

// newEmbedder selects the embedding backend named by adapter.
func newEmbedder(adapter string) (ai.EmbeddingClient, error) {
	maxTokens := util.GetEnvInt("AI_EMBED_MAX_TOKENS", ai.DefaultMaxEmbeddingTokens)
	dimensions := util.GetEnvInt("AI_EMBED_DIM", 0)
	timeout := util.GetEnvDuration("AI_TIMEOUT", 0)
	parallel := int64(util.GetEnvInt("AI_EMBED_PARALLEL", 0))

	switch adapter {
	case "ollama":
		client, err := oai.NewEmbeddingClient(oai.NewEmbeddingClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			Dimensions:     dimensions,
			MaxTokens:      maxTokens,
			Timeout:        timeout,
			BaseURL:        util.GetEnv("AI_EMBED_URL"),
			ApiKey:         util.GetEnv("AI_EMBED_KEY"),

			MaxConcurrentRequests: parallel,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Ollama client: %w", err)
		}
		return client, nil
	case "openai":
		return gai.NewEmbeddingClient(gai.NewEmbeddingClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			Dimensions:     dimensions,
			MaxTokens:      maxTokens,
			Timeout:        timeout,
			BaseURL:        util.GetEnv("AI_EMBED_URL"),
			ApiKey:         util.GetEnv("AI_EMBED_KEY"),

			MaxConcurrentRequests: parallel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q, expected ollama or openai", adapter)
	}
}
