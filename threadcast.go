package threadcast

import (
	"context"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/threadcast/threadcast/config"
	"github.com/threadcast/threadcast/delivery"
	"github.com/threadcast/threadcast/engine"
	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
	"github.com/threadcast/threadcast/gate"
	"github.com/threadcast/threadcast/internal/mylog"
	"github.com/threadcast/threadcast/knowledge"
	"github.com/threadcast/threadcast/orchestrator"
	"github.com/threadcast/threadcast/queue"
	"github.com/threadcast/threadcast/speech"
	"github.com/threadcast/threadcast/thread"
)

type (
	// Runtime wires the full response pipeline. Every component can be
	// replaced through an Option; anything left unset is built on the
	// ambient AWS configuration.
	Runtime struct {
		logger       *slog.Logger
		store        thread.Store
		publisher    delivery.Publisher
		streamer     orchestrator.Streamer
		synthesizer  orchestrator.Synthesizer
		retriever    knowledge.Retriever
		enqueuer     gate.Enqueuer
		sqsQueue     *queue.SQSQueue
		gate         *gate.Gate
		orchestrator *orchestrator.Orchestrator

		logConfig     *config.LogConfig
		awsConfig     *config.AWSConfig
		runtimeConfig *config.RuntimeConfig
	}
	Option func(*Runtime)
)

func NewRuntime(ctx context.Context, optionFuncs ...Option) (*Runtime, error) {
	r := &Runtime{
		logConfig:     config.NewLogConfigFromEnv(),
		awsConfig:     config.NewAWSConfigFromEnv(),
		runtimeConfig: config.NewRuntimeConfigFromEnv(),
	}
	for _, f := range optionFuncs {
		f(r)
	}

	if r.logger == nil {
		r.logger = mylog.NewLogger(r.logConfig.LogLevel, r.logConfig.LogHandler)
	}

	needsAWS := r.store == nil || r.publisher == nil || r.streamer == nil ||
		r.synthesizer == nil || (r.enqueuer == nil && r.sqsQueue == nil)
	if needsAWS {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(r.awsConfig.Region))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load aws config")
		}

		if r.store == nil {
			if r.awsConfig.ThreadTable == "" {
				return nil, errors.Wrapf(errors.ErrInvalidConfig, "thread table name is required")
			}
			r.store = thread.NewDynamoStore(r.logger, dynamodb.NewFromConfig(awsCfg), r.awsConfig.ThreadTable, r.runtimeConfig.ThreadTTL)
		}
		if r.publisher == nil {
			if r.awsConfig.GraphQLEndpoint == "" {
				return nil, errors.Wrapf(errors.ErrInvalidConfig, "graphql endpoint is required")
			}
			r.publisher = delivery.NewAppSync(r.logger, r.awsConfig.GraphQLEndpoint, r.awsConfig.Region, awsCfg.Credentials)
		}
		if r.streamer == nil {
			if r.retriever == nil {
				r.retriever = knowledge.NewBedrockRetriever(r.logger, bedrockagentruntime.NewFromConfig(awsCfg))
			}
			r.streamer = engine.NewEngine(r.logger, bedrockruntime.NewFromConfig(awsCfg), r.retriever)
		}
		if r.synthesizer == nil && r.awsConfig.AudioBucket == "" {
			r.logger.Warn("audio bucket not configured, audio synthesis disabled")
		}
		if r.synthesizer == nil && r.awsConfig.AudioBucket != "" {
			s3Client := s3.NewFromConfig(awsCfg)
			r.synthesizer = speech.NewSynthesizer(
				r.logger,
				polly.NewFromConfig(awsCfg),
				s3Client,
				s3.NewPresignClient(s3Client),
				r.awsConfig.AudioBucket,
				r.runtimeConfig.AudioURLTTL,
			)
		}
		if r.enqueuer == nil && r.sqsQueue == nil {
			if r.awsConfig.QueueURL == "" {
				return nil, errors.Wrapf(errors.ErrInvalidConfig, "queue url is required")
			}
			r.sqsQueue = queue.NewSQSQueue(r.logger, sqs.NewFromConfig(awsCfg), r.awsConfig.QueueURL)
		}
	}
	if r.enqueuer == nil {
		r.enqueuer = r.sqsQueue
	}

	r.gate = gate.NewGate(r.logger, r.store, r.enqueuer)
	r.orchestrator = orchestrator.NewOrchestrator(r.logger, r.store, r.publisher, r.streamer, r.synthesizer, r.runtimeConfig)

	return r, nil
}

// Admit validates one incoming request and hands it to the worker queue. The
// returned message is the caller's own turn, echoed for immediate display.
func (r *Runtime) Admit(ctx context.Context, req gate.AdmitRequest) (*entity.Message, error) {
	return r.gate.Admit(ctx, req)
}

// Process runs the response pipeline for a batch of received work items.
func (r *Runtime) Process(ctx context.Context, items []queue.WorkItem) error {
	return r.orchestrator.Process(ctx, items)
}

// Consumer builds a long-polling queue consumer bound to this runtime's
// pipeline. It requires the runtime to be backed by a real queue.
func (r *Runtime) Consumer() (*queue.Consumer, error) {
	if r.sqsQueue == nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "runtime has no sqs queue to consume")
	}
	return queue.NewConsumer(r.logger, r.sqsQueue, r.Process, r.runtimeConfig.MaxBatch, r.runtimeConfig.ReceiveWait), nil
}

func (r *Runtime) Store() thread.Store {
	return r.store
}

func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

func WithLogger(logger *slog.Logger) func(r *Runtime) {
	return func(r *Runtime) {
		r.logger = logger
	}
}

func WithLogConfig(logConfig *config.LogConfig) func(r *Runtime) {
	return func(r *Runtime) {
		r.logConfig = logConfig
	}
}

func WithAWSConfig(awsConfig *config.AWSConfig) func(r *Runtime) {
	return func(r *Runtime) {
		r.awsConfig = awsConfig
	}
}

func WithRuntimeConfig(runtimeConfig *config.RuntimeConfig) func(r *Runtime) {
	return func(r *Runtime) {
		r.runtimeConfig = runtimeConfig
	}
}

func WithStore(store thread.Store) func(r *Runtime) {
	return func(r *Runtime) {
		r.store = store
	}
}

func WithPublisher(publisher delivery.Publisher) func(r *Runtime) {
	return func(r *Runtime) {
		r.publisher = publisher
	}
}

func WithStreamer(streamer orchestrator.Streamer) func(r *Runtime) {
	return func(r *Runtime) {
		r.streamer = streamer
	}
}

func WithSynthesizer(synthesizer orchestrator.Synthesizer) func(r *Runtime) {
	return func(r *Runtime) {
		r.synthesizer = synthesizer
	}
}

func WithRetriever(retriever knowledge.Retriever) func(r *Runtime) {
	return func(r *Runtime) {
		r.retriever = retriever
	}
}

func WithEnqueuer(enqueuer gate.Enqueuer) func(r *Runtime) {
	return func(r *Runtime) {
		r.enqueuer = enqueuer
	}
}

func WithSQSQueue(q *queue.SQSQueue) func(r *Runtime) {
	return func(r *Runtime) {
		r.sqsQueue = q
	}
}
