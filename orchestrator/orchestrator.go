package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/threadcast/threadcast/config"
	"github.com/threadcast/threadcast/delivery"
	"github.com/threadcast/threadcast/engine"
	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/internal/sentence"
	"github.com/threadcast/threadcast/queue"
	"github.com/threadcast/threadcast/speech"
	"github.com/threadcast/threadcast/thread"
)

type (
	// Streamer drives one model generation and yields text fragments.
	Streamer interface {
		Stream(ctx context.Context, req engine.StreamRequest, onFragment engine.OnFragment) error
	}

	// Synthesizer turns one sentence into a stored audio clip. A nil clip
	// with a nil error means the text had nothing speakable.
	Synthesizer interface {
		Synthesize(ctx context.Context, text, voice string) (*speech.Clip, error)
	}

	// Orchestrator consumes work items and runs the full response pipeline
	// for each: mark the thread, stream the model, fan chunks out to live
	// subscribers, synthesize sentence audio, and persist the final message.
	Orchestrator struct {
		logger    *slog.Logger
		store     thread.Store
		publisher delivery.Publisher
		streamer  Streamer
		synth     Synthesizer
		cfg       *config.RuntimeConfig
	}

	// accumulator collects everything the stream produced so far. It is
	// only touched by the stream callback and, after the stream has fully
	// stopped, by finalization, so it needs no locking.
	accumulator struct {
		full    string
		pending string
		clips   []string
	}
)

func NewOrchestrator(
	logger *slog.Logger,
	store thread.Store,
	publisher delivery.Publisher,
	streamer Streamer,
	synth Synthesizer,
	cfg *config.RuntimeConfig,
) *Orchestrator {
	return &Orchestrator{
		logger:    logger,
		store:     store,
		publisher: publisher,
		streamer:  streamer,
		synth:     synth,
		cfg:       cfg,
	}
}

// Process handles one received batch. Items run concurrently, each with an
// equal slice of the remaining invocation budget; an item that exhausts its
// slice is cut off and finalized with whatever it produced.
func (o *Orchestrator) Process(ctx context.Context, items []queue.WorkItem) error {
	if len(items) == 0 {
		return nil
	}

	remaining := o.cfg.InvocationBudget
	if deadline, ok := ctx.Deadline(); ok {
		remaining = time.Until(deadline)
	}
	budget := (remaining - o.cfg.SafetyBuffer) / time.Duration(len(items))
	if budget < time.Second {
		budget = time.Second
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, item := range items {
		eg.Go(func() error {
			return o.handle(egCtx, item, budget)
		})
	}
	return eg.Wait()
}

func (o *Orchestrator) handle(parent context.Context, item queue.WorkItem, budget time.Duration) error {
	userID := item.Identity.Sub
	threadID := item.Arguments.Input.ThreadID
	logger := o.logger.With("user_id", userID, "thread_id", threadID)

	acc := &accumulator{}
	streamCtx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- o.run(streamCtx, item, acc)
	}()

	var (
		runErr   error
		timedOut bool
	)
	select {
	case runErr = <-done:
	case res := <-timeoutAfter(streamCtx, budget):
		timedOut = true
		logger.Warn(res.Message, "status_code", res.StatusCode, "budget", budget)
		cancel()
		<-done
	}

	// Finalization runs on the parent context: even a timed-out item still
	// gets its partial response persisted and its terminal chunk delivered.
	return o.finalize(parent, logger, item, acc, runErr, timedOut)
}

// run marks the thread, records the user's turn and drives the model stream.
// The user message append and the stream start concurrently; the model does
// not need the append to have landed.
func (o *Orchestrator) run(ctx context.Context, item queue.WorkItem, acc *accumulator) error {
	userID := item.Identity.Sub
	input := item.Arguments.Input

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		// Deliberately not egCtx: the user's turn is recorded even when
		// the stream fails before producing anything.
		if err := o.store.SetStatus(ctx, userID, input.ThreadID, entity.StatusProcessing); err != nil {
			return err
		}
		return o.store.AppendMessage(ctx, userID, input.ThreadID, entity.Message{
			ID:        uuid.NewString(),
			Sender:    entity.SenderUser,
			Content:   input.Prompt,
			CreatedAt: time.Now().UTC(),
		})
	})
	eg.Go(func() error {
		return o.streamer.Stream(egCtx, engine.StreamRequest{
			Persona: item.Prev.Result.Persona,
			History: item.Prev.Result.Messages,
			Query:   input.Prompt,
		}, o.onFragment(item, acc))
	})
	return eg.Wait()
}

// onFragment builds the per-fragment callback: accumulate, push the cumulative
// text to subscribers, and cut completed sentences into audio. Delivery and
// synthesis failures are reported as error chunks but never stop the stream;
// one bad fragment must not cost the rest of the response.
func (o *Orchestrator) onFragment(item queue.WorkItem, acc *accumulator) engine.OnFragment {
	userID := item.Identity.Sub
	threadID := item.Arguments.Input.ThreadID
	voice := item.Prev.Result.Persona.Voice
	wantAudio := o.wantAudio(item)

	return func(ctx context.Context, fragment string) error {
		acc.full += fragment

		o.send(ctx, entity.Chunk{
			UserID:   userID,
			ThreadID: threadID,
			Status:   entity.StatusProcessing,
			Type:     entity.ChunkTypeText,
			Content:  acc.full,
		})

		if !wantAudio {
			return nil
		}
		acc.pending += fragment
		for {
			cut, rest, ok := sentence.Extract(acc.pending)
			if !ok {
				return nil
			}
			acc.pending = rest
			o.speak(ctx, userID, threadID, voice, cut, acc)
		}
	}
}

// speak synthesizes one sentence and announces the clip URL to subscribers.
func (o *Orchestrator) speak(ctx context.Context, userID, threadID, voice, text string, acc *accumulator) {
	clip, err := o.synth.Synthesize(ctx, text, voice)
	if err != nil {
		o.logger.Error("failed to synthesize sentence", "thread_id", threadID, "error", err)
		o.send(ctx, entity.Chunk{
			UserID:   userID,
			ThreadID: threadID,
			Status:   entity.StatusProcessing,
			Type:     entity.ChunkTypeError,
			Content:  "audio synthesis failed",
		})
		return
	}
	if clip == nil {
		return
	}
	acc.clips = append(acc.clips, clip.Key)
	o.send(ctx, entity.Chunk{
		UserID:   userID,
		ThreadID: threadID,
		Status:   entity.StatusProcessing,
		Type:     entity.ChunkTypeAudio,
		Content:  clip.URL,
	})
}

// finalize persists the assistant turn and emits the terminal chunk. A stream
// that produced nothing and failed is recorded as ERROR; anything with output
// (including a timed-out partial) is persisted and completed.
func (o *Orchestrator) finalize(ctx context.Context, logger *slog.Logger, item queue.WorkItem, acc *accumulator, runErr error, timedOut bool) error {
	userID := item.Identity.Sub
	threadID := item.Arguments.Input.ThreadID

	if runErr != nil && !timedOut && acc.full == "" {
		logger.Error("response pipeline failed before any output", "error", runErr)
		if err := o.store.SetStatus(ctx, userID, threadID, entity.StatusError); err != nil {
			logger.Error("failed to record error status", "error", err)
		}
		o.send(ctx, entity.Chunk{
			UserID:   userID,
			ThreadID: threadID,
			Status:   entity.StatusError,
			Type:     entity.ChunkTypeError,
			Content:  runErr.Error(),
		})
		// The failure is durably recorded; redelivering the item would
		// only replay it against a thread that is no longer admissible.
		return nil
	}
	if runErr != nil && !timedOut {
		logger.Warn("stream ended early, persisting partial response", "error", runErr)
	}

	voice := item.Prev.Result.Persona.Voice
	if o.wantAudio(item) && acc.pending != "" && !timedOut {
		// The tail after the last terminator never formed a sentence.
		o.speak(ctx, userID, threadID, voice, acc.pending, acc)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return o.store.AppendMessage(egCtx, userID, threadID, entity.Message{
			ID:         uuid.NewString(),
			Sender:     entity.SenderAssistant,
			Content:    acc.full,
			AudioClips: acc.clips,
			CreatedAt:  time.Now().UTC(),
		})
	})
	eg.Go(func() error {
		return o.store.SetStatus(egCtx, userID, threadID, entity.StatusComplete)
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	o.send(ctx, entity.Chunk{
		UserID:   userID,
		ThreadID: threadID,
		Status:   entity.StatusComplete,
		Type:     entity.ChunkTypeStatus,
	})
	return nil
}

// wantAudio reports whether this item produces audio clips: the caller asked
// for them, the persona has a voice and a synthesizer is wired in.
func (o *Orchestrator) wantAudio(item queue.WorkItem) bool {
	return item.Arguments.Input.IncludeAudio &&
		item.Prev.Result.Persona.Voice != "" &&
		o.synth != nil
}

func (o *Orchestrator) send(ctx context.Context, chunk entity.Chunk) {
	if err := o.publisher.SendChunk(ctx, chunk); err != nil {
		o.logger.Error("failed to deliver chunk",
			"thread_id", chunk.ThreadID, "chunk_type", chunk.Type, "error", err)
	}
}
