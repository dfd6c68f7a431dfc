// Package podcast implements the document-to-podcast workflow engine: the
// ordered pipeline that takes extracted content plus a topic plan, produces a
// two-speaker dialogue script behind a safety gate, and renders it to one
// stitched audio track, tracking per-stage state, retries and logging.
package podcast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/doccast/doccast/internal/logger"
	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/providers/moderation"
	"github.com/doccast/doccast/internal/storage"
	"github.com/doccast/doccast/internal/utils"
)

// DefaultMaxSafetyRetries bounds how often a blocked generated script is
// regenerated before the run fails with CONTENT_REJECTED.
const DefaultMaxSafetyRetries = 2

// SessionInput is everything the engine needs for one run. Content is the
// pre-satisfied output of the external extractor; Plan may be empty, in which
// case a planning stage derives it from the content.
type SessionInput struct {
	SessionID string `json:"session_id,omitempty"` // generated when empty
	Content   models.ExtractedContent
	Plan      models.TopicPlan
	Personas  models.PersonaPair
	Options   RenderOptions
}

// SessionResult is the all-or-nothing outcome of a run. Track and Script are
// set only on a completed session; a failed or cancelled session carries the
// failure code, the failing stage, and the partial stage history instead.
type SessionResult struct {
	Session *models.Session
	Script  *models.DialogueScript
	Track   *models.AudioTrack

	FailureCode utils.Code
	FailedStage models.Stage
	Err         error
}

// Observer is notified after every stage transition and at termination, e.g.
// to persist session snapshots for pollers.
type Observer interface {
	OnUpdate(ctx context.Context, s *models.Session)
}

type Config struct {
	Gate     *SafetyGate
	Scripts  *ScriptGenerator
	Renderer *Renderer
	Store    storage.BlobStore
	Sink     EventSink // optional
	Observer Observer  // optional
	Retry    RetryPolicy
	Log      *logrus.Logger
}

// Engine drives one session at a time through the pipeline state machine.
// A single Engine value is safe for concurrent Run calls; all per-session
// state lives in the Session and SessionLogger created per run.
type Engine struct {
	gate     *SafetyGate
	scripts  *ScriptGenerator
	renderer *Renderer
	store    storage.BlobStore
	sink     EventSink
	observer Observer
	retry    RetryPolicy
	log      *logrus.Logger
}

func NewEngine(cfg Config) (*Engine, error) {
	const op = "podcast.NewEngine"
	if cfg.Gate == nil || cfg.Scripts == nil || cfg.Renderer == nil || cfg.Store == nil {
		return nil, utils.E(utils.CodeConfiguration, op, "gate, scripts, renderer and store are required", nil)
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	return &Engine{
		gate:     cfg.Gate,
		scripts:  cfg.Scripts,
		renderer: cfg.Renderer,
		store:    cfg.Store,
		sink:     cfg.Sink,
		observer: cfg.Observer,
		retry:    cfg.Retry,
		log:      cfg.Log,
	}, nil
}

// Run executes the full pipeline for one session. It always returns a
// result; pipeline failures are reported in the result, not as a Go error.
func (e *Engine) Run(ctx context.Context, in SessionInput) *SessionResult {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess := &models.Session{
		SessionID: sessionID,
		Status:    models.StatusRunning,
		Stage:     models.StageCreated,
		CreatedAt: time.Now().UTC(),
	}
	slog := NewSessionLogger(sessionID, e.store, e.sink, logger.ForSession(e.log, sessionID))

	run := &runState{engine: e, sess: sess, slog: slog, opts: normalizeOptions(in.Options)}

	if err := validateInput(in); err != nil {
		return run.fail(ctx, err)
	}

	slog.Log("info", models.StageCreated, "session created")

	// input safety check
	if err := run.checkCancel(ctx); err != nil {
		return run.fail(ctx, err)
	}
	run.transition(ctx, models.StageSafetyCheckingInput)

	verdict, err := run.checkSafety(ctx, models.StageSafetyCheckingInput, in.Content.Text)
	if err != nil {
		return run.fail(ctx, err)
	}
	if !verdict.Allowed {
		return run.fail(ctx, utils.E(utils.CodeContentRejected, "Engine.Run",
			fmt.Sprintf("input blocked by safety gate (categories: %v)", verdict.Categories), nil))
	}

	// planning, when the caller brought no plan
	plan := in.Plan
	if len(plan) == 0 {
		if err := run.checkCancel(ctx); err != nil {
			return run.fail(ctx, err)
		}
		run.transition(ctx, models.StagePlanning)
		err := run.runStage(ctx, models.StagePlanning, retryableGeneration, func(ctx context.Context) error {
			var perr error
			plan, perr = e.scripts.GeneratePlan(ctx, in.Content)
			return perr
		})
		if err != nil {
			return run.fail(ctx, err)
		}
	}

	// generation with post-check; a blocked script re-enters generation up
	// to MaxSafetyRetries times, never any earlier stage
	var script *models.DialogueScript
	for safetyTry := 0; ; safetyTry++ {
		if err := run.checkCancel(ctx); err != nil {
			return run.fail(ctx, err)
		}
		run.transition(ctx, models.StageGenerating)
		err := run.runStage(ctx, models.StageGenerating, retryableGeneration, func(ctx context.Context) error {
			var gerr error
			script, gerr = e.scripts.Generate(ctx, in.Content, plan, in.Personas, run.opts.Style)
			return gerr
		})
		if err != nil {
			return run.fail(ctx, err)
		}

		if err := run.checkCancel(ctx); err != nil {
			return run.fail(ctx, err)
		}
		run.transition(ctx, models.StageSafetyCheckingOut)

		verdict, err := run.checkSafety(ctx, models.StageSafetyCheckingOut, script.Text())
		if err != nil {
			return run.fail(ctx, err)
		}
		if verdict.Allowed {
			break
		}

		slog.Log("warning", models.StageSafetyCheckingOut,
			fmt.Sprintf("generated script blocked (categories: %v)", verdict.Categories))
		if safetyTry >= run.opts.MaxSafetyRetries {
			return run.fail(ctx, utils.E(utils.CodeContentRejected, "Engine.Run",
				"generated script blocked after exhausting safety retries", nil))
		}
	}

	// rendering; the renderer owns per-turn retry and fallback
	if err := run.checkCancel(ctx); err != nil {
		return run.fail(ctx, err)
	}
	run.transition(ctx, models.StageRendering)

	started := time.Now().UTC()
	track, turnResults, err := e.renderer.Render(ctx, script, in.Personas, run.opts)
	run.recordRender(started, turnResults, err)
	if err != nil {
		return run.fail(ctx, err)
	}

	// done
	sess.Status = models.StatusCompleted
	sess.Stage = models.StageCompleted
	now := time.Now().UTC()
	sess.EndedAt = &now
	slog.Log("info", models.StageCompleted,
		fmt.Sprintf("session completed: %d turns, %d segments", len(script.Turns), track.SegmentCount))
	run.finish(ctx)

	return &SessionResult{Session: sess, Script: script, Track: track}
}

func normalizeOptions(opts RenderOptions) RenderOptions {
	if opts.Style == "" {
		opts.Style = StyleEducational
	}
	if opts.Provider == "" {
		opts.Provider = "azure"
	}
	if opts.MaxSafetyRetries <= 0 {
		opts.MaxSafetyRetries = DefaultMaxSafetyRetries
	}
	return opts
}

func validateInput(in SessionInput) error {
	const op = "podcast.validateInput"
	if in.Content.Text == "" {
		return utils.E(utils.CodeInvalidArgument, op, "extracted content is empty", nil)
	}
	p := in.Personas
	if p.First.Role == "" || p.Second.Role == "" || p.First.Tag == "" || p.Second.Tag == "" {
		return utils.E(utils.CodeInvalidArgument, op, "persona pair is incomplete", nil)
	}
	if p.First.Tag == p.Second.Tag {
		return utils.E(utils.CodeInvalidArgument, op, "persona tags must differ", nil)
	}
	return nil
}

// retryableGeneration retries transports plus the two malformed-output
// classes, which signal a bad sample rather than a broken pipeline.
func retryableGeneration(err error) bool {
	return utils.IsTransient(err) ||
		utils.IsCode(err, utils.CodeScriptFormat) ||
		utils.IsCode(err, utils.CodeScriptTooShort)
}

// runState carries the mutable bookkeeping of one Run call.
type runState struct {
	engine *Engine
	sess   *models.Session
	slog   *SessionLogger
	opts   RenderOptions
}

func (r *runState) checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return utils.E(utils.CodeCancelled, "Engine.Run", "cancelled between stages", err)
	}
	return nil
}

// transition moves the session into a new stage and flushes the log: every
// stage transition is a durability checkpoint.
func (r *runState) transition(ctx context.Context, stage models.Stage) {
	r.sess.Stage = stage
	r.slog.Log("info", stage, "entering stage")
	_ = r.slog.Flush(ctx)
	if r.engine.observer != nil {
		r.engine.observer.OnUpdate(ctx, r.sess)
	}
}

// runStage executes one stage under the uniform retry policy, appending one
// StageRecord per attempt.
func (r *runState) runStage(ctx context.Context, stage models.Stage, retryable func(error) bool, fn func(ctx context.Context) error) error {
	policy := r.engine.retry

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := r.checkCancel(ctx); err != nil {
			return err
		}

		rec := models.StageRecord{Stage: stage, Attempt: attempt, StartedAt: time.Now().UTC()}
		lastErr = fn(ctx)
		now := time.Now().UTC()
		rec.EndedAt = &now

		if lastErr == nil {
			rec.Outcome = models.OutcomeSuccess
			r.sess.Stages = append(r.sess.Stages, rec)
			return nil
		}

		rec.Error = lastErr.Error()
		willRetry := retryable(lastErr) && attempt < policy.MaxAttempts
		if willRetry {
			rec.Outcome = models.OutcomeRetried
			r.sess.Stages = append(r.sess.Stages, rec)
			r.slog.Log("warning", stage,
				fmt.Sprintf("attempt %d failed, retrying: %v", attempt, lastErr))

			select {
			case <-time.After(policy.Delay(attempt)):
			case <-ctx.Done():
				return utils.E(utils.CodeCancelled, "Engine.Run", "cancelled during backoff", ctx.Err())
			}
			continue
		}

		rec.Outcome = models.OutcomeFailed
		r.sess.Stages = append(r.sess.Stages, rec)
		r.slog.Log("error", stage, fmt.Sprintf("attempt %d failed: %v", attempt, lastErr))
		return lastErr
	}
	return lastErr
}

// checkSafety runs the gate under the retry policy and fails closed: if the
// moderation service stays unreachable, the text counts as blocked, never as
// unchecked.
func (r *runState) checkSafety(ctx context.Context, stage models.Stage, text string) (moderation.Verdict, error) {
	var verdict moderation.Verdict
	err := r.runStage(ctx, stage, utils.IsTransient, func(ctx context.Context) error {
		var cerr error
		verdict, cerr = r.engine.gate.Check(ctx, text)
		return cerr
	})
	if err != nil && utils.IsTransient(err) {
		err = utils.E(utils.CodeContentRejected, "Engine.Run",
			"safety could not be verified, failing closed", err)
	}
	return verdict, err
}

// recordRender appends the rendering stage records: one per retried or failed
// turn, plus the overall stage outcome.
func (r *runState) recordRender(started time.Time, turns []TurnResult, renderErr error) {
	for _, tr := range turns {
		if tr.Attempts <= 1 && tr.Err == nil {
			continue
		}
		outcome := models.OutcomeRetried
		errMsg := ""
		if tr.Err != nil {
			outcome = models.OutcomeFailed
			errMsg = tr.Err.Error()
		}
		now := time.Now().UTC()
		r.sess.Stages = append(r.sess.Stages, models.StageRecord{
			Stage:     models.Stage(fmt.Sprintf("%s/turn[%d]", models.StageRendering, tr.Index)),
			Attempt:   tr.Attempts,
			Outcome:   outcome,
			StartedAt: started,
			EndedAt:   &now,
			Error:     errMsg,
		})
	}

	rec := models.StageRecord{Stage: models.StageRendering, Attempt: 1, StartedAt: started}
	now := time.Now().UTC()
	rec.EndedAt = &now
	if renderErr != nil {
		rec.Outcome = models.OutcomeFailed
		rec.Error = renderErr.Error()
	} else {
		rec.Outcome = models.OutcomeSuccess
	}
	r.sess.Stages = append(r.sess.Stages, rec)
}

// fail terminates the run, keeping the failure kind visible to the caller.
// No partial audio ever leaves a failed session.
func (r *runState) fail(ctx context.Context, err error) *SessionResult {
	code := utils.CodeOf(err)

	if code == utils.CodeCancelled {
		r.sess.Status = models.StatusCancelled
	} else {
		r.sess.Status = models.StatusFailed
	}
	r.sess.FailureCode = string(code)
	r.sess.FailedStage = r.sess.Stage
	now := time.Now().UTC()
	r.sess.EndedAt = &now

	r.slog.Log("error", r.sess.Stage, fmt.Sprintf("session %s: %v", r.sess.Status, err))
	r.finish(ctx)

	return &SessionResult{
		Session:     r.sess,
		FailureCode: code,
		FailedStage: r.sess.FailedStage,
		Err:         err,
	}
}

// finish flushes the session log unconditionally; termination is the one
// checkpoint that must not be skipped even when earlier flushes failed.
func (r *runState) finish(ctx context.Context) {
	// a cancelled context must not block the final flush
	flushCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	_ = r.slog.Flush(flushCtx)
	if r.engine.observer != nil {
		r.engine.observer.OnUpdate(flushCtx, r.sess)
	}
}
