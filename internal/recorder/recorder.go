// Package recorder implements the audio-capture state machine for one
// assessment item. A Recorder owns a CaptureSource (the microphone boundary),
// buffers its chunks into a single blob, and on stop drives the blob through
// transcription and the normalize → compare → score pipeline.
//
// The state machine is explicit and independent of any presentation layer:
//
//	Idle → Recording → Stopped → Uploading → Done | Failed
//
// Only one Recorder may be recording or uploading at a time system-wide;
// starting a second one is rejected with ErrCaptureBusy.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"literacy-screening-platform/backend/internal/coreengine/screeningengine"
	"literacy-screening-platform/backend/internal/transcribers"
)

// State is the recorder lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
	StateUploading
	StateDone
	StateFailed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateStopped:
		return "Stopped"
	case StateUploading:
		return "Uploading"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

var (
	// ErrMediaAccess means the capture device could not be acquired. This is
	// fatal to the current item and must be surfaced to the user; there is no
	// silent fallback.
	ErrMediaAccess = errors.New("media access denied or device unavailable")

	// ErrCaptureBusy means another recorder is already recording or uploading.
	ErrCaptureBusy = errors.New("another capture is already in progress")

	// ErrInvalidState means the requested transition is not legal from the
	// recorder's current state.
	ErrInvalidState = errors.New("invalid recorder state for operation")

	// ErrAbandoned means the recorder was abandoned mid-flight and its result
	// has been discarded.
	ErrAbandoned = errors.New("recording abandoned")

	// ErrEmptyCapture means the capture produced no audio at all.
	ErrEmptyCapture = errors.New("capture produced no audio")
)

// CaptureSource is the microphone boundary. Implementations deliver finalized
// audio chunks (container bytes, not raw PCM) and own the underlying device
// or connection.
//
// Close must release the capture device and is called on every exit path from
// Recording; it must be safe to call more than once. After Close, Read
// returns io.EOF once buffered chunks are drained.
type CaptureSource interface {
	Start(ctx context.Context) error
	Read() ([]byte, error)
	Close() error
}

// ArchiveFunc optionally stores the finalized blob (e.g. in object storage)
// before upload. Archive failures are logged, never fatal.
type ArchiveFunc func(ctx context.Context, audio []byte)

// captureGuard enforces the system-wide single-flight discipline.
var captureGuard = make(chan struct{}, 1)

// Recorder captures audio for exactly one assessment item and is not
// reusable: once Done or Failed it stays terminal.
type Recorder struct {
	source      CaptureSource
	transcriber transcribers.Adapter
	engine      *screeningengine.Engine

	targetText string
	filename   string
	archive    ArchiveFunc

	mu        sync.Mutex
	state     State
	abandoned bool
	buf       bytes.Buffer
	readDone  chan struct{}
	readErr   error
	holdsLock bool // whether this recorder currently holds captureGuard
}

// Config assembles a Recorder's collaborators.
type Config struct {
	Source      CaptureSource
	Transcriber transcribers.Adapter
	Engine      *screeningengine.Engine
	TargetText  string
	Filename    string
	Archive     ArchiveFunc // optional
}

// New creates an idle Recorder for one item.
func New(cfg Config) (*Recorder, error) {
	if cfg.Source == nil {
		return nil, errors.New("recorder: capture source is required")
	}
	if cfg.Transcriber == nil {
		return nil, errors.New("recorder: transcriber is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("recorder: screening engine is required")
	}
	filename := cfg.Filename
	if filename == "" {
		filename = "capture.webm"
	}
	return &Recorder{
		source:      cfg.Source,
		transcriber: cfg.Transcriber,
		engine:      cfg.Engine,
		targetText:  cfg.TargetText,
		filename:    filename,
		archive:     cfg.Archive,
		state:       StateIdle,
		readDone:    make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the capture device and begins buffering audio. It fails with
// ErrCaptureBusy if another recorder is active, and with ErrMediaAccess if
// the device cannot be acquired.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, r.state)
	}
	r.mu.Unlock()

	select {
	case captureGuard <- struct{}{}:
		r.mu.Lock()
		r.holdsLock = true
		r.mu.Unlock()
	default:
		return ErrCaptureBusy
	}

	if err := r.source.Start(ctx); err != nil {
		r.setState(StateFailed)
		// Sources that partially acquired the device still need releasing.
		_ = r.source.Close()
		r.releaseGuard()
		return fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	r.setState(StateRecording)

	go r.readLoop()
	log.Printf("Recorder: recording started for target %q", r.targetText)
	return nil
}

// readLoop drains the capture source into the blob buffer until the source
// reports io.EOF (normal stop) or an error.
func (r *Recorder) readLoop() {
	defer close(r.readDone)
	for {
		chunk, err := r.source.Read()
		if len(chunk) > 0 {
			r.mu.Lock()
			r.buf.Write(chunk)
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

// Stop finalizes the capture into a single blob and automatically proceeds to
// upload, transcription, comparison and scoring. On success the recorder
// reaches Done and the scored ItemResult is returned. On any failure it
// reaches Failed and no partial result is emitted.
//
// The capture device is released before any network activity begins,
// whichever way Stop exits.
func (r *Recorder) Stop(ctx context.Context) (*screeningengine.ItemResult, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		state := r.state
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot stop from %s", ErrInvalidState, state)
	}
	r.state = StateStopped
	r.mu.Unlock()

	// Closing the source ends the read loop (Read returns io.EOF after
	// drain) and releases the device.
	if err := r.source.Close(); err != nil {
		log.Printf("Recorder: error closing capture source: %v", err)
	}
	<-r.readDone

	r.mu.Lock()
	readErr := r.readErr
	audio := make([]byte, r.buf.Len())
	copy(audio, r.buf.Bytes())
	r.mu.Unlock()

	if readErr != nil {
		return nil, r.fail(fmt.Errorf("%w: capture stream failed: %v", ErrMediaAccess, readErr))
	}
	if len(audio) == 0 {
		return nil, r.fail(ErrEmptyCapture)
	}

	if !r.setStateIfLive(StateUploading) {
		return nil, ErrAbandoned
	}

	if r.archive != nil {
		r.archive(ctx, audio)
	}

	transcription, err := r.transcriber.Transcribe(ctx, audio, r.filename, r.targetText)
	if err != nil {
		return nil, r.fail(err)
	}
	if r.isAbandoned() {
		return nil, ErrAbandoned
	}

	result, err := r.engine.EvaluateItem(ctx, r.targetText, *transcription)
	if err != nil {
		return nil, r.fail(err)
	}
	if !r.setStateIfLive(StateDone) {
		return nil, ErrAbandoned
	}
	r.releaseGuard()

	log.Printf("Recorder: item done, accuracy %d%% (%d bytes audio)", result.AccuracyPercent, len(audio))
	return result, nil
}

// Abandon discards the capture: the device is released, the single-flight
// guard is freed, and any in-flight completion is discarded rather than
// mutating state retroactively. Abandon is safe to call in any state.
func (r *Recorder) Abandon() {
	r.mu.Lock()
	if r.abandoned || r.state == StateDone || r.state == StateFailed {
		r.mu.Unlock()
		return
	}
	r.abandoned = true
	r.state = StateFailed
	r.mu.Unlock()

	_ = r.source.Close()
	r.releaseGuard()
	log.Printf("Recorder: capture abandoned for target %q", r.targetText)
}

// fail transitions to Failed (unless abandoned, which already is terminal),
// releases the guard, and returns the wrapped cause.
func (r *Recorder) fail(cause error) error {
	r.mu.Lock()
	if r.abandoned {
		r.mu.Unlock()
		return ErrAbandoned
	}
	r.state = StateFailed
	r.mu.Unlock()

	_ = r.source.Close()
	r.releaseGuard()
	return cause
}

// setStateIfLive commits a state transition unless the recorder has been
// abandoned. It reports whether the transition happened.
func (r *Recorder) setStateIfLive(s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return false
	}
	r.state = s
	return true
}

func (r *Recorder) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Recorder) isAbandoned() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.abandoned
}

func (r *Recorder) releaseGuard() {
	r.mu.Lock()
	holds := r.holdsLock
	r.holdsLock = false
	r.mu.Unlock()
	if holds {
		<-captureGuard
	}
}
