// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/citechat/internal/metrics"
	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/stream"
)

// =============================================================================
// SESSION OPTIONS
// =============================================================================

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.log = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithErrorText overrides the text shown for a failed reply.
func WithErrorText(text string) SessionOption {
	return func(s *Session) {
		s.errorText = text
	}
}

// WithConversation continues an existing history.
func WithConversation(conv *model.Conversation) SessionOption {
	return func(s *Session) {
		if conv != nil {
			s.conv = conv
		}
	}
}

// WithStreamOptions passes options to the stream decoder.
func WithStreamOptions(opts ...stream.Option) SessionOption {
	return func(s *Session) {
		s.streamOpts = append(s.streamOpts, opts...)
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session orchestrates sends over one conversation: it records the
// utterance, opens the stream, folds frames into the reply and guarantees the
// reply ends complete, errored or canceled. At most one send runs at a time;
// a send attempted while another is streaming is ignored.
//
// Session is safe for concurrent use.
type Session struct {
	transport  Transport
	conv       *model.Conversation
	rec        *Reconciler
	log        zerolog.Logger
	metrics    *metrics.Metrics
	errorText  string
	streamOpts []stream.Option

	streaming atomic.Bool
	wg        sync.WaitGroup

	mu      sync.Mutex // guards cancel and subs
	cancel  context.CancelFunc
	subs    map[int]chan struct{}
	nextSub int
}

// NewSession creates a session sending through transport.
func NewSession(transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		transport: transport,
		log:       zerolog.Nop(),
		subs:      make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.conv == nil {
		s.conv = model.NewConversation()
	}
	s.rec = NewReconciler(s.conv, s.errorText, s.log)
	s.streamOpts = append([]stream.Option{
		stream.WithLogger(s.log.With().Str("component", "stream").Logger()),
		stream.WithMetrics(s.metrics),
	}, s.streamOpts...)
	return s
}

// Conversation returns the underlying history.
func (s *Session) Conversation() *model.Conversation {
	return s.conv
}

// Snapshot returns a copy of the history in display order.
func (s *Session) Snapshot() []model.Message {
	return s.conv.Snapshot()
}

// IsStreaming reports whether a send is in progress.
func (s *Session) IsStreaming() bool {
	return s.streaming.Load()
}

// Send sends utterance and blocks until the reply ends. It returns false,
// without touching the history, when the trimmed utterance is empty or a
// send is already in progress.
func (s *Session) Send(ctx context.Context, utterance string) bool {
	job, ok := s.accept(ctx, utterance)
	if !ok {
		return false
	}
	defer s.release()

	s.run(job)
	return true
}

// SendAsync is Send without waiting for the reply. The return value reports
// whether the send was accepted.
func (s *Session) SendAsync(ctx context.Context, utterance string) bool {
	job, ok := s.accept(ctx, utterance)
	if !ok {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		s.run(job)
	}()
	return true
}

// Wait blocks until every accepted SendAsync has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Cancel aborts the send in progress, if any. The reply keeps the text
// received so far and ends canceled.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Subscribe returns a channel that receives a value whenever the history or
// streaming flag changes. Notifications coalesce: a slow reader skips
// intermediate states but the next Snapshot is always current. Call the
// returned function to unsubscribe.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// sendJob is one accepted send.
type sendJob struct {
	ctx    context.Context
	cancel context.CancelFunc
	id     string
	text   string
	start  time.Time
}

// accept checks the preconditions and, when they hold, takes the streaming
// flag, records the utterance and arms Cancel. Rejections are silent apart
// from a debug log line.
func (s *Session) accept(parent context.Context, utterance string) (sendJob, bool) {
	text := normalize(utterance)
	if text == "" {
		s.reject("empty utterance")
		return sendJob{}, false
	}
	if !s.streaming.CompareAndSwap(false, true) {
		s.reject("send already in progress")
		return sendJob{}, false
	}

	id, err := s.rec.Begin(text)
	if err != nil {
		s.streaming.Store(false)
		s.reject(err.Error())
		return sendJob{}, false
	}

	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.metrics.StreamStarted()
	s.notify()
	return sendJob{ctx: ctx, cancel: cancel, id: id, text: text, start: time.Now()}, true
}

func (s *Session) reject(reason string) {
	s.log.Debug().Str("reason", reason).Msg("send ignored")
	s.metrics.RecordSend(metrics.OutcomeRejected, 0)
}

func (s *Session) release() {
	s.streaming.Store(false)
	s.notify()
}

// run drives one accepted send to a terminal reply.
func (s *Session) run(job sendJob) {
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		job.cancel()
	}()

	id := job.id
	outcome := s.stream(job.ctx, id, job.text)

	// Nothing may be left pending or streaming.
	if msg, ok := s.conv.Get(id); ok && !msg.State.Terminal() {
		_ = s.rec.Fail(id)
		outcome = metrics.OutcomeErrored
	}

	elapsed := time.Since(job.start)
	s.metrics.RecordSend(outcome, elapsed)
	s.log.Info().
		Str("message_id", id).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Msg("send finished")
	s.notify()
}

func (s *Session) stream(ctx context.Context, id, text string) string {
	body, err := s.transport.Open(ctx, text)
	if err != nil {
		return s.abort(ctx, id, err)
	}
	defer body.Close()

	// Unblock a pending read when the send is canceled.
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	reader := stream.NewReader(body, s.streamOpts...)
	err = reader.Process(ctx, func(f stream.Frame) error {
		if err := s.rec.Apply(id, f); err != nil {
			return nil
		}
		s.notify()
		return nil
	})
	if err != nil {
		return s.abort(ctx, id, err)
	}
	return metrics.OutcomeComplete
}

// abort ends the reply after a failure. A user cancellation keeps the
// partial text; anything else replaces it with the error text.
func (s *Session) abort(ctx context.Context, id string, cause error) string {
	if errors.Is(ctx.Err(), context.Canceled) {
		if err := s.rec.Cancel(id); err != nil {
			s.log.Debug().Err(err).Str("message_id", id).Msg("cancel after close")
		}
		s.log.Info().Str("message_id", id).Msg("send canceled")
		return metrics.OutcomeCanceled
	}

	if err := s.rec.Fail(id); err != nil {
		s.log.Debug().Err(err).Str("message_id", id).Msg("fail after close")
	}
	s.log.Error().Err(cause).Str("message_id", id).Msg("send failed")
	return metrics.OutcomeErrored
}

// normalize trims the utterance and puts it in NFC form.
func normalize(utterance string) string {
	return norm.NFC.String(strings.TrimSpace(utterance))
}
