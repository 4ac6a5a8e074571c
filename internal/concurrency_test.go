// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal contains race detection tests that span packages.
//
// Run with: go test -race -v ./internal/...
//
// The access patterns mirror the TUI: one goroutine streams a reply while the
// view reads snapshots and config from others.
package internal

import (
	"context"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citechat/internal/chat"
	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/client"
	"github.com/jeranaias/citechat/internal/config"
	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/server"
)

// =============================================================================
// TEST CONFIGURATION
// =============================================================================

const (
	// Number of concurrent goroutines for race tests
	raceConcurrency = 50
	// Number of iterations per goroutine
	raceIterations = 50
	// Timeout for race tests
	raceTimeout = 30 * time.Second
)

// slowReplay serves the sample transcript with a pause between frames so
// readers overlap the stream.
func slowReplay(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	tr := server.DefaultTranscript()
	tr.Delay = delay
	ts := httptest.NewServer(server.New("", tr).Handler())
	t.Cleanup(ts.Close)
	return ts
}

// =============================================================================
// CONFIG CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_ConfigGlobalAccess reads the global config while other
// goroutines replace it.
func TestConcurrency_ConfigGlobalAccess(t *testing.T) {
	config.ResetGlobalForTesting()
	defer config.ResetGlobalForTesting()
	config.SetGlobal(config.Default())

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations && ctx.Err() == nil; j++ {
				cfg := config.Global()
				_ = cfg.Server.Endpoint
				_ = cfg.CitationPolicy()
				_ = cfg.UI.MaxFPS
			}
		}()
	}

	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < raceIterations/10 && ctx.Err() == nil; j++ {
				cfg := config.Default()
				if idx%2 == 0 {
					cfg.UI.Citations = citation.PolicyWhenComplete.String()
				}
				config.SetGlobal(cfg)
			}
		}(i)
	}

	wg.Wait()
	assert.NotNil(t, config.Global())
}

// =============================================================================
// SESSION CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_SnapshotsDuringStream reads snapshots and resolves them
// from many goroutines while a reply streams. Every snapshot must be
// internally consistent: text only grows and states only move forward.
func TestConcurrency_SnapshotsDuringStream(t *testing.T) {
	ts := slowReplay(t, 5*time.Millisecond)
	sess := chat.NewSession(client.New(&client.ClientConfig{BaseURL: ts.URL}))

	require.True(t, sess.SendAsync(context.Background(), "When are reports due?"))

	var (
		wg         sync.WaitGroup
		violations atomic.Int64
	)
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastLen int
			lastState := model.StatePending
			for sess.IsStreaming() {
				msgs := sess.Snapshot()
				if len(msgs) != 2 {
					violations.Add(1)
					return
				}
				reply := msgs[1]
				if len(reply.Text) < lastLen || reply.State < lastState {
					violations.Add(1)
				}
				lastLen, lastState = len(reply.Text), reply.State
				_ = citation.Resolve(reply.Text, reply.Citations)
			}
		}()
	}

	sess.Wait()
	wg.Wait()

	assert.Zero(t, violations.Load())
	reply, _ := sess.Conversation().Last()
	assert.Equal(t, model.StateComplete, reply.State)
}

// TestConcurrency_OnlyOneSendAccepted fires sends from many goroutines at
// once. Exactly one may win; the history gains one exchange.
func TestConcurrency_OnlyOneSendAccepted(t *testing.T) {
	ts := slowReplay(t, 2*time.Millisecond)
	sess := chat.NewSession(client.New(&client.ClientConfig{BaseURL: ts.URL}))

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		start    = make(chan struct{})
	)
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if sess.SendAsync(context.Background(), "same question") {
				accepted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	sess.Wait()

	assert.EqualValues(t, 1, accepted.Load())
	assert.Equal(t, 2, sess.Conversation().Len())
}

// TestConcurrency_SubscribersChurn subscribes and unsubscribes while a
// reply streams. Notifications must never block the stream or panic on a
// closed channel.
func TestConcurrency_SubscribersChurn(t *testing.T) {
	ts := slowReplay(t, 2*time.Millisecond)
	sess := chat.NewSession(client.New(&client.ClientConfig{BaseURL: ts.URL}))

	require.True(t, sess.SendAsync(context.Background(), "q"))

	var wg sync.WaitGroup
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				updates, stop := sess.Subscribe()
				select {
				case <-updates:
				case <-time.After(time.Millisecond):
				}
				stop()
				stop()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		sess.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(raceTimeout):
		t.Fatal("stream blocked by subscribers")
	}
	wg.Wait()
}

// TestConcurrency_CancelRacesStream cancels at random points of a stream.
// The reply must always end terminal and never errored.
func TestConcurrency_CancelRacesStream(t *testing.T) {
	ts := slowReplay(t, time.Millisecond)

	for i := 0; i < 20; i++ {
		sess := chat.NewSession(client.New(&client.ClientConfig{BaseURL: ts.URL}))
		require.True(t, sess.SendAsync(context.Background(), "q"))

		time.Sleep(time.Duration(i) * time.Millisecond)
		sess.Cancel()
		sess.Wait()

		reply, ok := sess.Conversation().Last()
		require.True(t, ok)
		assert.True(t, reply.State.Terminal(), "iteration %d", i)
		assert.NotEqual(t, model.StateErrored, reply.State, "iteration %d", i)
	}
}
