/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		reset     string
		want      State
		wantOK    bool
	}{{
		name:      "both present",
		remaining: "42",
		reset:     "1700000000",
		want:      State{Remaining: 42, ResetAt: time.Unix(1700000000, 0)},
		wantOK:    true,
	}, {
		name:      "zero remaining",
		remaining: "0",
		reset:     "1700000000",
		want:      State{Remaining: 0, ResetAt: time.Unix(1700000000, 0)},
		wantOK:    true,
	}, {
		name:  "remaining missing",
		reset: "1700000000",
	}, {
		name:      "reset missing",
		remaining: "10",
	}, {
		name:      "remaining not an integer",
		remaining: "lots",
		reset:     "1700000000",
	}, {
		name:      "reset not an integer",
		remaining: "10",
		reset:     "soon",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.remaining != "" {
				h.Set(HeaderRemaining, tt.remaining)
			}
			if tt.reset != "" {
				h.Set(HeaderReset, tt.reset)
			}
			got, ok := ParseState(h)
			if ok != tt.wantOK {
				t.Fatalf("ParseState() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseState() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStateWait(t *testing.T) {
	now := time.Unix(1000, 0)
	tests := []struct {
		name  string
		reset int64
		want  time.Duration
	}{{
		name:  "future reset",
		reset: 1010,
		want:  15 * time.Second,
	}, {
		name:  "reset now",
		reset: 1000,
		want:  5 * time.Second,
	}, {
		name:  "reset slightly past",
		reset: 997,
		want:  2 * time.Second,
	}, {
		name:  "reset long past",
		reset: 900,
		want:  0,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Remaining: 0, ResetAt: time.Unix(tt.reset, 0)}
			if got := s.Wait(now); got != tt.want {
				t.Errorf("Wait() = %v, want %v", got, tt.want)
			}
		})
	}
}

// scriptedServer replies with the scripted responses in order, repeating the
// last one, and records every request body it receives.
type scriptedServer struct {
	mu     sync.Mutex
	script []scriptedResponse
	bodies []string
}

type scriptedResponse struct {
	status    int
	remaining string
	reset     string
	body      string
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body, _ := io.ReadAll(r.Body)
	s.bodies = append(s.bodies, string(body))
	idx := min(len(s.bodies)-1, len(s.script)-1)
	resp := s.script[idx]
	s.mu.Unlock()

	if resp.remaining != "" {
		w.Header().Set(HeaderRemaining, resp.remaining)
	}
	if resp.reset != "" {
		w.Header().Set(HeaderReset, resp.reset)
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (s *scriptedServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

type recordingSleeper struct {
	mu     sync.Mutex
	waits  []time.Duration
	result error
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return r.result
}

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

func TestClientRequest(t *testing.T) {
	reset := strconv.FormatInt(1010, 10)

	tests := []struct {
		name       string
		method     string
		body       []byte
		script     []scriptedResponse
		wantStatus int
		wantBody   string
		wantWaits  []time.Duration
		wantSent   []string
	}{{
		name:   "no rate limit headers passes through",
		method: http.MethodGet,
		script: []scriptedResponse{{
			status: http.StatusOK,
			body:   "hello",
		}},
		wantStatus: http.StatusOK,
		wantBody:   "hello",
		wantSent:   []string{""},
	}, {
		name:   "unparsable headers pass through",
		method: http.MethodGet,
		script: []scriptedResponse{{
			status:    http.StatusOK,
			remaining: "none",
			reset:     reset,
			body:      "hello",
		}},
		wantStatus: http.StatusOK,
		wantBody:   "hello",
		wantSent:   []string{""},
	}, {
		name:   "healthy quota returns immediately",
		method: http.MethodGet,
		script: []scriptedResponse{{
			status:    http.StatusOK,
			remaining: "4999",
			reset:     reset,
			body:      "ok",
		}},
		wantStatus: http.StatusOK,
		wantBody:   "ok",
		wantSent:   []string{""},
	}, {
		name:   "rejection waits and replays the identical request",
		method: http.MethodPost,
		body:   []byte(`{"body":"a comment"}`),
		script: []scriptedResponse{{
			status:    http.StatusForbidden,
			remaining: "0",
			reset:     reset,
			body:      `{"message":"API rate limit exceeded for installation"}`,
		}, {
			status:    http.StatusCreated,
			remaining: "4999",
			reset:     reset,
			body:      "created",
		}},
		wantStatus: http.StatusCreated,
		wantBody:   "created",
		wantWaits:  []time.Duration{15 * time.Second},
		wantSent:   []string{`{"body":"a comment"}`, `{"body":"a comment"}`},
	}, {
		name:   "429 rejection is replayed",
		method: http.MethodGet,
		script: []scriptedResponse{{
			status:    http.StatusTooManyRequests,
			remaining: "0",
			reset:     reset,
			body:      "Rate Limit exceeded",
		}, {
			status:    http.StatusTooManyRequests,
			remaining: "0",
			reset:     reset,
			body:      "rate limit exceeded",
		}, {
			status:    http.StatusOK,
			remaining: "100",
			reset:     reset,
			body:      "finally",
		}},
		wantStatus: http.StatusOK,
		wantBody:   "finally",
		wantWaits:  []time.Duration{15 * time.Second, 15 * time.Second},
		wantSent:   []string{"", "", ""},
	}, {
		name:   "forbidden without rate limit text is returned",
		method: http.MethodGet,
		script: []scriptedResponse{{
			status:    http.StatusForbidden,
			remaining: "100",
			reset:     reset,
			body:      "Resource not accessible by integration",
		}},
		wantStatus: http.StatusForbidden,
		wantBody:   "Resource not accessible by integration",
		wantSent:   []string{""},
	}, {
		name:   "low water GET waits and replays",
		method: http.MethodGet,
		script: []scriptedResponse{{
			status:    http.StatusOK,
			remaining: "2",
			reset:     reset,
			body:      "stale",
		}, {
			status:    http.StatusOK,
			remaining: "5000",
			reset:     reset,
			body:      "fresh",
		}},
		wantStatus: http.StatusOK,
		wantBody:   "fresh",
		wantWaits:  []time.Duration{15 * time.Second},
		wantSent:   []string{"", ""},
	}, {
		name:   "low water POST waits without replaying",
		method: http.MethodPost,
		body:   []byte("payload"),
		script: []scriptedResponse{{
			status:    http.StatusCreated,
			remaining: "1",
			reset:     reset,
			body:      "created once",
		}},
		wantStatus: http.StatusCreated,
		wantBody:   "created once",
		wantWaits:  []time.Duration{15 * time.Second},
		wantSent:   []string{"payload"},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &scriptedServer{script: tt.script}
			ts := httptest.NewServer(srv)
			defer ts.Close()

			sleeper := &recordingSleeper{}
			client := NewClient(WithClock(fixedClock(1000)), WithSleeper(sleeper.sleep))

			resp, err := client.Request(context.Background(), tt.method, ts.URL+"/repos/o/r/issues/1", nil, tt.body)
			if err != nil {
				t.Fatalf("Request() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			got, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("reading body: %v", err)
			}
			if string(got) != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if diff := cmp.Diff(tt.wantWaits, sleeper.waits); diff != "" {
				t.Errorf("waits mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSent, srv.received()); diff != "" {
				t.Errorf("sent bodies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClientRequestHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer abc")
	headers.Set("Accept", "application/vnd.github+json")

	resp, err := NewClient().Request(context.Background(), http.MethodGet, ts.URL, headers, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer abc")
	}
	if gotAccept != "application/vnd.github+json" {
		t.Errorf("Accept = %q, want %q", gotAccept, "application/vnd.github+json")
	}
}

func TestClientRequestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := NewClient().Request(context.Background(), http.MethodGet, url, nil, nil)
	if err == nil {
		t.Fatal("Request() error = nil, want transport error")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Request() error = %T, want *TransportError", err)
	}
	if te.Method != http.MethodGet || te.URL != url {
		t.Errorf("TransportError = %s %s, want GET %s", te.Method, te.URL, url)
	}
}

func TestClientRequestWaitCancelled(t *testing.T) {
	srv := &scriptedServer{script: []scriptedResponse{{
		status:    http.StatusForbidden,
		remaining: "0",
		reset:     "1010",
		body:      "API rate limit exceeded",
	}}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	sleeper := &recordingSleeper{result: context.Canceled}
	client := NewClient(WithClock(fixedClock(1000)), WithSleeper(sleeper.sleep))

	_, err := client.Request(context.Background(), http.MethodGet, ts.URL, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Request() error = %v, want context.Canceled", err)
	}
	if got := len(srv.received()); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() = %v, want context.Canceled", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("sleepContext(0) = %v, want nil", err)
	}
}
