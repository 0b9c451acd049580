package parser

import (
	"context"
	"errors"
	"sync"
	"time"

	"recipe-parser/internal/core/auth"
)

type staticSessions struct {
	userID string
	err    error
}

func (s staticSessions) CurrentSession(context.Context) (auth.Session, error) {
	if s.err != nil {
		return auth.Session{}, s.err
	}
	return auth.Session{UserID: s.userID}, nil
}

type fakeConnectivity struct {
	err   error
	calls int
}

func (f *fakeConnectivity) Check(context.Context) error {
	f.calls++
	return f.err
}

type attemptRecord struct {
	userID  string
	success bool
}

type fakeLimiter struct {
	mu        sync.Mutex
	violation string
	records   []attemptRecord
}

func (f *fakeLimiter) CheckLimit(context.Context, string) string {
	return f.violation
}

func (f *fakeLimiter) RecordAttempt(_ context.Context, userID string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, attemptRecord{userID: userID, success: success})
}

type reply struct {
	text string
	err  error
}

// scriptedInvoker 依序回傳預先設定的回應，用完後重複最後一個
type scriptedInvoker struct {
	replies []reply
	calls   int
	kinds   []SourceKind
	sources []string
	block   bool
}

func (s *scriptedInvoker) Invoke(ctx context.Context, source string, kind SourceKind) (string, error) {
	s.calls++
	s.kinds = append(s.kinds, kind)
	s.sources = append(s.sources, source)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	r := s.replies[min(s.calls, len(s.replies))-1]
	return r.text, r.err
}

type fakeFetcher struct {
	text  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type recordingObserver struct {
	mu         sync.Mutex
	entered    []Stage
	retries    int
	delays     []time.Duration
	classified []Code
	onRetry    func()
}

func (o *recordingObserver) StageEntered(_ context.Context, stage Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entered = append(o.entered, stage)
}

func (o *recordingObserver) StageExited(context.Context, Stage, time.Duration, error) {}

func (o *recordingObserver) RetryTriggered(_ context.Context, _ int, delay time.Duration, _ *Error) {
	o.mu.Lock()
	o.retries++
	o.delays = append(o.delays, delay)
	hook := o.onRetry
	o.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (o *recordingObserver) Classified(_ context.Context, _ Stage, err *Error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.classified = append(o.classified, err.Code)
}

var errUpstream = errors.New("upstream api returned status 503")
