package leads

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/olx-poli-relay/internal/poli"
	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

// recordingSender captures every template send and can fail or panic.
type recordingSender struct {
	mu        sync.Mutex
	calls     []poli.TemplateMessage
	err       error
	panicWith any
	hook      func(ctx context.Context)
}

func (s *recordingSender) SendTemplateMessage(ctx context.Context, msg poli.TemplateMessage) error {
	s.mu.Lock()
	s.calls = append(s.calls, msg)
	s.mu.Unlock()
	if s.hook != nil {
		s.hook(ctx)
	}
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.err
}

func (s *recordingSender) Calls() []poli.TemplateMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]poli.TemplateMessage(nil), s.calls...)
}

type testRig struct {
	sender  *recordingSender
	handler *Handler
	logs    *bytes.Buffer
}

func newTestRig(t *testing.T, sender *recordingSender) *testRig {
	t.Helper()
	if sender == nil {
		sender = &recordingSender{}
	}
	logs := &bytes.Buffer{}
	logger := logging.NewWithWriter(logs, "debug", "json")
	svc := NewService(sender, ServiceConfig{
		OperatorName: "nosso time",
		Timeout:      2 * time.Second,
		SenderName:   "test",
	}, logger, nil)
	return &testRig{
		sender:  sender,
		handler: NewHandler(svc, "test", logger, nil),
		logs:    logs,
	}
}

func (rig *testRig) post(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}
