package mcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClientMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msg, err := parseMessageFrom(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		switch msg.Method {
		case MethodPing:
			w.Header().Set("Content-Type", contentTypeEventStream)
			fmt.Fprint(w, "data: {\"jsonrpc\":\"2.0\",\"method\":\"notifications/progress\",\"params\":{\"progressToken\":\"t\",\"progress\":1}}\n\n")
			fmt.Fprint(w, "data: {broken\n\n")
			fmt.Fprintf(w, "data: {\"jsonrpc\":\"2.0\",\"id\":%q,\"result\":{}}\n\n", msg.ID)
		case "slow":
			<-r.Context().Done()
		default:
			w.Header().Set("Content-Type", contentTypeJSON)
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%q,"error":{"code":-32601,"message":"Method not found"}}`, msg.ID)
		}
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := NewClientMetrics(reg)
	client := NewClient(Info{Name: "metrics", Version: "1"}, srv.URL, WithClientMetrics(metrics))
	ctx := context.Background()

	if _, err := client.Ping(ctx, time.Second); err != nil {
		t.Fatalf("failed to ping: %v", err)
	}
	if _, err := client.SendRequest(ctx, "unknown", nil); err != nil {
		t.Fatalf("failed to send request: %v", err)
	}
	if _, err := client.Ping(ctx, time.Second); err != nil {
		t.Fatalf("failed to ping: %v", err)
	}

	sCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := client.SendRequest(sCtx, "slow", nil); err == nil {
		t.Fatal("expected slow request to time out")
	}

	tests := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{name: "ping results", collector: metrics.requests.WithLabelValues(MethodPing, outcomeResult), want: 2},
		{name: "protocol errors", collector: metrics.requests.WithLabelValues("unknown", outcomeError), want: 1},
		{name: "timeouts", collector: metrics.requests.WithLabelValues("slow", outcomeTimeout), want: 1},
		{name: "progress notifications", collector: metrics.notifications.WithLabelValues(MethodNotificationsProgress), want: 2},
		{name: "decode failures", collector: metrics.decodeFailures, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.collector); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(metrics.requestLatency); n != 2 {
		t.Errorf("expected latency series for 2 methods, got %d", n)
	}
}

func TestNilClientMetrics(t *testing.T) {
	var m *ClientMetrics

	m.observeRequest(MethodPing, outcomeResult, time.Millisecond)
	m.observeNotification(MethodNotificationsProgress)
	m.observeDecodeFailure()
}

func parseMessageFrom(r *http.Request) (JSONRPCMessage, error) {
	bs, err := io.ReadAll(r.Body)
	if err != nil {
		return JSONRPCMessage{}, err
	}
	return parseMessage(bs)
}
