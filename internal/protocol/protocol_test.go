package protocol

import (
	"encoding/json"
	"testing"
)

// TestEncode tests the Encode function with various inputs
func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       Request
		want      string
		wantError bool
	}{
		{
			name: "command with params",
			req:  Request{ID: 1, Method: "Page.navigate", Params: map[string]string{"url": "about:blank"}},
			want: `{"id":1,"method":"Page.navigate","params":{"url":"about:blank"}}`,
		},
		{
			name: "nil params become empty object",
			req:  Request{ID: 2, Method: "Page.enable"},
			want: `{"id":2,"method":"Page.enable","params":{}}`,
		},
		{
			name: "session id is included",
			req:  Request{ID: 3, Method: "Runtime.enable", SessionID: "S1"},
			want: `{"id":3,"method":"Runtime.enable","sessionId":"S1","params":{}}`,
		},
		{
			name: "raw params pass through",
			req:  Request{ID: 4, Method: "Runtime.evaluate", Params: json.RawMessage(`{"expression":"1+1"}`)},
			want: `{"id":4,"method":"Runtime.evaluate","params":{"expression":"1+1"}}`,
		},
		{
			name:      "missing method",
			req:       Request{ID: 5},
			wantError: true,
		},
		{
			name:      "unencodable params",
			req:       Request{ID: 6, Method: "X.y", Params: make(chan int)},
			wantError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Encode(tt.req)
			if (err != nil) != tt.wantError {
				t.Fatalf("Encode() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				return
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestDecode tests classification of inbound frames
func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		data      string
		wantKind  Kind
		wantID    int64
		wantError bool
	}{
		{name: "success response", data: `{"id":7,"result":{"ok":true}}`, wantKind: KindResponse, wantID: 7},
		{name: "error response", data: `{"id":8,"error":{"message":"bad"}}`, wantKind: KindResponse, wantID: 8},
		{name: "event", data: `{"method":"Page.loadEventFired","params":{"timestamp":1}}`, wantKind: KindEvent},
		{name: "session event", data: `{"method":"Runtime.consoleAPICalled","params":{},"sessionId":"S"}`, wantKind: KindEvent},
		{name: "neither id nor method", data: `{"foo":"bar"}`, wantKind: KindUnknown},
		{name: "zero id is absent", data: `{"id":0,"result":{}}`, wantKind: KindUnknown},
		{name: "empty", data: ``, wantError: true},
		{name: "malformed json", data: `{"id":`, wantError: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, err := Decode([]byte(tt.data))
			if (err != nil) != tt.wantError {
				t.Fatalf("Decode() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				return
			}
			if got := msg.Kind(); got != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", got, tt.wantKind)
			}
			if msg.ID != tt.wantID {
				t.Errorf("ID = %d, want %d", msg.ID, tt.wantID)
			}
		})
	}
}

// TestResultOrEmpty tests that a missing result defaults to an empty object
func TestResultOrEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data string
		want string
	}{
		{`{"id":1}`, `{}`},
		{`{"id":1,"result":null}`, `{}`},
		{`{"id":1,"result":{"frameId":"F"}}`, `{"frameId":"F"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.data, func(t *testing.T) {
			t.Parallel()

			msg, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if got := string(msg.ResultOrEmpty()); got != tt.want {
				t.Errorf("ResultOrEmpty() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestErrorPayloadResponse tests conversion of peer error payloads
func TestErrorPayloadResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     string
		wantMsg  string
		wantData string
		wantCode int
	}{
		{name: "message only", data: `{"message":"bad"}`, wantMsg: "bad"},
		{name: "string data", data: `{"code":-32000,"message":"bad","data":"detail"}`, wantMsg: "bad", wantData: "detail", wantCode: -32000},
		{name: "object data kept raw", data: `{"message":"bad","data":{"x":1}}`, wantMsg: "bad", wantData: `{"x":1}`},
		{name: "null data", data: `{"message":"bad","data":null}`, wantMsg: "bad"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var p ErrorPayload
			if err := json.Unmarshal([]byte(tt.data), &p); err != nil {
				t.Fatalf("Unmarshal() failed: %v", err)
			}
			resp := p.Response()
			if resp.Message != tt.wantMsg || resp.Data != tt.wantData || resp.Code != tt.wantCode {
				t.Errorf("Response() = %+v, want message=%q data=%q code=%d", resp, tt.wantMsg, tt.wantData, tt.wantCode)
			}
		})
	}
}

// TestMessageEvent tests conversion of event frames
func TestMessageEvent(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"method":"Target.attachedToTarget","params":{"a":1},"sessionId":"S"}`))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	ev := msg.Event()
	if ev.Method != "Target.attachedToTarget" || ev.SessionID != "S" || string(ev.Params) != `{"a":1}` {
		t.Errorf("Event() = %+v", ev)
	}
}

// BenchmarkEncode benchmarks the encoding operation
func BenchmarkEncode(b *testing.B) {
	req := Request{ID: 42, Method: "Runtime.evaluate", Params: map[string]any{"expression": "document.title"}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Encode(req)
	}
}

// BenchmarkDecode benchmarks the decoding operation
func BenchmarkDecode(b *testing.B) {
	data := []byte(`{"id":42,"result":{"result":{"type":"string","value":"benchmark"}}}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(data)
	}
}

