package v1

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeValidate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	payload := json.RawMessage(`{}`)

	cases := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{name: "valid identify", env: Envelope{V: Version, Type: TypeIdentify, ID: "e1", TS: now, Payload: payload}},
		{name: "valid message_send", env: Envelope{V: Version, Type: TypeMessageSend, ID: "e2", TS: now, Payload: payload}},
		{name: "valid message_receive", env: Envelope{V: Version, Type: TypeMessageReceive, ID: "e3", TS: now, Payload: payload}},
		{name: "missing v", env: Envelope{Type: TypeIdentify}, wantErr: true},
		{name: "wrong version", env: Envelope{V: "v0", Type: TypeIdentify}, wantErr: true},
		{name: "missing type", env: Envelope{V: Version}, wantErr: true},
		{name: "unknown type", env: Envelope{V: Version, Type: "presence_subscribe"}, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.env.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	t.Parallel()

	in := Envelope{
		V:    Version,
		Type: TypeMessageReceive,
		ID:   "abc123",
		TS:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	body, _ := json.Marshal(MessageReceivePayload{
		From:        "u-alice",
		ClientMsgID: "c1",
		Body:        json.RawMessage(`{"text":"hi"}`),
		ServerTS:    in.TS,
	})
	in.Payload = body

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Envelope
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	var p MessageReceivePayload
	if err := json.Unmarshal(out.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.From != "u-alice" || string(p.Body) != `{"text":"hi"}` {
		t.Fatalf("unexpected payload: %+v", p)
	}
}
