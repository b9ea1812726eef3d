package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageQuery(t *testing.T) {
	raw := []byte(`{"type":"client_query","query":"price of laptop pro?","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	q, ok := msg.(ClientQuery)
	if !ok {
		t.Fatalf("message type = %T, want ClientQuery", msg)
	}
	if q.Query != "price of laptop pro?" || q.TSMs != 123 {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestParseClientMessageRejectsBlankQuery(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_query","query":"   "}`))
	if err == nil {
		t.Fatalf("expected error for blank query")
	}
}

func TestParseClientMessageReset(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_reset"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if _, ok := msg.(ClientReset); !ok {
		t.Fatalf("message type = %T, want ClientReset", msg)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsGarbage(t *testing.T) {
	_, err := ParseClientMessage([]byte(`not json`))
	if err == nil {
		t.Fatalf("expected error for invalid envelope")
	}
	if errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("garbage should not be reported as unsupported type")
	}
}
