package prefs

import (
	"testing"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestConnRecordRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := ConnRecord{
		Mode:         "wifi",
		SSID:         "shopfloor",
		Password:     "hunter2",
		MQTTBroker:   "192.168.1.100:1883",
		MQTTUsername: "relay",
		BackendPort:  7180,
		Rotation:     90,
	}
	if err := s.Write(NamespaceConn, in); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var out ConnRecord
	found, err := s.Read(NamespaceConn, &out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !found {
		t.Fatal("record not found after write")
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestReadMissingRecord(t *testing.T) {
	s := newTestStore(t)

	out := ConnRecord{Rotation: 270}
	found, err := s.Read(NamespaceConn, &out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if found {
		t.Error("found = true for missing record")
	}
	if out.Rotation != 270 {
		t.Error("missing record must leave out untouched")
	}
}

func TestWriteOverwritesWhole(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write(NamespaceNeoPixel, NeoPixelRecord{Pin: 33, SwapBlueGreen: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(NamespaceNeoPixel, NeoPixelRecord{Pin: 21}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var out NeoPixelRecord
	if _, err := s.Read(NamespaceNeoPixel, &out); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if out.Pin != 21 || out.SwapBlueGreen {
		t.Errorf("records are whole-record writes, got %+v", out)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write(NamespaceConn, ConnRecord{Mode: "wifi"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Clear(NamespaceConn); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	var out ConnRecord
	found, err := s.Read(NamespaceConn, &out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if found {
		t.Error("record still present after Clear")
	}

	// Clearing an absent record is a no-op
	if err := s.Clear(NamespaceConn); err != nil {
		t.Errorf("Clear of missing record: %v", err)
	}
}
