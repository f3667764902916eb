package model

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStatus_Priority(t *testing.T) {
	order := []Status{StatusPending, StatusRejected, StatusInterview, StatusAccepted}
	for i := 1; i < len(order); i++ {
		if order[i-1].Priority() >= order[i].Priority() {
			t.Errorf("%s should rank below %s", order[i-1], order[i])
		}
	}
	if got := Status("En attente").Priority(); got != StatusPending.Priority() {
		t.Errorf("unknown status priority = %d, want %d", got, StatusPending.Priority())
	}
}

func TestApplication_GetSet(t *testing.T) {
	var a Application
	for i, col := range Columns {
		a.Set(col, fmt.Sprint(i))
	}
	for i, col := range Columns {
		if got := a.Get(col); got != fmt.Sprint(i) {
			t.Errorf("Get(%s) = %q, want %q", col, got, fmt.Sprint(i))
		}
	}
	a.Set("Notes", "ignored")
	if got := a.Get("Notes"); got != "" {
		t.Errorf("Get(unknown) = %q", got)
	}
}

func TestTable_Clone(t *testing.T) {
	orig := Table{{Company: "Acme"}}
	clone := orig.Clone()
	clone[0].Company = "Globex"
	if orig[0].Company != "Acme" {
		t.Error("Clone shares backing storage")
	}
}

func TestMessage_Received(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	m := Message{ReceivedAt: time.Date(2024, 1, 1, 11, 0, 0, 0, paris)}
	if got := m.Received(); got != "2024-01-01T10:00:00Z" {
		t.Errorf("Received() = %q", got)
	}
	if got := (Message{}).Received(); got != "" {
		t.Errorf("zero Received() = %q", got)
	}
}

func TestError_Kinds(t *testing.T) {
	err := fmt.Errorf("sync: %w", NetworkError("fetch messages", errors.New("timeout")))

	if !errors.Is(err, ErrNetwork) {
		t.Errorf("errors.Is(%v, ErrNetwork) = false", err)
	}
	if errors.Is(err, ErrStorage) {
		t.Errorf("errors.Is(%v, ErrStorage) = true", err)
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("KindOf(%v) = %v", err, KindOf(err))
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("plain error has a kind")
	}
	if got := err.Error(); got != "sync: network error: fetch messages: timeout" {
		t.Errorf("Error() = %q", got)
	}
}
