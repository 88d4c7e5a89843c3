package message

import (
	"fmt"
	"testing"
	"time"
)

func textMsg(id, text string) Message {
	return Message{ID: id, Sender: "alice", Text: text, CreatedAt: time.Now()}
}

func TestLogMergeDedupesByID(t *testing.T) {
	l := NewLog()

	if !l.Merge(textMsg("1", "hello")) {
		t.Fatal("first merge should append")
	}
	if l.Merge(textMsg("1", "hello again")) {
		t.Fatal("second merge of same ID should be a no-op")
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", l.Len())
	}
}

func TestLogHistoryThenEchoMergesOnce(t *testing.T) {
	l := NewLog()

	var history []Message
	for i := 0; i < 5; i++ {
		history = append(history, textMsg(fmt.Sprintf("m%d", i), "hi"))
	}
	if n := l.MergeAll(history); n != 5 {
		t.Fatalf("expected 5 appended, got %d", n)
	}

	// The live channel echoes the same identifiers.
	if n := l.MergeAll(history); n != 0 {
		t.Fatalf("expected 0 appended on echo, got %d", n)
	}
	if l.Len() != 5 {
		t.Fatalf("expected 5 messages total, got %d", l.Len())
	}
}

func TestLogAllPreservesOrderAndCopies(t *testing.T) {
	l := NewLog()
	l.Merge(textMsg("a", "first"))
	l.Merge(textMsg("b", "second"))

	all := l.All()
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", all)
	}

	all[0] = textMsg("x", "mutated")
	if check := l.All(); check[0].ID != "a" {
		t.Errorf("log was mutated: expected ID 'a', got %q", check[0].ID)
	}
}
