package common

import "testing"

func TestMeetingIDDeterministic(t *testing.T) {
	a := MeetingID("Sprint Sync 2024-05-01", "2024-05-01")
	b := MeetingID("  sprint sync 2024-05-01 ", "2024-05-01")
	if a != b {
		t.Fatalf("expected normalised titles to share an id, got %s and %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected md5 hex digest, got %q", a)
	}
	if a == MeetingID("Sprint Sync 2024-05-01", "") {
		t.Fatalf("expected date to be part of the id")
	}
}

func TestMeetingIDKnownValue(t *testing.T) {
	// md5("standup_2024-01-01")
	want := "abbd937f2aa3d6fa75a5efc1a06df129"
	if got := MeetingID("Standup", "2024-01-01"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := MeetingID("STANDUP", "2024-01-01"); got != want {
		t.Fatalf("expected case-insensitive id, got %s", got)
	}
}

func TestFragmentArena(t *testing.T) {
	var f Fragment
	doc := f.AddNode(&DocumentNode{Title: "Doc"})
	p := f.AddNode(&PersonNode{Name: "Alice Johnson"})
	f.Relate(doc, RelAuthoredBy, p, RelationshipProperties{})

	if doc != 0 || p != 1 {
		t.Fatalf("unexpected arena indices %d %d", doc, p)
	}
	if len(f.Relationships) != 1 || f.Relationships[0].From != 0 || f.Relationships[0].To != 1 {
		t.Fatalf("unexpected relationships %+v", f.Relationships)
	}
}

func TestDocumentLabels(t *testing.T) {
	d := &DocumentNode{Title: "Weekly"}
	if HasLabel(d, KindMeeting) {
		t.Fatalf("plain document must not carry the Meeting label")
	}
	d.Meeting = true
	if !HasLabel(d, KindMeeting) || !HasLabel(d, KindDocument) {
		t.Fatalf("meeting document must carry both labels, got %v", d.Labels())
	}
}
