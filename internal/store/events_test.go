package store

import (
	"testing"
)

func seedHabit(t *testing.T, db *DB, userID, name string, typ HabitType) *Habit {
	t.Helper()
	h := &Habit{UserID: userID, Name: name, Type: typ}
	if err := db.CreateHabit(h); err != nil {
		t.Fatalf("CreateHabit %s: %v", name, err)
	}
	return h
}

func TestLogEventValidation(t *testing.T) {
	db := testDB(t)
	simple := seedHabit(t, db, "u1", "Meditation", HabitSimple)
	quantity := seedHabit(t, db, "u1", "Water", HabitQuantity)

	tests := []struct {
		name string
		ev   HabitEvent
		want error
	}{
		{"bad date", HabitEvent{HabitID: simple.ID, UserID: "u1", Date: "31-08-2026", Status: StatusCompleted}, ErrBadDate},
		{"bad status", HabitEvent{HabitID: simple.ID, UserID: "u1", Date: "2026-08-31", Status: "done"}, ErrBadStatus},
		{"missing habit", HabitEvent{HabitID: "nope", UserID: "u1", Date: "2026-08-31", Status: StatusCompleted}, ErrNotFound},
		{"wrong owner", HabitEvent{HabitID: simple.ID, UserID: "u2", Date: "2026-08-31", Status: StatusCompleted}, ErrNotOwner},
		{"value required", HabitEvent{HabitID: quantity.ID, UserID: "u1", Date: "2026-08-31", Status: StatusCompleted}, ErrValueRequired},
	}
	for _, tt := range tests {
		ev := tt.ev
		if err := db.LogEvent(&ev); err != tt.want {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}

	// Skipping a quantity habit needs no value.
	ev := HabitEvent{HabitID: quantity.ID, UserID: "u1", Date: "2026-08-31", Status: StatusSkipped}
	if err := db.LogEvent(&ev); err != nil {
		t.Errorf("skip without value: %v", err)
	}
}

func TestLogEventUpsert(t *testing.T) {
	db := testDB(t)
	h := seedHabit(t, db, "u1", "Meditation", HabitSimple)

	first := HabitEvent{HabitID: h.ID, UserID: "u1", Date: "2026-08-31", Status: StatusSkipped}
	if err := db.LogEvent(&first); err != nil {
		t.Fatalf("first log: %v", err)
	}

	// Logging the same date again updates in place, no new row.
	second := HabitEvent{HabitID: h.ID, UserID: "u1", Date: "2026-08-31", Status: StatusCompleted, Note: "evening session"}
	if err := db.LogEvent(&second); err != nil {
		t.Fatalf("second log: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second log created a new row: %s != %s", second.ID, first.ID)
	}

	events, err := db.EventsForHabit(h.ID, "")
	if err != nil {
		t.Fatalf("EventsForHabit: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Status != StatusCompleted || events[0].Note != "evening session" {
		t.Errorf("event not updated: %+v", events[0])
	}
}

func TestEventsForHabitSince(t *testing.T) {
	db := testDB(t)
	h := seedHabit(t, db, "u1", "Meditation", HabitSimple)

	for _, date := range []string{"2026-08-01", "2026-08-15", "2026-08-31"} {
		ev := HabitEvent{HabitID: h.ID, UserID: "u1", Date: date, Status: StatusCompleted}
		if err := db.LogEvent(&ev); err != nil {
			t.Fatalf("LogEvent %s: %v", date, err)
		}
	}

	events, err := db.EventsForHabit(h.ID, "2026-08-10")
	if err != nil {
		t.Fatalf("EventsForHabit: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Date != "2026-08-15" {
		t.Errorf("events not ordered by date ascending: first = %s", events[0].Date)
	}
}

func TestEventsOnDate(t *testing.T) {
	db := testDB(t)
	a := seedHabit(t, db, "u1", "Meditation", HabitSimple)
	b := seedHabit(t, db, "u1", "Running", HabitSimple)

	for _, ev := range []HabitEvent{
		{HabitID: a.ID, UserID: "u1", Date: "2026-08-31", Status: StatusCompleted},
		{HabitID: b.ID, UserID: "u1", Date: "2026-08-31", Status: StatusFailed},
		{HabitID: a.ID, UserID: "u1", Date: "2026-08-30", Status: StatusCompleted},
	} {
		e := ev
		if err := db.LogEvent(&e); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	byHabit, err := db.EventsOnDate("u1", "2026-08-31")
	if err != nil {
		t.Fatalf("EventsOnDate: %v", err)
	}
	if len(byHabit) != 2 {
		t.Fatalf("got %d events, want 2", len(byHabit))
	}
	if byHabit[a.ID].Status != StatusCompleted {
		t.Errorf("habit a status = %s, want completed", byHabit[a.ID].Status)
	}
	if byHabit[b.ID].Status != StatusFailed {
		t.Errorf("habit b status = %s, want failed", byHabit[b.ID].Status)
	}
}

func TestCountCompleted(t *testing.T) {
	db := testDB(t)
	h := seedHabit(t, db, "u1", "Meditation", HabitSimple)

	for i, status := range []EventStatus{StatusCompleted, StatusCompleted, StatusSkipped} {
		ev := HabitEvent{HabitID: h.ID, UserID: "u1", Date: "2026-08-0" + string(rune('1'+i)), Status: status}
		if err := db.LogEvent(&ev); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	count, err := db.CountCompleted("u1")
	if err != nil {
		t.Fatalf("CountCompleted: %v", err)
	}
	if count != 2 {
		t.Errorf("CountCompleted = %d, want 2", count)
	}
}
