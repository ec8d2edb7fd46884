package db

import "testing"

func TestInsertRun_ListRuns(t *testing.T) {
	db := openTestDB(t)

	runs := []Run{
		{ID: "01HZZZ0000000000000000000A", DatasetPath: "data.json", OutputPath: "index.html", Structures: 3, AllAvailable: 1, Partial: 1, Bad: 1, CreatedAt: 100},
		{ID: "01HZZZ0000000000000000000B", DatasetPath: "data.json", OutputPath: "index.html", Structures: 4, AllAvailable: 4, CreatedAt: 200},
		{ID: "01HZZZ0000000000000000000C", DatasetPath: "data.json", OutputPath: "out.html", Structures: 4, Bad: 4, CreatedAt: 200},
	}
	for i := range runs {
		if err := InsertRun(db, &runs[i]); err != nil {
			t.Fatalf("InsertRun() error = %v", err)
		}
	}

	got, total, err := ListRuns(db, 2, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(got) != 2 || got[0].ID != runs[2].ID || got[1].ID != runs[1].ID {
		t.Fatalf("got %+v, want newest first", got)
	}
	if got[0].Bad != 4 || got[0].OutputPath != "out.html" {
		t.Errorf("got[0] = %+v", got[0])
	}

	rest, _, err := ListRuns(db, 2, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(rest) != 1 || rest[0].ID != runs[0].ID {
		t.Errorf("second page = %+v", rest)
	}

	if err := InsertRun(db, &runs[0]); err == nil {
		t.Error("expected error inserting duplicate run id")
	}
}
