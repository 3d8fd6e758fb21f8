package store

import "testing"

func TestGetProfileMissing(t *testing.T) {
	db := testDB(t)
	p, err := db.GetProfile("nobody")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil profile, got %+v", p)
	}
}

func TestSaveProfileUpsert(t *testing.T) {
	db := testDB(t)

	p := &RootProfile{
		UserID:          "u",
		PersonaSummary:  "A nurse in Lisbon.",
		Traits:          map[string]any{"openness": "high"},
		Values:          []string{"family"},
		ConfidenceScore: 0.6,
	}
	if err := db.SaveProfile(p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	created := p.CreatedAt

	p.PersonaSummary += " Loves hiking."
	p.Values = append(p.Values, "health")
	if err := db.SaveProfile(p); err != nil {
		t.Fatalf("SaveProfile update: %v", err)
	}

	got, err := db.GetProfile("u")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.PersonaSummary != "A nurse in Lisbon. Loves hiking." {
		t.Errorf("summary = %q", got.PersonaSummary)
	}
	if len(got.Values) != 2 || got.Values[1] != "health" {
		t.Errorf("values = %v", got.Values)
	}
	if got.Traits["openness"] != "high" {
		t.Errorf("traits = %v", got.Traits)
	}
	if got.CreatedAt != created {
		t.Errorf("created_at changed on update: %d -> %d", created, got.CreatedAt)
	}
}

func TestSaveProfileNilCollections(t *testing.T) {
	db := testDB(t)
	if err := db.SaveProfile(&RootProfile{UserID: "u"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	got, _ := db.GetProfile("u")
	if got.Traits == nil || got.Values == nil {
		t.Error("traits and values should decode to empty collections")
	}
}
