package database

import (
	"testing"
)

func TestOpenAppliesMigrations(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"households", "users", "household_members", "sessions", "products", "meals",
		"meal_items", "meal_item_overrides", "meal_plan", "shopping_list_items", "shopping_list_state"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}

	var households int
	if err := db.QueryRow(`SELECT COUNT(*) FROM households`).Scan(&households); err != nil {
		t.Fatalf("count households: %v", err)
	}
	if households != 1 {
		t.Errorf("households = %d, want 1 (seeded)", households)
	}
}

func TestUpdatedAtTriggers(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var triggers int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger'`).Scan(&triggers); err != nil {
		t.Fatalf("count triggers: %v", err)
	}
	if triggers != 5 {
		t.Errorf("triggers = %d, want 5", triggers)
	}

	if _, err := db.Exec(`UPDATE households SET name = 'Dom', updated_at = '2000-01-01 00:00:00' WHERE id = 1`); err != nil {
		t.Fatalf("update household: %v", err)
	}
	var stale int
	if err := db.QueryRow(`SELECT COUNT(*) FROM households WHERE id = 1 AND updated_at LIKE '2000-%'`).Scan(&stale); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}
	if stale != 0 {
		t.Error("trigger did not refresh updated_at")
	}
}
