package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			key               TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			model             TEXT,
			location          TEXT,
			poll_interval_sec INTEGER NOT NULL DEFAULT 60,
			enabled           INTEGER NOT NULL DEFAULT 1,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// seedTestDevice creates a device for repository tests.
func seedTestDevice(key, name string) *Device {
	model := "BME280"
	location := "Upper canopy"
	return &Device{
		Key:             key,
		Name:            name,
		Model:           &model,
		Location:        &location,
		Enabled:         true,
		PollIntervalSec: 60,
	}
}

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates device successfully", func(t *testing.T) {
		d := seedTestDevice("ambient_bme280", "Ambient Air")

		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByKey(ctx, "ambient_bme280")
		if err != nil {
			t.Fatalf("GetByKey() error = %v", err)
		}
		if got.Name != "Ambient Air" {
			t.Errorf("Name = %q, want %q", got.Name, "Ambient Air")
		}
		if got.Model == nil || *got.Model != "BME280" {
			t.Errorf("Model = %v, want BME280", got.Model)
		}
		if !got.Enabled {
			t.Error("Enabled = false, want true")
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("timestamps were not set")
		}
	})

	t.Run("returns ErrDeviceExists for duplicate key", func(t *testing.T) {
		d := seedTestDevice("probe_ds18b20", "Warm Hide Probe")
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		dup := seedTestDevice("probe_ds18b20", "Duplicate Probe")
		if err := repo.Create(ctx, dup); !errors.Is(err, ErrDeviceExists) {
			t.Errorf("Create() duplicate error = %v, want %v", err, ErrDeviceExists)
		}
	})

	t.Run("stores nil model and location as NULL", func(t *testing.T) {
		d := &Device{
			Key:             "bare_device",
			Name:            "Bare Device",
			Enabled:         true,
			PollIntervalSec: 30,
		}
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByKey(ctx, "bare_device")
		if err != nil {
			t.Fatalf("GetByKey() error = %v", err)
		}
		if got.Model != nil {
			t.Errorf("Model = %v, want nil", got.Model)
		}
		if got.Location != nil {
			t.Errorf("Location = %v, want nil", got.Location)
		}
		if got.PollIntervalSec != 30 {
			t.Errorf("PollIntervalSec = %d, want 30", got.PollIntervalSec)
		}
	})
}

func TestSQLiteRepository_GetByKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("returns ErrDeviceNotFound for missing key", func(t *testing.T) {
		_, err := repo.GetByKey(ctx, "missing")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByKey() error = %v, want %v", err, ErrDeviceNotFound)
		}
	})
}

func TestSQLiteRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("empty table returns no devices", func(t *testing.T) {
		devices, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(devices) != 0 {
			t.Errorf("List() returned %d devices, want 0", len(devices))
		}
	})

	t.Run("returns devices ordered by name", func(t *testing.T) {
		for _, d := range []*Device{
			seedTestDevice("uv_ltr390", "UV + Light"),
			seedTestDevice("ambient_bme280", "Ambient Air"),
			seedTestDevice("ambient_bh1750", "Ambient Light"),
		} {
			if err := repo.Create(ctx, d); err != nil {
				t.Fatalf("Create(%s) error = %v", d.Key, err)
			}
		}

		devices, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(devices) != 3 {
			t.Fatalf("List() returned %d devices, want 3", len(devices))
		}

		wantOrder := []string{"Ambient Air", "Ambient Light", "UV + Light"}
		for i, want := range wantOrder {
			if devices[i].Name != want {
				t.Errorf("devices[%d].Name = %q, want %q", i, devices[i].Name, want)
			}
		}
	})
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("updates existing device", func(t *testing.T) {
		d := seedTestDevice("ambient_bme280", "Ambient Air")
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		d.Name = "Canopy Air"
		d.PollIntervalSec = 120
		d.Enabled = false
		if err := repo.Update(ctx, d); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := repo.GetByKey(ctx, "ambient_bme280")
		if err != nil {
			t.Fatalf("GetByKey() error = %v", err)
		}
		if got.Name != "Canopy Air" {
			t.Errorf("Name = %q, want %q", got.Name, "Canopy Air")
		}
		if got.PollIntervalSec != 120 {
			t.Errorf("PollIntervalSec = %d, want 120", got.PollIntervalSec)
		}
		if got.Enabled {
			t.Error("Enabled = true, want false")
		}
	})

	t.Run("returns ErrDeviceNotFound for missing device", func(t *testing.T) {
		d := seedTestDevice("ghost", "Ghost Device")
		if err := repo.Update(ctx, d); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Update() error = %v, want %v", err, ErrDeviceNotFound)
		}
	})
}

func TestSQLiteRepository_Count(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	if err := repo.Create(ctx, seedTestDevice("ambient_bme280", "Ambient Air")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}
