package json_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/json"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/storetest"
)

func TestJSONDriver(t *testing.T) {
	tempDir := t.TempDir()

	storetest.RunDriverTests(t, "json", &store.DriverConfig{
		Driver:  "json",
		DataDir: tempDir,
	})

	if _, err := os.Stat(filepath.Join(tempDir, "active-plans.json")); err != nil {
		t.Errorf("active-plans.json not created: %v", err)
	}
}

func TestJSONDriverRequiresDataDir(t *testing.T) {
	if _, err := store.New(&store.DriverConfig{Driver: "json"}); err == nil {
		t.Error("expected error without data_dir")
	}
}

func TestJSONDriverSurvivesRestart(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()
	cfg := &store.DriverConfig{Driver: "json", DataDir: tempDir}

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveArray(ctx, driver, store.KeyActiveInvitations, []string{"U1", "U2"}); err != nil {
		t.Fatal(err)
	}
	driver.Close()

	// No temp file left behind by the atomic write.
	if _, err := os.Stat(filepath.Join(tempDir, "active-invitations.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	driver2, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver2.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver2.Close()

	got, err := store.ReadArray[string](ctx, driver2, store.KeyActiveInvitations)
	if err != nil {
		t.Fatalf("read after restart: %v", err)
	}
	if len(got) != 2 || got[0] != "U1" {
		t.Errorf("data corruption: got %v", got)
	}
}

func TestJSONDriverReadsLegacyBareArray(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	legacy := []byte(`[{"id":"old-plan"}]`)
	if err := os.WriteFile(filepath.Join(tempDir, "archived-plans.json"), legacy, 0600); err != nil {
		t.Fatal(err)
	}

	driver, err := store.New(&store.DriverConfig{Driver: "json", DataDir: tempDir})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver.Close()

	type plan struct {
		ID string `json:"id"`
	}
	got, err := store.ReadArray[plan](ctx, driver, store.KeyArchivedPlans)
	if err != nil {
		t.Fatalf("ReadArray failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "old-plan" {
		t.Errorf("got %+v", got)
	}
}
