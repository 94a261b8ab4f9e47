package mirror_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/mirror"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/storetest"
)

func TestMirrorDriver(t *testing.T) {
	tempDir := t.TempDir()

	storetest.RunDriverTests(t, "mirror", &store.DriverConfig{
		Driver:  "mirror",
		DataDir: tempDir,
	})

	if _, err := os.Stat(filepath.Join(tempDir, "pizzabot.db")); err != nil {
		t.Errorf("pizzabot.db not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "mirror", "active-plans.json")); err != nil {
		t.Errorf("mirror export not written: %v", err)
	}
}

func TestMirrorDriverSkipsOptOutsByDefault(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	driver, err := store.New(&store.DriverConfig{Driver: "mirror", DataDir: tempDir})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver.Close()

	if err := store.SaveObject(ctx, driver, store.KeyOptOuts, map[string][]string{"testroom": {"U1"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "mirror", "opt-outs.json")); !os.IsNotExist(err) {
		t.Errorf("opt-outs must not be exported by default, stat err = %v", err)
	}

	// Still readable from SQLite.
	got, found, err := store.ReadObject[map[string][]string](ctx, driver, store.KeyOptOuts)
	if err != nil || !found || len(got["testroom"]) != 1 {
		t.Errorf("ReadObject = %v, %v, %v", got, found, err)
	}
}

func TestMirrorDriverIncludeOptOuts(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	driver, err := store.New(&store.DriverConfig{
		Driver:  "mirror",
		DataDir: tempDir,
		Options: map[string]any{"include_opt_outs": true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver.Close()

	if err := store.SaveObject(ctx, driver, store.KeyOptOuts, map[string][]string{"testroom": {"U1"}}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(tempDir, "mirror", "opt-outs.json"))
	if err != nil {
		t.Fatalf("opt-outs export missing: %v", err)
	}
	if !strings.Contains(string(data), `"schema_version": 1`) {
		t.Errorf("export should carry the document envelope: %s", data)
	}
}
