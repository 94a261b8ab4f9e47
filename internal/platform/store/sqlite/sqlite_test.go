package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/sqlite"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/storetest"
)

func TestSQLiteDriver(t *testing.T) {
	tempDir := t.TempDir()

	storetest.RunDriverTests(t, "sqlite", &store.DriverConfig{
		Driver:  "sqlite",
		DataDir: tempDir,
	})

	if _, err := os.Stat(filepath.Join(tempDir, "pizzabot.db")); err != nil {
		t.Errorf("pizzabot.db not created: %v", err)
	}
}

func TestSQLiteDriverCustomFile(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	driver, err := store.New(&store.DriverConfig{
		Driver:  "sqlite",
		DataDir: tempDir,
		Options: map[string]any{"file": "state.db"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver.Close()

	if err := store.SaveObject(ctx, driver, store.KeyOptOuts, map[string]int{"testroom": 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "state.db")); err != nil {
		t.Errorf("state.db not created: %v", err)
	}
}
