// Package storetest provides the shared test suite every document driver runs.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
)

type item struct {
	ID   string `json:"id"`
	Seen bool   `json:"seen"`
}

// RunDriverTests runs the standard test suite against a driver.
func RunDriverTests(t *testing.T, driverName string, cfg *store.DriverConfig) {
	ctx := context.Background()

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatalf("failed to create %s driver: %v", driverName, err)
	}
	defer driver.Close()

	if err := driver.Init(ctx); err != nil {
		t.Fatalf("failed to init %s driver: %v", driverName, err)
	}

	if driver.Name() != driverName {
		t.Errorf("expected driver name %q, got %q", driverName, driver.Name())
	}

	t.Run("MissingKey", func(t *testing.T) {
		if _, err := driver.Load(ctx, "never-written"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		items, err := store.ReadArray[item](ctx, driver, "never-written")
		if err != nil || len(items) != 0 {
			t.Errorf("expected empty array, got %v, %v", items, err)
		}
	})

	t.Run("ArrayRoundTrip", func(t *testing.T) {
		testArrayRoundTrip(t, ctx, driver)
	})

	t.Run("ObjectRoundTrip", func(t *testing.T) {
		testObjectRoundTrip(t, ctx, driver)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		if err := driver.Save(ctx, "../escape", []byte("{}")); !errors.Is(err, store.ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("ConcurrentSaves", func(t *testing.T) {
		testConcurrentSaves(t, ctx, driver)
	})
}

func testArrayRoundTrip(t *testing.T, ctx context.Context, d store.Documents) {
	want := []item{{ID: "a"}, {ID: "b", Seen: true}}
	if err := store.SaveArray(ctx, d, store.KeyActivePlans, want); err != nil {
		t.Fatalf("SaveArray failed: %v", err)
	}

	got, err := store.ReadArray[item](ctx, d, store.KeyActivePlans)
	if err != nil {
		t.Fatalf("ReadArray failed: %v", err)
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ReadArray = %+v, want %+v", got, want)
	}

	// Overwrite with fewer items: load-all/save-all, no merging.
	if err := store.SaveArray(ctx, d, store.KeyActivePlans, want[:1]); err != nil {
		t.Fatalf("SaveArray failed: %v", err)
	}
	got, err = store.ReadArray[item](ctx, d, store.KeyActivePlans)
	if err != nil {
		t.Fatalf("ReadArray failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 item after overwrite, got %d", len(got))
	}
}

func testObjectRoundTrip(t *testing.T, ctx context.Context, d store.Documents) {
	want := map[string][]string{"testroom": {"U1", "U2"}}
	if err := store.SaveObject(ctx, d, store.KeyOptOuts, want); err != nil {
		t.Fatalf("SaveObject failed: %v", err)
	}

	got, found, err := store.ReadObject[map[string][]string](ctx, d, store.KeyOptOuts)
	if err != nil {
		t.Fatalf("ReadObject failed: %v", err)
	}
	if !found {
		t.Fatal("expected object to be found")
	}
	if len(got["testroom"]) != 2 || got["testroom"][1] != "U2" {
		t.Errorf("ReadObject = %v, want %v", got, want)
	}
}

func testConcurrentSaves(t *testing.T, ctx context.Context, d store.Documents) {
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items := []item{{ID: fmt.Sprintf("item-%d", i)}}
			if err := store.SaveArray(ctx, d, store.KeyArchivedPlans, items); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent save failed: %v", err)
	}

	got, err := store.ReadArray[item](ctx, d, store.KeyArchivedPlans)
	if err != nil {
		t.Fatalf("ReadArray failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected exactly one winning write, got %+v", got)
	}
}
