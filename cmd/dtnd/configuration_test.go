package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dtn7/dtnme-go/pkg/block"
	"github.com/dtn7/dtnme-go/pkg/routing"
)

func TestNewBlockRegistryRegistersRequiredHandlers(t *testing.T) {
	reg := newBlockRegistry()

	for _, typeCode := range []uint64{
		block.PrimaryTypeCode,
		block.PayloadTypeCode,
		block.PreviousHopTypeCode,
		block.CTEBTypeCode,
		block.BundleAgeTypeCode,
	} {
		if _, ok := reg.Find(typeCode); !ok {
			t.Errorf("expected a processor registered for type code %d", typeCode)
		}
	}

	if _, ok := reg.Find(250); !ok {
		t.Error("expected the unknown-block fallback for an unregistered type code")
	}
}

func TestRouteEntryFromConfNextHop(t *testing.T) {
	entry, err := routeEntryFromConf(routeConf{Dest: "dtn://node1/*", NextHop: "link1", Priority: 3})
	if err != nil {
		t.Fatalf("routeEntryFromConf failed: %v", err)
	}
	if entry.NextHop != "link1" || entry.HasRouteTo {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Priority != 3 {
		t.Fatalf("priority not carried over: %+v", entry)
	}
}

func TestRouteEntryFromConfRouteTo(t *testing.T) {
	entry, err := routeEntryFromConf(routeConf{Dest: "dtn://node1/*", RouteTo: "dtn://node2/*"})
	if err != nil {
		t.Fatalf("routeEntryFromConf failed: %v", err)
	}
	if !entry.HasRouteTo || entry.RouteTo.String() != "dtn://node2/*" {
		t.Fatalf("route-to indirection not set: %+v", entry)
	}
}

func TestRouteEntryFromConfInvalidDest(t *testing.T) {
	if _, err := routeEntryFromConf(routeConf{Dest: "not-a-pattern"}); err == nil {
		t.Fatal("expected an error for an invalid dest pattern")
	}
}

func TestLoadRoutesReplacesTable(t *testing.T) {
	table := routing.NewRouteTable()
	table.AddEntry(routeMustEntry(t, routeConf{Dest: "dtn://stale/*", NextHop: "oldlink"}))

	loadRoutes(table, []routeConf{
		{Dest: "dtn://node1/*", NextHop: "link1"},
		{Dest: "not-a-pattern", NextHop: "link2"},
	})

	entries := table.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected the invalid entry to be skipped and the stale one replaced, got %+v", entries)
	}
	if entries[0].NextHop != "link1" {
		t.Fatalf("unexpected surviving entry: %+v", entries[0])
	}
}

func routeMustEntry(t *testing.T, rc routeConf) routing.RouteEntry {
	t.Helper()
	entry, err := routeEntryFromConf(rc)
	if err != nil {
		t.Fatalf("routeEntryFromConf failed: %v", err)
	}
	return entry
}

func TestParseCoreMinimal(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "config.toml")

	contents := `
[core]
store = "` + filepath.Join(dir, "store") + `"
node-id = "dtn://node1/"
`
	if err := os.WriteFile(confPath, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	d, err := parseCore(confPath)
	if err != nil {
		t.Fatalf("parseCore failed: %v", err)
	}
	defer d.Close()

	if d.routing == nil || d.store == nil {
		t.Fatalf("parseCore did not build its core components: %+v", d)
	}
}
