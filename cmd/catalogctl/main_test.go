package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/engine/source"
)

const dump = `{"data":[
 {"id":"v1","brand":"Toyota","model":"Corolla","year":2019,"price":1000,"mileage":50000,"location":"Austin"},
 {"id":"v2","brand":"Honda","model":"Civic","year":2020,"price":2000},
 {"id":"v3","brand":"Toyota","model":"Camry","year":2021,"price":3000},
 {"id":"v4","brand":"Ford","model":"Focus","year":2018,"price":4000},
 {"id":"v5","brand":"Toyota","model":"RAV4","year":2022,"price":5000},
 {"id":"bad","brand":"Kia"}
]}`

func writeDump(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listings.json")
	if err := os.WriteFile(path, []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestQueryText(t *testing.T) {
	path := writeDump(t)
	out, errOut, err := execute(t, "query", "--file", path, "--brand", "Toyota", "--min-price", "1500", "--sort", "price-desc")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(errOut, "dropped 1 malformed") {
		t.Fatalf("expected drop report on stderr, got %q", errOut)
	}
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[1], "v5") || !strings.HasPrefix(lines[2], "v3") {
		t.Fatalf("expected v5 then v3, got:\n%s", out)
	}
	if !strings.Contains(out, "page 1/1, 12 per page, 2 listing(s)") {
		t.Fatalf("missing pagination footer:\n%s", out)
	}
	if !strings.Contains(out, "filters: ") {
		t.Fatalf("missing chips:\n%s", out)
	}
}

func TestQueryJSONPaging(t *testing.T) {
	path := writeDump(t)
	out, _, err := execute(t, "query", "-f", path, "--format", "json", "--per-page", "12", "--page", "9")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var v catalog.View
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Pagination.CurrentPage != 1 || v.Pagination.TotalItems != 5 {
		t.Fatalf("expected clamped page 1 of 5 items, got %+v", v.Pagination)
	}
}

func TestQueryEmpty(t *testing.T) {
	out, _, err := execute(t, "query", "-f", writeDump(t), "--brand", "Tesla")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no listings match") {
		t.Fatalf("expected empty message, got:\n%s", out)
	}
}

func TestQueryErrors(t *testing.T) {
	path := writeDump(t)
	for name, args := range map[string][]string{
		"missing file":   {"query"},
		"unknown screen": {"query", "-f", path, "--screen", "reels"},
		"bad format":     {"query", "-f", path, "--format", "xml"},
		"absent dump":    {"query", "-f", filepath.Join(t.TempDir(), "nope.json")},
		"seed no file":   {"seed"},
	} {
		if _, _, err := execute(t, args...); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestPublish(t *testing.T) {
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	defer srv.Shutdown()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	sub, err := nc.SubscribeSync(source.SnapshotSubject)
	if err != nil {
		t.Fatal(err)
	}
	nc.Flush()

	out, _, err := execute(t, "publish", "-f", writeDump(t), "--nats", srv.ClientURL(), "--source", "test")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(out, "with 5 listing(s)") {
		t.Fatalf("unexpected output %q", out)
	}

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("no snapshot received: %v", err)
	}
	var snap source.Snapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Source != "test" || len(snap.Vehicles) != 5 {
		t.Fatalf("unexpected snapshot %s with %d vehicles", snap.Source, len(snap.Vehicles))
	}
}
