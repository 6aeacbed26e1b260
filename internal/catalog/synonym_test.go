package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sadopc/dbnav/internal/adapter"
)

func TestParseObjectName(t *testing.T) {
	cases := []struct {
		raw  string
		want ObjectName
	}{
		{"Customers", ObjectName{Object: "Customers"}},
		{"dbo.Customers", ObjectName{Schema: "dbo", Object: "Customers"}},
		{"CRM.dbo.Customers", ObjectName{Database: "CRM", Schema: "dbo", Object: "Customers"}},
		{"LINKED.CRM.dbo.Customers", ObjectName{Server: "LINKED", Database: "CRM", Schema: "dbo", Object: "Customers"}},
		{"[CRM].[dbo].[Customers]", ObjectName{Database: "CRM", Schema: "dbo", Object: "Customers"}},
		{`"my schema"."my.object"`, ObjectName{Schema: "my schema", Object: "my.object"}},
		{"`weird.db`.`tbl`", ObjectName{Database: "", Schema: "weird.db", Object: "tbl"}},
		{"[Dotted.DB].dbo.T", ObjectName{Database: "Dotted.DB", Schema: "dbo", Object: "T"}},
	}
	for _, tc := range cases {
		got, err := ParseObjectName(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestParseObjectNameRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "a.b.c.d.e", "[unterminated", "dbo."} {
		if _, err := ParseObjectName(raw); !errors.Is(err, ErrUnparseableName) {
			t.Fatalf("parse %q: err = %v, want ErrUnparseableName", raw, err)
		}
	}
}

// synonymFixture wires two databases where CRM owns the real Customers
// table and appdb carries synonyms of various shapes.
func synonymFixture(syns ...adapter.SynonymInfo) (*fakeSession, *Server) {
	f := newFakeSession()
	f.databases = []string{"appdb", "CRM"}
	f.schemas["appdb"] = []string{"dbo"}
	f.schemas["CRM"] = []string{"dbo"}
	f.tables["CRM"] = []adapter.TableInfo{{Schema: "dbo", Name: "Customers"}}
	f.columns[objKey("CRM", "dbo", "Customers")] = []adapter.ColumnInfo{
		{Name: "id", DataType: "int", Position: 1},
	}
	f.syns["appdb"] = syns
	return f, NewServerWithSession("test", f)
}

func resolveNamed(t *testing.T, srv *Server, name string) (Entity, error) {
	t.Helper()
	ctx := context.Background()
	if err := srv.Load(ctx); err != nil {
		t.Fatalf("server load: %v", err)
	}
	db := srv.FindDatabase("appdb")
	syns, err := db.GetSynonyms(ctx, "dbo")
	if err != nil {
		t.Fatalf("GetSynonyms: %v", err)
	}
	for _, s := range syns {
		if s.Name() == name {
			return s.Resolve(ctx)
		}
	}
	t.Fatalf("synonym %q not found", name)
	return nil, nil
}

func TestSynonymResolvesCrossDatabaseTarget(t *testing.T) {
	_, srv := synonymFixture(adapter.SynonymInfo{
		Schema: "dbo", Name: "Cust", BaseObject: "[CRM].[dbo].[Customers]",
	})
	target, err := resolveNamed(t, srv, "Cust")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if target.Kind() != KindTable || target.Name() != "Customers" {
		t.Fatalf("resolved to %s %q", target.Kind(), target.Name())
	}
	if got := FullPath(target, "."); got != "test.CRM.dbo.Customers" {
		t.Fatalf("target path = %q", got)
	}
}

func TestSynonymResolutionIsCached(t *testing.T) {
	f, srv := synonymFixture(adapter.SynonymInfo{
		Schema: "dbo", Name: "Cust", BaseObject: "CRM.dbo.Customers",
	})
	ctx := context.Background()
	if err := srv.Load(ctx); err != nil {
		t.Fatalf("server load: %v", err)
	}
	db := srv.FindDatabase("appdb")
	syns, err := db.GetSynonyms(ctx, "dbo")
	if err != nil {
		t.Fatalf("GetSynonyms: %v", err)
	}
	s := syns[0]
	first, err := s.Resolve(ctx)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	before := f.calls["tables:CRM:dbo"]
	second, err := s.Resolve(ctx)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if first != second {
		t.Fatalf("cached resolve returned a different entity")
	}
	if f.calls["tables:CRM:dbo"] != before {
		t.Fatalf("cached resolve issued queries: %v", f.calls)
	}
}

func TestSynonymChainResolvesThroughIntermediate(t *testing.T) {
	f, srv := synonymFixture(
		adapter.SynonymInfo{Schema: "dbo", Name: "Hop1", BaseObject: "dbo.Hop2"},
		adapter.SynonymInfo{Schema: "dbo", Name: "Hop2", BaseObject: "CRM.dbo.Customers"},
	)
	_ = f
	target, err := resolveNamed(t, srv, "Hop1")
	if err != nil {
		t.Fatalf("resolve chain: %v", err)
	}
	if target.Name() != "Customers" {
		t.Fatalf("chain resolved to %q", target.Name())
	}
}

func TestSynonymCycleFailsTerminally(t *testing.T) {
	_, srv := synonymFixture(
		adapter.SynonymInfo{Schema: "dbo", Name: "A", BaseObject: "dbo.B"},
		adapter.SynonymInfo{Schema: "dbo", Name: "B", BaseObject: "dbo.A"},
	)
	_, err := resolveNamed(t, srv, "A")
	if !errors.Is(err, ErrCircularReference) {
		t.Fatalf("err = %v, want ErrCircularReference", err)
	}
}

func TestSynonymSelfReferenceFails(t *testing.T) {
	_, srv := synonymFixture(
		adapter.SynonymInfo{Schema: "dbo", Name: "Selfie", BaseObject: "dbo.Selfie"},
	)
	_, err := resolveNamed(t, srv, "Selfie")
	if !errors.Is(err, ErrCircularReference) {
		t.Fatalf("err = %v, want ErrCircularReference", err)
	}
}

func TestSynonymChainDepthLimit(t *testing.T) {
	// Eleven hops where ten is the ceiling; every link is distinct so the
	// cycle detector stays quiet.
	var syns []adapter.SynonymInfo
	for i := 0; i < 11; i++ {
		syns = append(syns, adapter.SynonymInfo{
			Schema: "dbo", Name: fmt.Sprintf("S%d", i),
			BaseObject: fmt.Sprintf("dbo.S%d", i+1),
		})
	}
	syns = append(syns, adapter.SynonymInfo{
		Schema: "dbo", Name: "S11", BaseObject: "CRM.dbo.Customers",
	})
	_, srv := synonymFixture(syns...)
	_, err := resolveNamed(t, srv, "S0")
	if !errors.Is(err, ErrChainTooDeep) {
		t.Fatalf("err = %v, want ErrChainTooDeep", err)
	}
}

func TestSynonymLinkedServerIsTerminal(t *testing.T) {
	_, srv := synonymFixture(adapter.SynonymInfo{
		Schema: "dbo", Name: "Remote", BaseObject: "[LNK].[CRM].[dbo].[Customers]",
	})
	_, err := resolveNamed(t, srv, "Remote")
	if !errors.Is(err, ErrLinkedServer) {
		t.Fatalf("err = %v, want ErrLinkedServer", err)
	}
}

func TestSynonymMissingDatabase(t *testing.T) {
	_, srv := synonymFixture(adapter.SynonymInfo{
		Schema: "dbo", Name: "Ghost", BaseObject: "NoSuchDB.dbo.Customers",
	})
	_, err := resolveNamed(t, srv, "Ghost")
	if !errors.Is(err, ErrDatabaseNotFound) {
		t.Fatalf("err = %v, want ErrDatabaseNotFound", err)
	}
}

func TestSynonymMissingObject(t *testing.T) {
	_, srv := synonymFixture(adapter.SynonymInfo{
		Schema: "dbo", Name: "Gone", BaseObject: "CRM.dbo.Nothing",
	})
	_, err := resolveNamed(t, srv, "Gone")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("err = %v, want ErrObjectNotFound", err)
	}
}

func TestSynonymFailureIsCachedUntilReset(t *testing.T) {
	f, srv := synonymFixture(adapter.SynonymInfo{
		Schema: "dbo", Name: "Gone", BaseObject: "CRM.dbo.Nothing",
	})
	ctx := context.Background()
	if err := srv.Load(ctx); err != nil {
		t.Fatalf("server load: %v", err)
	}
	syns, err := srv.FindDatabase("appdb").GetSynonyms(ctx, "dbo")
	if err != nil {
		t.Fatalf("GetSynonyms: %v", err)
	}
	s := syns[0]
	if _, err := s.Resolve(ctx); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("first resolve err = %v", err)
	}
	before := f.calls["tables:CRM:dbo"]
	if _, err := s.Resolve(ctx); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("second resolve err = %v", err)
	}
	if f.calls["tables:CRM:dbo"] != before {
		t.Fatalf("failed resolution retried without reset: %v", f.calls)
	}

	// After the object appears and the synonym is reset, resolution works.
	f.tables["CRM"] = append(f.tables["CRM"], adapter.TableInfo{Schema: "dbo", Name: "Nothing"})
	if err := Reload(ctx, ServerOf(s)); err != nil {
		t.Fatalf("server reload: %v", err)
	}
	s.reset()
	crm := ServerOf(s).FindDatabase("CRM")
	crm.reset()
	target, err := s.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve after reset: %v", err)
	}
	if target.Name() != "Nothing" {
		t.Fatalf("resolved to %q", target.Name())
	}
}

func TestSynonymProxiesColumns(t *testing.T) {
	_, srv := synonymFixture(adapter.SynonymInfo{
		Schema: "dbo", Name: "Cust", BaseObject: "CRM.dbo.Customers",
	})
	ctx := context.Background()
	if err := srv.Load(ctx); err != nil {
		t.Fatalf("server load: %v", err)
	}
	syns, err := srv.FindDatabase("appdb").GetSynonyms(ctx, "dbo")
	if err != nil {
		t.Fatalf("GetSynonyms: %v", err)
	}
	cols, err := syns[0].GetColumns(ctx)
	if err != nil {
		t.Fatalf("GetColumns: %v", err)
	}
	if len(cols) != 1 || cols[0].Name() != "id" {
		t.Fatalf("proxied columns = %v", cols)
	}
	kind, err := syns[0].BaseObjectType(ctx)
	if err != nil {
		t.Fatalf("BaseObjectType: %v", err)
	}
	if kind != KindTable {
		t.Fatalf("BaseObjectType = %v", kind)
	}
}
