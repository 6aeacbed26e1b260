package catalog

import (
	"context"
	"strings"
	"testing"
)

func usersTable(t *testing.T, f *fakeSession) *Table {
	t.Helper()
	db := loadedDatabase(t, f)
	tables, err := db.GetTables(context.Background(), "dbo")
	if err != nil {
		t.Fatalf("GetTables: %v", err)
	}
	for _, tb := range tables {
		if tb.Name() == "Users" {
			return tb
		}
	}
	t.Fatalf("Users not loaded")
	return nil
}

func TestSelectQueryDialects(t *testing.T) {
	f := newFakeSession()
	users := usersTable(t, f)

	q, err := SelectQuery(users, 0)
	if err != nil {
		t.Fatalf("SelectQuery: %v", err)
	}
	if q != "SELECT TOP 200 * FROM [appdb].[dbo].[Users];" {
		t.Fatalf("sqlserver select = %q", q)
	}

	f.dbType = "postgres"
	q, err = SelectQuery(users, 50)
	if err != nil {
		t.Fatalf("SelectQuery: %v", err)
	}
	if q != "SELECT * FROM [appdb].[dbo].[Users] LIMIT 50;" {
		t.Fatalf("postgres select = %q", q)
	}
}

func TestCountAndDropStatements(t *testing.T) {
	f := newFakeSession()
	users := usersTable(t, f)

	q, err := CountQuery(users)
	if err != nil {
		t.Fatalf("CountQuery: %v", err)
	}
	if q != "SELECT COUNT(*) FROM [appdb].[dbo].[Users];" {
		t.Fatalf("count = %q", q)
	}

	q, err = DropStatement(users)
	if err != nil {
		t.Fatalf("DropStatement: %v", err)
	}
	if q != "DROP TABLE [appdb].[dbo].[Users];" {
		t.Fatalf("drop = %q", q)
	}
}

func TestInsertTemplateListsEveryColumn(t *testing.T) {
	f := newFakeSession()
	users := usersTable(t, f)

	q, err := InsertTemplate(context.Background(), users)
	if err != nil {
		t.Fatalf("InsertTemplate: %v", err)
	}
	for _, want := range []string{"[id]", "[email]", "[org_id]", "INSERT INTO [appdb].[dbo].[Users]"} {
		if !strings.Contains(q, want) {
			t.Fatalf("insert missing %q:\n%s", want, q)
		}
	}
}

func TestUpdateTemplateKeysOnPrimaryKey(t *testing.T) {
	f := newFakeSession()
	users := usersTable(t, f)

	q, err := UpdateTemplate(context.Background(), users)
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if !strings.Contains(q, "WHERE [id] = 0") {
		t.Fatalf("update lacks pk condition:\n%s", q)
	}
	if strings.Contains(q, "SET [id]") {
		t.Fatalf("update sets the key column:\n%s", q)
	}
}

func TestDeleteTemplateKeysOnPrimaryKey(t *testing.T) {
	f := newFakeSession()
	users := usersTable(t, f)

	q, err := DeleteTemplate(context.Background(), users)
	if err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if !strings.Contains(q, "DELETE FROM [appdb].[dbo].[Users]") ||
		!strings.Contains(q, "[id] = <value>") {
		t.Fatalf("delete = %q", q)
	}
}

func TestBuildQueryDispatchesOnActionType(t *testing.T) {
	f := newFakeSession()
	users := usersTable(t, f)
	ctx := context.Background()
	if err := users.Load(ctx); err != nil {
		t.Fatalf("table load: %v", err)
	}

	sel := FindChild(users, "Select").(*Action)
	q, err := BuildQuery(ctx, sel)
	if err != nil {
		t.Fatalf("BuildQuery select: %v", err)
	}
	if !strings.HasPrefix(q, "SELECT TOP 200") {
		t.Fatalf("select = %q", q)
	}

	drop := FindChild(FindChild(users, "Actions"), "Drop").(*Action)
	q, err = BuildQuery(ctx, drop)
	if err != nil {
		t.Fatalf("BuildQuery drop: %v", err)
	}
	if !strings.HasPrefix(q, "DROP TABLE") {
		t.Fatalf("drop = %q", q)
	}

	goTo := newAction(ActionGoto, users)
	if _, err := BuildQuery(ctx, goTo); err == nil {
		t.Fatalf("goto action produced SQL")
	}
}
