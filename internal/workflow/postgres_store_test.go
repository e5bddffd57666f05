package workflow

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewPostgresStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestSaveAssignsIDOnFirstSave(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	obj := NewObject(map[string]any{"title": "one"})
	obj.DataType = "hep"

	mock.ExpectQuery("INSERT INTO workflows_object").
		WithArgs("initial", "hep", []byte(`{"title":"one"}`), []byte(`{}`)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, store.Save(context.Background(), obj))
	require.Equal(t, int64(42), obj.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUpdatesExistingObject(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	obj := NewObject(map[string]any{"title": "one"})
	obj.ID = 42
	obj.Status = ObjectStatusError
	obj.DataType = "hep"
	obj.ExtraData["crawl_errors"] = map[string]any{"errors": []any{}}

	mock.ExpectExec("UPDATE workflows_object").
		WithArgs(
			int64(42),
			"error",
			"hep",
			[]byte(`{"title":"one"}`),
			[]byte(`{"crawl_errors":{"errors":[]}}`),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Save(context.Background(), obj))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryEngineAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	engine := NewMemoryEngine()
	ctx := context.Background()

	first := NewObject(map[string]any{"n": 1.0})
	second := NewObject(map[string]any{"n": 2.0})
	require.NoError(t, engine.Save(ctx, first))
	require.NoError(t, engine.Save(ctx, second))
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(2), second.ID)

	require.NoError(t, engine.Start(ctx, "article", first.ID, "harvest"))
	starts := engine.Starts()
	require.Len(t, starts, 1)
	require.Equal(t, StartCall{WorkflowName: "article", ObjectID: 1, Queue: "harvest"}, starts[0])
}
