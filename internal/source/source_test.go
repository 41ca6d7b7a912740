package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/diagimmo/suiviclientpro/internal/instrumentation"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) RecordSourceQuery(_ context.Context, operation, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, operation+":"+status)
}

// fixture creates an empty SQLite database with the dossier tables.
func fixture(t *testing.T, opts ...Option) *Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dossiers.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	src, err := Open(context.Background(), Descriptor{Path: path}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	require.NoError(t, src.CreateSchema(context.Background()))
	return src
}

func seedRecords(t *testing.T, src *Source) {
	t.Helper()
	ctx := context.Background()
	insert := `INSERT INTO Donnees_Dossiers
	(Num_dossier, type_de_dossier, rdv_date, rdv_heure, dossier_etat_paie, photo_de_presentation, dossier_Acces)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	rows := [][]any{
		{"A12", "Vente", time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC), "09 h 00", "Payé", "photos/a12.jpg", `C:\Dossiers\A12`},
		{"B07", "Location", "2021-04-02", "14 h 30", "En attente", nil, "/srv/b07"},
		{"C03", "Vente", int64(20210405), "", "Payé", nil, nil},
		{"D44", "Vente", "pas de date", "10 h", nil, nil, nil},
		{nil, "Vente", "2021-01-01", "", "Payé", nil, nil},
	}
	for _, r := range rows {
		require.NoError(t, src.Exec(ctx, insert, r...))
	}
}

func seedCard(t *testing.T, src *Source) {
	t.Helper()
	err := src.Exec(context.Background(), `INSERT INTO Dossiers
	(nom_dossier, type_mission, date_rdv, statut_paiement, assainissement, statut_dossier, commentaires,
	facturation_ttc, facturation_paye, facturation_restante, client_nom, client_prenom, client_ville, chemin_dossier)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"A12", "Vente", time.Date(2021, 3, 31, 9, 0, 0, 0, time.UTC), "Payé", "Collectif", "En cours", "rappeler",
		1234.5, 0.0, nil, "Smith", "Jean", "Lyon", `C:\Dossiers\A12`)
	require.NoError(t, err)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(context.Background(), Descriptor{Path: filepath.Join(t.TempDir(), "absent.db")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), Descriptor{})
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestOpen_AccessFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.accdb")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := Open(context.Background(), Descriptor{Path: path})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "Microsoft Access")
}

func TestResolveDriver(t *testing.T) {
	tests := []struct {
		name    string
		d       Descriptor
		want    string
		wantErr bool
	}{
		{"default sqlite", Descriptor{Path: "/data/dossiers.db"}, DriverSQLite, false},
		{"duckdb extension", Descriptor{Path: "/data/Dossiers.DUCKDB"}, DriverDuckDB, false},
		{"ddb extension", Descriptor{Path: "mirror.ddb"}, DriverDuckDB, false},
		{"postgres url", Descriptor{Path: "postgres://u:p@localhost/diag"}, DriverPgx, false},
		{"explicit postgres alias", Descriptor{Driver: "postgresql", Path: "host=localhost"}, DriverPgx, false},
		{"explicit duckdb", Descriptor{Driver: DriverDuckDB, Path: "x.db"}, DriverDuckDB, false},
		{"unknown driver", Descriptor{Driver: "odbc", Path: "x.mdb"}, "", true},
		{"access file", Descriptor{Path: "base.mdb"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.d.ResolveDriver()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSourceUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	q := "UPDATE t SET a = ?, b = ? WHERE c = ?"
	assert.Equal(t, q, rebind(DriverSQLite, q))
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE c = $3", rebind(DriverPgx, q))
}

func TestFetchAll(t *testing.T) {
	obs := &recordingObserver{}
	src := fixture(t, WithObserver(obs))
	seedRecords(t, src)

	records, skipped, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Len(t, skipped, 1)
	assert.Equal(t, 4, skipped[0].Row)
	assert.Contains(t, skipped[0].Error(), "Num_dossier")

	byID := make(map[string]Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	assert.Equal(t, Record{
		ID:            "A12",
		MissionType:   "Vente",
		Schedule:      "31/03/2021 09 h 00",
		PaymentStatus: "Payé",
		Path:          `C:\Dossiers\A12`,
		PhotoPath:     "photos/a12.jpg",
	}, byID["A12"])
	assert.Equal(t, "02/04/2021 14 h 30", byID["B07"].Schedule)
	assert.Equal(t, "05/04/2021", byID["C03"].Schedule)
	assert.Equal(t, "", byID["C03"].Path)
	assert.Equal(t, "pas de date 10 h", byID["D44"].Schedule)
	assert.Equal(t, "", byID["D44"].PaymentStatus)

	assert.Equal(t, []string{"fetch_all:success"}, obs.calls)
}

func TestFetchAll_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	src, err := Open(context.Background(), Descriptor{Path: path})
	require.NoError(t, err)
	defer src.Close()

	_, _, err = src.FetchAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query dossiers")
}

func TestFetchOne(t *testing.T) {
	src := fixture(t)
	seedRecords(t, src)
	seedCard(t, src)

	card, err := src.FetchOne(context.Background(), "A12")
	require.NoError(t, err)
	assert.Equal(t, "A12", card.Name)
	assert.Equal(t, "31/03/2021 09 h 00", card.Schedule)
	assert.Equal(t, "1234.50 €", card.AmountTTC)
	assert.Equal(t, "", card.AmountPaid)
	assert.Equal(t, "", card.AmountRemaining)
	assert.Equal(t, "Collectif", card.Sanitation)
	assert.Equal(t, "En cours", card.CaseStatus)
	assert.Equal(t, "rappeler", card.Comments)
	assert.Equal(t, "Smith", card.ClientLastName)
	assert.Equal(t, "Lyon", card.ClientCity)
	assert.Equal(t, "", card.ClientEmail)
	assert.Equal(t, "photos/a12.jpg", card.PhotoPath)
}

func TestFetchOne_NotFound(t *testing.T) {
	src := fixture(t)

	_, err := src.FetchOne(context.Background(), "ZZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentifiersAndClientFolders(t *testing.T) {
	src := fixture(t)
	seedCard(t, src)
	require.NoError(t, src.Exec(context.Background(),
		`INSERT INTO Dossiers (nom_dossier, type_mission, date_rdv, statut_paiement) VALUES (?, ?, ?, ?)`,
		"Dupont", "Location", "sans date", "En attente"))

	ids, err := src.Identifiers(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A12", "Dupont"}, ids)

	folders, err := src.FetchClientFolders(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []FolderRecord{
		{ID: "A12", MissionType: "Vente", Date: "2021-03-31", PaymentStatus: "Payé"},
		{ID: "Dupont", MissionType: "Location", Date: "", PaymentStatus: "En attente"},
	}, folders)
}

func TestWriteAnnotationFields(t *testing.T) {
	obs := &recordingObserver{}
	src := fixture(t, WithObserver(obs))
	seedCard(t, src)

	err := src.WriteAnnotationFields(context.Background(), "A12", Fields{Sanitation: "Individuel", CaseStatus: "Terminé", Comment: "ok"})
	require.NoError(t, err)

	card, err := src.FetchOne(context.Background(), "A12")
	require.NoError(t, err)
	assert.Equal(t, "Individuel", card.Sanitation)
	assert.Equal(t, "Terminé", card.CaseStatus)
	assert.Equal(t, "ok", card.Comments)

	err = src.WriteAnnotationFields(context.Background(), "absent", Fields{Comment: "x"})
	var rwf *RemoteWriteFailure
	require.True(t, errors.As(err, &rwf))
	assert.Equal(t, "absent", rwf.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Contains(t, obs.calls, "write_back:success")
	assert.Contains(t, obs.calls, "write_back:error")
}

func TestDecodeHelpers(t *testing.T) {
	_, err := text(struct{}{})
	assert.Error(t, err)

	assert.Equal(t, "12.50 €", amount("12,5"))
	assert.Equal(t, "", amount(nil))
	assert.Equal(t, "", amount(0.0))

	assert.Equal(t, "31/03/2021", mustDisplay(t, "31/03/2021"))
	assert.Equal(t, "31/03/2021", mustDisplay(t, int64(20210331)))
	assert.Equal(t, "12345", mustDisplay(t, int64(12345)))
	assert.Equal(t, "", mustDisplay(t, nil))

	assert.Equal(t, "2021-03-31", isoDate("31/03/2021"))
	assert.Equal(t, "", isoDate("n/a"))
}

func mustDisplay(t *testing.T, v any) string {
	t.Helper()
	s, err := displayDate(v)
	require.NoError(t, err)
	return s
}

func TestQueriesAreTraced(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	src := fixture(t)
	seedCard(t, src)

	_, err := src.FetchOne(context.Background(), "A12")
	require.NoError(t, err)
	_, err = src.FetchOne(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)

	var fetches []sdktrace.ReadOnlySpan
	for _, s := range rec.Ended() {
		if s.Name() == "source.fetch_one" {
			fetches = append(fetches, s)
		}
	}
	require.Len(t, fetches, 2)
	for _, s := range fetches {
		assert.Equal(t, instrumentation.SourceTracerName, s.InstrumentationScope().Name)
		attrs := map[string]string{}
		for _, a := range s.Attributes() {
			attrs[string(a.Key)] = a.Value.Emit()
		}
		assert.Equal(t, DriverSQLite, attrs[instrumentation.SpanAttrSourceDriver])
		assert.Equal(t, "fetch_one", attrs[instrumentation.SpanAttrSourceOperation])
	}
	assert.Equal(t, codes.Ok, fetches[0].Status().Code)
	assert.Equal(t, codes.Error, fetches[1].Status().Code)
}
