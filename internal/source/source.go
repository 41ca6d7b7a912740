package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/diagimmo/suiviclientpro/internal/instrumentation"
	"github.com/diagimmo/suiviclientpro/internal/logging"
)

// Observer receives the outcome of every query. *instrumentation.Metrics satisfies it.
type Observer interface {
	RecordSourceQuery(ctx context.Context, operation, status string, duration time.Duration)
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger used for skipped rows and failed queries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver records query outcomes on o.
func WithObserver(o Observer) Option {
	return func(s *Source) {
		s.observer = o
	}
}

// Source is an open connection to the dossier database.
type Source struct {
	db       *sql.DB
	driver   string
	logger   *slog.Logger
	observer Observer
}

// Open connects to the database described by d.
// A missing database file, an unknown driver or a failed connection check all return
// an error wrapping ErrSourceUnavailable.
func Open(ctx context.Context, d Descriptor, opts ...Option) (*Source, error) {
	driver, err := d.ResolveDriver()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Path) == "" {
		return nil, unavailable("no database path configured")
	}
	if isFileDriver(driver) {
		info, err := os.Stat(d.Path)
		if err != nil {
			return nil, unavailable("file not found: %s", d.Path)
		}
		if info.IsDir() {
			return nil, unavailable("%s is a directory", d.Path)
		}
	}

	db, err := sql.Open(driver, d.Path)
	if err != nil {
		return nil, unavailable("%v", err)
	}

	pingCtx := ctx
	if d.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, d.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, unavailable("%v", err)
	}

	if driver == DriverSQLite {
		// One writer at a time; the file belongs to a single-user desktop program.
		db.SetMaxOpenConns(1)
	}

	s := &Source{db: db, driver: driver, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithOperation(s.logger, "source").With(logging.Driver(driver))
	return s, nil
}

// Close releases the connection.
func (s *Source) Close() error {
	return s.db.Close()
}

// Driver returns the resolved driver name.
func (s *Source) Driver() string {
	return s.driver
}

// begin opens the span of query op. The returned func ends it and reports the outcome
// to the observer.
func (s *Source) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := instrumentation.StartSourceSpan(ctx, op, s.driver, attrs...)
	return ctx, func(err error) {
		instrumentation.EndSpan(span, err)
		if s.observer == nil {
			return
		}
		status := logging.StatusSuccess
		if err != nil {
			status = logging.StatusError
		}
		s.observer.RecordSourceQuery(ctx, op, status, time.Since(start))
	}
}

const fetchAllQuery = `SELECT Num_dossier, type_de_dossier, rdv_date, rdv_heure, dossier_etat_paie, photo_de_presentation, dossier_Acces
FROM Donnees_Dossiers`

// FetchAll reads every dossier of the Donnees_Dossiers table.
//
// Rows that cannot be decoded are logged, skipped and returned as RowDecodeErrors; only
// a failure of the query itself returns a non-nil error.
func (s *Source) FetchAll(ctx context.Context) (records []Record, skipped []*RowDecodeError, err error) {
	ctx, end := s.begin(ctx, "fetch_all")
	defer func() { end(err) }()

	rows, err := s.db.QueryContext(ctx, fetchAllQuery)
	if err != nil {
		s.logger.Error("dossier query failed", logging.Err(err))
		return nil, nil, fmt.Errorf("failed to query dossiers: %w", err)
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		var cells [7]any
		if err := rows.Scan(&cells[0], &cells[1], &cells[2], &cells[3], &cells[4], &cells[5], &cells[6]); err != nil {
			skipped = append(skipped, s.skip(i, "", err))
			continue
		}
		rec, err := decodeRecord(cells)
		if err != nil {
			skipped = append(skipped, s.skip(i, rec.ID, err))
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return records, skipped, fmt.Errorf("failed to read dossiers: %w", err)
	}
	return records, skipped, nil
}

func (s *Source) skip(row int, id string, err error) *RowDecodeError {
	rde := &RowDecodeError{Row: row, ID: id, Err: err}
	s.logger.Warn("dossier row skipped", slog.Int("row", row), logging.Dossier(id), logging.Err(err))
	return rde
}

func decodeRecord(c [7]any) (Record, error) {
	id, err := text(c[0])
	if err != nil {
		return Record{}, fmt.Errorf("Num_dossier: %w", err)
	}
	rec := Record{ID: strings.TrimSpace(id)}
	if rec.ID == "" {
		return rec, errors.New("Num_dossier is empty")
	}
	if rec.MissionType, err = text(c[1]); err != nil {
		return rec, fmt.Errorf("type_de_dossier: %w", err)
	}
	if rec.Schedule, err = schedule(c[2], c[3]); err != nil {
		return rec, err
	}
	if rec.PaymentStatus, err = text(c[4]); err != nil {
		return rec, fmt.Errorf("dossier_etat_paie: %w", err)
	}
	if rec.PhotoPath, err = text(c[5]); err != nil {
		return rec, fmt.Errorf("photo_de_presentation: %w", err)
	}
	if rec.Path, err = text(c[6]); err != nil {
		return rec, fmt.Errorf("dossier_Acces: %w", err)
	}
	return rec, nil
}

const fetchOneQuery = `SELECT nom_dossier, type_mission, date_rdv, statut_paiement, assainissement, statut_dossier, commentaires,
facturation_ttc, facturation_paye, facturation_restante,
client_nom, client_prenom, client_adresse, client_cp, client_ville, client_email, client_tel,
bien_adresse, bien_cp, bien_ville, donneur_ordre, chemin_dossier
FROM Dossiers
WHERE nom_dossier = ?`

// FetchOne reads the client card of dossier id from the Dossiers table.
// It returns ErrNotFound when no row matches.
func (s *Source) FetchOne(ctx context.Context, id string) (card ClientCard, err error) {
	ctx, end := s.begin(ctx, "fetch_one", attribute.String(instrumentation.SpanAttrDossier, id))
	defer func() { end(err) }()

	var c [22]any
	dest := make([]any, len(c))
	for i := range c {
		dest[i] = &c[i]
	}
	err = s.db.QueryRowContext(ctx, rebind(s.driver, fetchOneQuery), id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ClientCard{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return ClientCard{}, fmt.Errorf("failed to query dossier %s: %w", id, err)
	}

	return ClientCard{
		Name:             loose(c[0]),
		MissionType:      loose(c[1]),
		Schedule:         cardSchedule(c[2]),
		PaymentStatus:    loose(c[3]),
		Sanitation:       loose(c[4]),
		CaseStatus:       loose(c[5]),
		Comments:         loose(c[6]),
		AmountTTC:        amount(c[7]),
		AmountPaid:       amount(c[8]),
		AmountRemaining:  amount(c[9]),
		ClientLastName:   loose(c[10]),
		ClientFirstName:  loose(c[11]),
		ClientAddress:    loose(c[12]),
		ClientPostcode:   loose(c[13]),
		ClientCity:       loose(c[14]),
		ClientEmail:      loose(c[15]),
		ClientPhone:      loose(c[16]),
		PropertyAddress:  loose(c[17]),
		PropertyPostcode: loose(c[18]),
		PropertyCity:     loose(c[19]),
		OrderingParty:    loose(c[20]),
		Path:             loose(c[21]),
		PhotoPath:        s.photo(ctx, id),
	}, nil
}

// photo looks up the presentation photo recorded for id in Donnees_Dossiers.
func (s *Source) photo(ctx context.Context, id string) string {
	var v any
	q := rebind(s.driver, `SELECT photo_de_presentation FROM Donnees_Dossiers WHERE Num_dossier = ?`)
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&v); err != nil {
		return ""
	}
	return loose(v)
}

// Identifiers lists the nom_dossier column of the Dossiers table.
func (s *Source) Identifiers(ctx context.Context) (ids []string, err error) {
	ctx, end := s.begin(ctx, "identifiers")
	defer func() { end(err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT nom_dossier FROM Dossiers`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dossier names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to read dossier name: %w", err)
		}
		if name := strings.TrimSpace(loose(v)); name != "" {
			ids = append(ids, name)
		}
	}
	return ids, rows.Err()
}

// FetchClientFolders reads the columns shown by the client-folder table.
func (s *Source) FetchClientFolders(ctx context.Context) (out []FolderRecord, err error) {
	ctx, end := s.begin(ctx, "fetch_client_folders")
	defer func() { end(err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT nom_dossier, type_mission, date_rdv, statut_paiement FROM Dossiers`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dossiers: %w", err)
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		var c [4]any
		if err := rows.Scan(&c[0], &c[1], &c[2], &c[3]); err != nil {
			s.skip(i, "", err)
			continue
		}
		rec := FolderRecord{
			ID:            strings.TrimSpace(loose(c[0])),
			MissionType:   loose(c[1]),
			Date:          isoDate(c[2]),
			PaymentStatus: loose(c[3]),
		}
		if rec.ID == "" {
			s.skip(i, "", errors.New("nom_dossier is empty"))
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const writeBackQuery = `UPDATE Dossiers SET assainissement = ?, statut_dossier = ?, commentaires = ? WHERE nom_dossier = ?`

// WriteAnnotationFields copies the annotation fields of dossier id to the Dossiers table.
// Any failure, including no matching row, is a *RemoteWriteFailure.
func (s *Source) WriteAnnotationFields(ctx context.Context, id string, f Fields) (err error) {
	ctx, end := s.begin(ctx, "write_back", attribute.String(instrumentation.SpanAttrDossier, id))
	defer func() { end(err) }()

	res, err := s.db.ExecContext(ctx, rebind(s.driver, writeBackQuery), f.Sanitation, f.CaseStatus, f.Comment, id)
	if err != nil {
		s.logger.Warn("write-back failed", logging.Dossier(id), logging.Err(err))
		return &RemoteWriteFailure{ID: id, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &RemoteWriteFailure{ID: id, Err: err}
	}
	if n == 0 {
		return &RemoteWriteFailure{ID: id, Err: ErrNotFound}
	}
	return nil
}
