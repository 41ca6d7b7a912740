package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/diagimmo/suiviclientpro/internal/annotations"
	"github.com/diagimmo/suiviclientpro/internal/config"
	"github.com/diagimmo/suiviclientpro/internal/ddtscan"
	"github.com/diagimmo/suiviclientpro/internal/folders"
	"github.com/diagimmo/suiviclientpro/internal/instrumentation"
	"github.com/diagimmo/suiviclientpro/internal/logging"
	"github.com/diagimmo/suiviclientpro/internal/projection"
	"github.com/diagimmo/suiviclientpro/internal/source"
)

// Write-back outcomes reported by Annotate.
const (
	WriteBackDisabled = "disabled"
	WriteBackSuccess  = "success"
	WriteBackFailed   = "failed"
)

// Listing is a projected view of the record source.
type Listing struct {
	Rows []projection.Row `json:"rows"`
	// Total is the number of records before filtering.
	Total   int                      `json:"total"`
	Skipped []*source.RowDecodeError `json:"-"`
	// Stale are annotated identifiers with no record left in the source.
	Stale []string `json:"stale,omitempty"`
}

// Dossier is the detail card of a dossier with its annotation overlay.
type Dossier struct {
	Card        source.ClientCard `json:"fiche"`
	Annotations annotations.Entry `json:"annotations"`
	// Annotated is false when the dossier was never annotated.
	Annotated bool `json:"annotated"`
}

// AnnotateResult is the outcome of an annotation edit.
type AnnotateResult struct {
	Row       projection.Row `json:"row"`
	WriteBack string         `json:"write_back"`
	// WriteBackError is set when the best-effort write-back failed. The annotation
	// itself is saved regardless.
	WriteBackError string `json:"write_back_error,omitempty"`
}

// ScanResult is the outcome of a DDT scan.
type ScanResult struct {
	Report ddtscan.Report `json:"report"`
	// Marked are the dossiers whose DDT-sent flag this scan switched on.
	Marked []string `json:"marked,omitempty"`
}

// fetchLocked reads every record of the source.
func (sc *ServerContext) fetchLocked(ctx context.Context) ([]source.Record, []*source.RowDecodeError, error) {
	src, err := sc.recordSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	records, skipped, err := src.FetchAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range skipped {
		sc.logger.Warn("skipping undecodable row", logging.Dossier(s.ID), logging.Err(s))
	}
	return records, skipped, nil
}

// ListDossiers fetches the records, merges the annotations and applies f and s.
func (sc *ServerContext) ListDossiers(ctx context.Context, f projection.Filter, s projection.Sort) (Listing, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	records, skipped, err := sc.fetchLocked(ctx)
	if err != nil {
		return Listing{}, err
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	stale := sc.store.Stale(ids)
	if len(stale) > 0 {
		sc.logger.Debug("annotations without a dossier record", logging.Count(len(stale)))
	}
	return Listing{
		Rows:    projection.Project(records, sc.store, f, s),
		Total:   len(records),
		Skipped: skipped,
		Stale:   stale,
	}, nil
}

// FilterOptions returns the type and payment choices offered by the filter bar.
func (sc *ServerContext) FilterOptions(ctx context.Context) (types, payments []string, err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	records, _, err := sc.fetchLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	return projection.TypeOptions(records), projection.PaymentChoices(), nil
}

// GetDossier returns the detail card of dossier id.
func (sc *ServerContext) GetDossier(ctx context.Context, id string) (Dossier, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	src, err := sc.recordSource(ctx)
	if err != nil {
		return Dossier{}, err
	}
	defer src.Close()

	card, err := src.FetchOne(ctx, id)
	if err != nil {
		return Dossier{}, err
	}
	entry, annotated := sc.store.Lookup(id)
	return Dossier{Card: card, Annotations: entry, Annotated: annotated}, nil
}

// Annotate sets the annotation column col of dossier id to value.
//
// The edit goes through the dossier table so the same validation applies as for an
// interactive edit. When write-back is enabled the annotation fields are then copied
// to the record source; a failed write-back is logged and reported but does not undo
// the saved annotation.
func (sc *ServerContext) Annotate(ctx context.Context, id string, col projection.Column, value string) (AnnotateResult, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	field, ok := col.Field()
	if !ok {
		return AnnotateResult{}, fmt.Errorf("%s: %w", col, projection.ErrReadOnlyColumn)
	}

	records, _, err := sc.fetchLocked(ctx)
	if err != nil {
		return AnnotateResult{}, err
	}

	table := projection.NewTable(sc.store)
	result := AnnotateResult{WriteBack: WriteBackDisabled}
	table.OnEdit(func(id string, f annotations.Field, _ projection.Row) {
		sc.logger.Info("annotation saved", logging.Dossier(id), logging.Field(string(f)))
		if !sc.cfg.WriteBack {
			return
		}
		if err := sc.writeBackLocked(ctx, id); err != nil {
			result.WriteBack = WriteBackFailed
			result.WriteBackError = err.Error()
			return
		}
		result.WriteBack = WriteBackSuccess
	})
	table.Populate(records, projection.Filter{}, projection.Sort{}, nil)

	row, err := table.Edit(id, col, value)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	sc.metrics.RecordAnnotationWrite(ctx, string(field), status)
	if err != nil {
		return AnnotateResult{}, err
	}
	result.Row = row
	return result, nil
}

func (sc *ServerContext) writeBackLocked(ctx context.Context, id string) error {
	entry := sc.store.Get(id)
	err := func() error {
		src, err := sc.recordSource(ctx)
		if err != nil {
			return &source.RemoteWriteFailure{ID: id, Err: err}
		}
		defer src.Close()
		return src.WriteAnnotationFields(ctx, id, source.Fields{
			Sanitation: entry.Sanitation,
			CaseStatus: entry.CaseStatus,
			Comment:    entry.Comment,
		})
	}()

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		sc.logger.Warn("write-back to the record source failed", logging.Dossier(id), logging.Err(err))
	}
	sc.metrics.RecordWriteBack(ctx, status)
	return err
}

// SetDDTSent sets the DDT-sent flag of dossier id. The flag is not part of the record
// source, so it is never written back.
func (sc *ServerContext) SetDDTSent(ctx context.Context, id string, sent bool) (annotations.Entry, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	err := sc.store.SetDDTSent(id, sent)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	sc.metrics.RecordAnnotationWrite(ctx, string(annotations.FieldDDTSent), status)
	if err != nil {
		return annotations.Entry{}, err
	}
	sc.logger.Info("annotation saved", logging.Dossier(id), logging.Field(string(annotations.FieldDDTSent)))
	return sc.store.Get(id), nil
}

// ClientFolders returns the dossiers whose client folder was found on disk by the
// last reconciliation.
func (sc *ServerContext) ClientFolders(ctx context.Context) ([]projection.ClientFolderRow, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	src, err := sc.recordSource(ctx)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	records, err := src.FetchClientFolders(ctx)
	if err != nil {
		return nil, err
	}
	return projection.ClientFolderRows(records, sc.cfg.EligibleSet(), sc.store), nil
}

// ReconcileFolders maps the client folders under parent to the source identifiers and
// caches the eligible names in the configuration. An empty parent reuses the
// configured one. When parent cannot be listed the configuration is left untouched.
func (sc *ServerContext) ReconcileFolders(ctx context.Context, parent string) (folders.Result, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if parent == "" {
		parent = sc.cfg.ClientsParentFolder
	}

	src, err := sc.recordSource(ctx)
	if err != nil {
		if errors.Is(err, config.ErrNotConfigured) {
			return folders.Result{}, err
		}
		return folders.Result{}, fmt.Errorf("%w: %v", folders.ErrSourceUnreadable, err)
	}
	defer src.Close()

	res, err := folders.ComputeEligible(ctx, parent, src)
	if err != nil {
		return folders.Result{}, err
	}
	if !res.Walked {
		sc.logger.Warn("client folders not reconciled", logging.Path(parent), slog.String("reason", res.Message))
		return res, nil
	}

	if _, err := sc.configureLocked(func(c *config.Config) {
		c.ClientsParentFolder = parent
		c.AllClientFolders = res.Eligible
	}); err != nil {
		return res, err
	}
	sc.logger.Info("client folders reconciled", logging.Count(len(res.Eligible)))
	return res, nil
}

// ScanDDT walks the mailbox for DDT attachments. With mark set, the dossiers named by
// any filename of the scan history, earlier scans included, get their DDT-sent flag
// set. Marked lists the flags that changed.
//
// A cancelled scan returns its partial result and the context error; nothing is
// marked in that case.
func (sc *ServerContext) ScanDDT(ctx context.Context, mark bool, progress ddtscan.Progress) (ScanResult, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	mailbox, err := sc.mailboxLocked(ctx)
	if err != nil {
		return ScanResult{}, err
	}

	if sc.cfg.EmailAddress != "" {
		sc.logger.Info("DDT scan started", logging.UserHash(sc.cfg.EmailAddress))
	} else {
		sc.logger.Info("DDT scan started")
	}
	scanner := &ddtscan.Scanner{
		CheckpointPath: sc.paths.Checkpoint,
		Sender:         sc.cfg.EmailAddress,
		Logger:         sc.logger,
	}
	if sc.metrics != nil {
		scanner.Observer = sc.metrics
	}

	report, err := scanner.Run(ctx, mailbox, progress)
	result := ScanResult{Report: report}
	if err != nil || !mark || len(report.Known) == 0 {
		return result, err
	}

	src, err := sc.recordSource(ctx)
	if err != nil {
		return result, err
	}
	defer src.Close()

	ids, err := src.Identifiers(ctx)
	if err != nil {
		return result, err
	}
	for _, id := range ddtscan.InferSent(report.Known, ids) {
		if sc.store.Get(id).DDTSent {
			continue
		}
		if err := sc.store.SetDDTSent(id, true); err != nil {
			return result, err
		}
		result.Marked = append(result.Marked, id)
	}
	sc.logger.Info("DDT flags set from scan", logging.Count(len(result.Marked)))
	return result, nil
}
