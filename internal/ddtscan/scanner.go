package ddtscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/diagimmo/suiviclientpro/internal/instrumentation"
	"github.com/diagimmo/suiviclientpro/internal/jsonfile"
	"github.com/diagimmo/suiviclientpro/internal/logging"
)

const (
	// SentLabel restricts the scan to sent messages.
	SentLabel = "SENT"

	baseQuery = "has:attachment filename:pdf"
)

// Query returns the Gmail search query, restricted to messages from sender when set.
func Query(sender string) string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return baseQuery
	}
	return baseQuery + " from:" + sender
}

// MessageSource lists messages and their attachment filenames. *gmail.Client satisfies it.
type MessageSource interface {
	// ListMessageIDs returns one page of message ids and the token of the next page,
	// empty on the last page.
	ListMessageIDs(ctx context.Context, query string, labelIDs []string, pageToken string) (ids []string, next string, err error)
	// AttachmentFilenames returns the attachment filenames of a message, at any depth
	// of the MIME tree.
	AttachmentFilenames(ctx context.Context, messageID string) ([]string, error)
}

// Progress is called after every message with the number of messages handled so far.
type Progress func(done, total int)

// Observer records scan outcomes. *instrumentation.Metrics satisfies it.
type Observer interface {
	RecordScanMessage(ctx context.Context, outcome string)
}

// Outcomes reported to the Observer.
const (
	OutcomeSkipped   = "skipped"
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
)

// Report summarises a scan.
type Report struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	// Found are the PDF filenames first seen by this scan.
	Found []string `json:"found"`
	// Known are every PDF filename in the checkpoint after the scan, earlier scans
	// included.
	Known     []string      `json:"-"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// Scanner runs resumable scans over a MessageSource.
type Scanner struct {
	// CheckpointPath is where the checkpoint is loaded from and saved to.
	CheckpointPath string
	// Sender restricts the scan to messages sent from this address.
	Sender   string
	Logger   *slog.Logger
	Observer Observer
}

// Run lists every matching message, then processes them one by one.
//
// Messages already in the checkpoint are skipped. A message whose attachments cannot
// be read is logged and left out of the checkpoint so the next scan retries it. The
// checkpoint is saved when the walk ends, including on cancellation; a cancelled scan
// returns its partial report and the context error. An unparseable checkpoint is
// copied to <path>.corrupt before being replaced.
func (s *Scanner) Run(ctx context.Context, src MessageSource, progress Progress) (Report, error) {
	ctx, span := instrumentation.StartScanSpan(ctx, "run")
	rep, err := s.run(ctx, src, progress)
	span.SetAttributes(
		attribute.Int("suivi.scan.total", rep.Total),
		attribute.Int("suivi.scan.processed", rep.Processed),
		attribute.Int("suivi.scan.found", len(rep.Found)),
		attribute.Bool("suivi.scan.cancelled", rep.Cancelled),
	)
	instrumentation.EndSpan(span, err)
	return rep, err
}

func (s *Scanner) run(ctx context.Context, src MessageSource, progress Progress) (Report, error) {
	start := time.Now()
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithOperation(logger, "scan_ddt")

	path := s.CheckpointPath
	if path == "" {
		path = DefaultCheckpointPath
	}
	cp, err := LoadCheckpoint(path)
	if err != nil {
		if !errors.Is(err, jsonfile.ErrPersistenceDecode) {
			return Report{Duration: time.Since(start)}, err
		}
		// Same fallback as the annotation document: keep the bad file aside and carry on
		// from an empty history.
		if err := jsonfile.Preserve(path); err != nil {
			return Report{Duration: time.Since(start)}, err
		}
		logger.Warn("checkpoint unparseable, starting from an empty history",
			logging.Path(path), slog.String("kept_as", path+jsonfile.CorruptSuffix), logging.Err(err))
	}

	ids, err := listAll(ctx, src, Query(s.Sender))
	if err != nil {
		return Report{Duration: time.Since(start)}, fmt.Errorf("failed to list messages: %w", err)
	}

	rep := Report{Total: len(ids), Found: []string{}}
	logger.Info("scan started", logging.Count(len(ids)), logging.Path(path))

	var runErr error
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			rep.Cancelled = true
			runErr = err
			break
		}

		switch {
		case cp.HasMessage(id):
			rep.Skipped++
			s.observe(ctx, OutcomeSkipped)
		default:
			names, err := s.attachments(ctx, src, id)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					rep.Cancelled = true
					runErr = err
					break
				}
				rep.Failed++
				s.observe(ctx, OutcomeFailed)
				logger.Warn("message skipped", slog.String("message_id", id), logging.Err(err))
				break
			}
			for _, name := range names {
				if IsPDF(name) && cp.AddFile(name) {
					rep.Found = append(rep.Found, name)
				}
			}
			cp.AddMessage(id)
			rep.Processed++
			s.observe(ctx, OutcomeProcessed)
		}
		if rep.Cancelled {
			break
		}
		if progress != nil {
			progress(i+1, len(ids))
		}
	}

	rep.Known = append([]string(nil), cp.Files...)
	if err := cp.Save(path); err != nil {
		return rep, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	rep.Duration = time.Since(start)
	logger.Info("scan finished",
		slog.Int("processed", rep.Processed),
		slog.Int("skipped", rep.Skipped),
		slog.Int("found", len(rep.Found)),
		slog.Bool("cancelled", rep.Cancelled),
		logging.Count(rep.Total),
	)
	return rep, runErr
}

func (s *Scanner) attachments(ctx context.Context, src MessageSource, id string) ([]string, error) {
	ctx, span := instrumentation.StartScanSpan(ctx, "message", attribute.String("suivi.scan.message_id", id))
	names, err := src.AttachmentFilenames(ctx, id)
	instrumentation.EndSpan(span, err)
	return names, err
}

func (s *Scanner) observe(ctx context.Context, outcome string) {
	if s.Observer != nil {
		s.Observer.RecordScanMessage(ctx, outcome)
	}
}

func listAll(ctx context.Context, src MessageSource, query string) (all []string, err error) {
	ctx, span := instrumentation.StartScanSpan(ctx, "list")
	defer func() {
		span.SetAttributes(attribute.Int("suivi.scan.listed", len(all)))
		instrumentation.EndSpan(span, err)
	}()

	token := ""
	for {
		ids, next, err := src.ListMessageIDs(ctx, query, []string{SentLabel}, token)
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
		if next == "" {
			return all, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		token = next
	}
}

// IsPDF reports whether filename has a .pdf extension, ignoring case.
func IsPDF(filename string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".pdf")
}
