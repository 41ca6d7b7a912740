package ddtscan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/diagimmo/suiviclientpro/internal/instrumentation"
	"github.com/diagimmo/suiviclientpro/internal/jsonfile"
)

// fakeMailbox serves pages of message ids and per-message filenames.
type fakeMailbox struct {
	pages     [][]string
	files     map[string][]string
	failing   map[string]error
	queries   []string
	labels    [][]string
	fetched   []string
	onFetched func(id string)
}

func (m *fakeMailbox) ListMessageIDs(_ context.Context, query string, labelIDs []string, pageToken string) ([]string, string, error) {
	m.queries = append(m.queries, query)
	m.labels = append(m.labels, labelIDs)
	page := 0
	if pageToken != "" {
		page = int(pageToken[0] - '0')
	}
	next := ""
	if page+1 < len(m.pages) {
		next = string(rune('0' + page + 1))
	}
	return m.pages[page], next, nil
}

func (m *fakeMailbox) AttachmentFilenames(_ context.Context, id string) ([]string, error) {
	m.fetched = append(m.fetched, id)
	if m.onFetched != nil {
		m.onFetched(id)
	}
	if err := m.failing[id]; err != nil {
		return nil, err
	}
	return m.files[id], nil
}

type countingObserver map[string]int

func (o countingObserver) RecordScanMessage(_ context.Context, outcome string) { o[outcome]++ }

func TestQuery(t *testing.T) {
	assert.Equal(t, "has:attachment filename:pdf", Query(""))
	assert.Equal(t, "has:attachment filename:pdf from:cabinet@example.fr", Query(" cabinet@example.fr "))
}

func TestRun_SkipsCheckpointedMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCheckpointPath)
	require.NoError(t, os.WriteFile(path, []byte(`{"messages": ["m1"], "fichiers": ["a.pdf"]}`), 0o600))

	box := &fakeMailbox{
		pages: [][]string{{"m1", "m2"}},
		files: map[string][]string{"m2": {"b.pdf", "photo.jpg", "a.pdf"}},
	}
	var progress [][2]int
	obs := countingObserver{}
	s := &Scanner{CheckpointPath: path, Observer: obs}

	rep, err := s.Run(context.Background(), box, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf"}, rep.Found)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, rep.Known)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Processed)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, []string{"m2"}, box.fetched)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)
	assert.Equal(t, countingObserver{OutcomeSkipped: 1, OutcomeProcessed: 1}, obs)
	assert.Equal(t, [][]string{{SentLabel}}, box.labels)

	cp, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, cp.Messages)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, cp.Files)

	// A second run finds nothing new.
	box.fetched = nil
	rep, err = s.Run(context.Background(), box, nil)
	require.NoError(t, err)
	assert.Empty(t, rep.Found)
	assert.Equal(t, 2, rep.Skipped)
	assert.Empty(t, box.fetched)
}

func TestRun_Paginates(t *testing.T) {
	box := &fakeMailbox{
		pages: [][]string{{"m1"}, {"m2"}, {"m3"}},
		files: map[string][]string{"m1": {"A12.PDF"}, "m3": {"B07.pdf"}},
	}
	s := &Scanner{CheckpointPath: filepath.Join(t.TempDir(), "cp.json"), Sender: "me@example.fr"}

	rep, err := s.Run(context.Background(), box, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, []string{"A12.PDF", "B07.pdf"}, rep.Found)
	assert.Len(t, box.queries, 3)
	assert.Contains(t, box.queries[0], "from:me@example.fr")
}

func TestRun_FailedMessageIsRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	box := &fakeMailbox{
		pages:   [][]string{{"m1", "m2"}},
		files:   map[string][]string{"m2": {"c.pdf"}},
		failing: map[string]error{"m1": errors.New("backend error")},
	}
	s := &Scanner{CheckpointPath: path}

	rep, err := s.Run(context.Background(), box, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)

	cp, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, cp.Messages)
}

func TestRun_CancelSavesCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	ctx, cancel := context.WithCancel(context.Background())
	box := &fakeMailbox{
		pages: [][]string{{"m1", "m2", "m3"}},
		files: map[string][]string{"m1": {"a.pdf"}, "m2": {"b.pdf"}},
		onFetched: func(id string) {
			if id == "m1" {
				cancel()
			}
		},
	}
	s := &Scanner{CheckpointPath: path}

	rep, err := s.Run(ctx, box, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, rep.Cancelled)
	assert.Equal(t, 1, rep.Processed)
	assert.Equal(t, []string{"m1"}, box.fetched)

	cp, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, cp.Messages)
	assert.Equal(t, []string{"a.pdf"}, cp.Files)
}

func TestRun_KeepsUnparseableCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCheckpointPath)
	bad := []byte(`{"messages": ["m1",`)
	require.NoError(t, os.WriteFile(path, bad, 0o600))

	box := &fakeMailbox{
		pages: [][]string{{"m1"}},
		files: map[string][]string{"m1": {"DDT_A12.pdf"}},
	}
	rep, err := (&Scanner{CheckpointPath: path}).Run(context.Background(), box, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Processed)

	kept, err := os.ReadFile(path + jsonfile.CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, bad, kept)

	cp, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.True(t, cp.HasFile("DDT_A12.pdf"))
}

func TestRun_TracesSteps(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	box := &fakeMailbox{
		pages:   [][]string{{"m1", "m2"}},
		files:   map[string][]string{"m1": {"a.pdf"}},
		failing: map[string]error{"m2": errors.New("attachment unavailable")},
	}
	s := &Scanner{CheckpointPath: filepath.Join(t.TempDir(), DefaultCheckpointPath)}
	_, err := s.Run(context.Background(), box, nil)
	require.NoError(t, err)

	byName := map[string][]sdktrace.ReadOnlySpan{}
	for _, span := range rec.Ended() {
		assert.Equal(t, instrumentation.ScanTracerName, span.InstrumentationScope().Name)
		byName[span.Name()] = append(byName[span.Name()], span)
	}
	require.Len(t, byName["ddt_scan.run"], 1)
	require.Len(t, byName["ddt_scan.list"], 1)
	require.Len(t, byName["ddt_scan.message"], 2)

	run := byName["ddt_scan.run"][0]
	assert.Equal(t, run.SpanContext().SpanID(), byName["ddt_scan.list"][0].Parent().SpanID())
	assert.Equal(t, codes.Ok, run.Status().Code)

	statuses := map[codes.Code]int{}
	for _, m := range byName["ddt_scan.message"] {
		assert.Equal(t, run.SpanContext().SpanID(), m.Parent().SpanID())
		statuses[m.Status().Code]++
	}
	assert.Equal(t, map[codes.Code]int{codes.Ok: 1, codes.Error: 1}, statuses)
}

func TestLoadCheckpoint(t *testing.T) {
	dir := t.TempDir()

	cp, err := LoadCheckpoint(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cp.Messages)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	cp, err = LoadCheckpoint(bad)
	assert.ErrorIs(t, err, jsonfile.ErrPersistenceDecode)
	require.NotNil(t, cp)
	assert.True(t, cp.AddMessage("m1"))
	assert.False(t, cp.AddMessage("m1"))

	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`{"messages": ["m1", "m1"], "fichiers": null}`), 0o600))
	cp, err = LoadCheckpoint(dup)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, cp.Messages)
	assert.Equal(t, []string{}, cp.Files)
}

func TestInferSent(t *testing.T) {
	files := []string{"DDT_A12_Vente.pdf", "Rapport Smith Jean.PDF", "facture.pdf"}
	ids := []string{"B07", "A12", "Smith Jean", "A12", ""}

	assert.Equal(t, []string{"A12", "Smith Jean"}, InferSent(files, ids))
	assert.Empty(t, InferSent(nil, ids))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("a.PDF"))
	assert.True(t, IsPDF("rapport.pdf"))
	assert.False(t, IsPDF("a.pdf.jpg"))
	assert.False(t, IsPDF(""))
}
