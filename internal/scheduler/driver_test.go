package scheduler

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crier/internal/calendar"
	"crier/internal/ledger"
	"crier/internal/publisher"
	"crier/internal/validation"
	"crier/pkg/logging"
	"crier/pkg/xapi"
)

func fixedToday() time.Time {
	return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
}

type posterCall struct {
	platform calendar.Platform
	content  string
	dryRun   bool
}

// fakePoster records calls and pops queued results; with the queue empty it
// reports success (or a dry run when asked for one).
type fakePoster struct {
	calls   []posterCall
	results []publisher.Result
}

func (f *fakePoster) Publish(_ context.Context, platform calendar.Platform, content string, dryRun bool) publisher.Result {
	f.calls = append(f.calls, posterCall{platform: platform, content: content, dryRun: dryRun})
	if len(f.results) > 0 {
		res := f.results[0]
		f.results = f.results[1:]
		return res
	}
	if dryRun {
		return publisher.Result{Outcome: publisher.OutcomeDryRun}
	}
	return publisher.Result{Outcome: publisher.OutcomeSuccess, PostIDs: []string{"id-1"}}
}

type fakeEngagement struct {
	byID  map[string]xapi.Engagement
	errs  map[string]error
	calls []string
}

func (f *fakeEngagement) GetEngagement(_ context.Context, postID string) (xapi.Engagement, error) {
	f.calls = append(f.calls, postID)
	if err, ok := f.errs[postID]; ok {
		return xapi.Engagement{}, err
	}
	return f.byID[postID], nil
}

type fakeNotifier struct {
	subjects []string
	bodies   []string
	err      error
}

func (f *fakeNotifier) Send(subject, body string) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return f.err
}

type driverFixture struct {
	store    *calendar.Store
	led      *ledger.Ledger
	poster   *fakePoster
	engage   *fakeEngagement
	notifier *fakeNotifier
	out      *bytes.Buffer
}

func newFixture(t *testing.T, dryRun bool) (*Driver, *driverFixture) {
	t.Helper()

	dir := t.TempDir()
	fx := &driverFixture{
		store:    calendar.NewStore(filepath.Join(dir, "content_calendar.csv")),
		led:      ledger.New(dir),
		poster:   &fakePoster{},
		engage:   &fakeEngagement{byID: map[string]xapi.Engagement{}, errs: map[string]error{}},
		notifier: &fakeNotifier{},
		out:      &bytes.Buffer{},
	}

	logger := logging.NewLogger()
	logger.SetOutput(io.Discard)

	d := New(Config{
		Store:      fx.store,
		Validator:  validation.NewCalendarValidator(),
		Publisher:  fx.poster,
		Ledger:     fx.led,
		Engagement: fx.engage,
		Notifier:   fx.notifier,
		Logger:     logger,
		Clock:      fixedToday,
		Out:        fx.out,
		DryRun:     dryRun,
	})
	return d, fx
}

func writeCalendar(t *testing.T, store *calendar.Store, rows ...[]string) {
	t.Helper()

	f, err := os.Create(store.Path())
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(calendar.Header()))
	for _, row := range rows {
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, f.Close())
}

func readCalendar(t *testing.T, store *calendar.Store) [][]string {
	t.Helper()

	f, err := os.Open(store.Path())
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun_PublishesDueRowsAndWritesStatusBack(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", "due today", "Post Now"},
		[]string{"2024-05-01", "X Tweet", "future content", "Post Now"},
		[]string{"2024-03-01", "X Thread", "a|||b", ""},
	)

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, fx.poster.calls, 1)
	assert.Equal(t, posterCall{platform: calendar.PlatformPost, content: "due today", dryRun: false}, fx.poster.calls[0])

	assert.Equal(t, 1, summary.Posted)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, summary.Skipped)
	require.Len(t, summary.Statuses, 1)
	assert.Equal(t, 2, summary.Statuses[0].Row)
	assert.Equal(t, "Posted", summary.Statuses[0].Status)

	rows := readCalendar(t, fx.store)
	require.Len(t, rows, 4)
	assert.Equal(t, "Posted", rows[1][3])
	assert.Equal(t, "Post Now", rows[2][3])
	assert.Equal(t, "", rows[3][3])

	assert.Contains(t, fx.out.String(), "Processing row 2 (X Tweet)")
	assert.Contains(t, fx.out.String(), "Run complete: 1 posted, 0 failed, 0 dry-run, 2 skipped.")
}

func TestRun_PaddedStatusIsNotDue(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", "almost due", "Post Now "},
	)
	before, err := os.ReadFile(fx.store.Path())
	require.NoError(t, err)

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, fx.poster.calls)
	assert.Equal(t, 1, summary.Skipped)

	// the trigger match is literal, and an untouched calendar is not rewritten
	after, err := os.ReadFile(fx.store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_DryRun(t *testing.T) {
	d, fx := newFixture(t, true)
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", "due today", "Post Now"},
	)

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, fx.poster.calls, 1)
	assert.True(t, fx.poster.calls[0].dryRun)
	assert.Equal(t, 1, summary.DryRun)
	assert.Zero(t, summary.Posted)

	rows := readCalendar(t, fx.store)
	assert.Equal(t, "Dry Run", rows[1][3])

	// dry runs never reach the analytics pass
	assert.Empty(t, fx.engage.calls)
}

func TestRun_FailedPublishWritesRetryStatus(t *testing.T) {
	d, fx := newFixture(t, false)
	fx.poster.results = []publisher.Result{
		{Outcome: publisher.OutcomeFailure, Err: "x api: 503"},
	}
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", "due today", "Post Now"},
	)

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	rows := readCalendar(t, fx.store)
	assert.Equal(t, "Error (will retry)", rows[1][3])
	assert.Empty(t, fx.engage.calls)
}

func TestRun_BootstrapsMissingCalendar(t *testing.T) {
	d, fx := newFixture(t, false)

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Posted)
	assert.Empty(t, fx.poster.calls)
	assert.Contains(t, fx.out.String(), "Created sample calendar")

	rows := readCalendar(t, fx.store)
	require.Len(t, rows, 3)
	assert.Equal(t, calendar.Header(), rows[0])
	for _, row := range rows[1:] {
		assert.Equal(t, "2023-12-15", row[0])
		assert.Equal(t, "Post Now", row[3])
	}
}

func TestRun_EmptyCalendarIsNoop(t *testing.T) {
	d, fx := newFixture(t, false)
	require.NoError(t, os.WriteFile(fx.store.Path(), []byte("date_planned,platform,content,status\n"), 0o644))

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, fx.out.String(), "Calendar is empty")
	assert.Empty(t, fx.poster.calls)
}

func TestRun_ValidationErrorBlocksPublishing(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-13-45", "X Tweet", "bad date", "Post Now"},
		[]string{"2024-03-01", "X Tweet", "due today", "Post Now"},
	)

	_, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
	assert.Empty(t, fx.poster.calls)
	assert.Contains(t, fx.out.String(), "error: Row 2")

	// store untouched, and validation failures never reach the error ledger
	rows := readCalendar(t, fx.store)
	assert.Equal(t, "Post Now", rows[2][3])
	errRows := readLedgerFile(t, fx.led.ErrorPath())
	assert.Len(t, errRows, 1)
}

func TestRun_WarningsDoNotBlock(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", strings.Repeat("x", 300), "Post Now"},
	)

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Posted)
	assert.Contains(t, fx.out.String(), "warning: Row 2")
}

func TestRun_LockConflict(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", "due today", "Post Now"},
	)

	lock, err := fx.store.Lock()
	require.NoError(t, err)
	defer lock.Release()

	_, err = d.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, calendar.ErrLocked))
	assert.Empty(t, fx.poster.calls)
}

func TestRun_AnalyticsSnapshotsLivePosts(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", "due today", "Post Now"},
	)

	require.NoError(t, fx.led.AppendSuccess(ledger.SuccessRecord{
		Platform: "X Thread", Content: "a|||b", Status: "Posted", PostID: "21,22",
	}))
	require.NoError(t, fx.led.AppendSuccess(ledger.SuccessRecord{
		Platform: "X Tweet", Content: "preview", Status: "Dry Run", PostID: ledger.PostIDDryRun,
	}))
	fx.engage.byID["21"] = xapi.Engagement{Likes: 5, Retweets: 2, Replies: 1, Impressions: 100}
	fx.engage.byID["22"] = xapi.Engagement{Likes: 3, Retweets: 0, Replies: 0, Impressions: 40}

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"21", "22"}, fx.engage.calls)
	assert.Contains(t, fx.out.String(), "Recorded engagement for 2 post(s).")

	rows := readLedgerFile(t, fx.led.AnalyticsPath())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"X Thread", "21", "5", "2", "1", "100"}, rows[1][1:])
	assert.Equal(t, []string{"X Thread", "22", "3", "0", "0", "40"}, rows[2][1:])
}

func TestRunAnalytics_SkipsPlaceholdersAndSurvivesLookupFailures(t *testing.T) {
	d, fx := newFixture(t, false)
	require.NoError(t, fx.led.EnsureFiles())

	seed := []ledger.SuccessRecord{
		{Platform: "X Tweet", Content: "one", Status: "Posted", PostID: "31"},
		{Platform: "X Tweet", Content: "two", Status: "Dry Run", PostID: ledger.PostIDDryRun},
		{Platform: "X Tweet", Content: "three", Status: "Posted", PostID: ledger.PostIDNone},
		{Platform: "X Thread", Content: "a|||b", Status: "Posted", PostID: "41,42"},
	}
	for _, rec := range seed {
		require.NoError(t, fx.led.AppendSuccess(rec))
	}
	fx.engage.errs["41"] = errors.New("tweet not found")

	n, err := d.RunAnalytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"31", "41", "42"}, fx.engage.calls)

	rows := readLedgerFile(t, fx.led.AnalyticsPath())
	require.Len(t, rows, 3)
	assert.Equal(t, "31", rows[1][2])
	assert.Equal(t, "42", rows[2][2])
}

func TestRunAnalytics_RequiresEngagementSource(t *testing.T) {
	logger := logging.NewLogger()
	logger.SetOutput(io.Discard)
	d := New(Config{Ledger: ledger.New(t.TempDir()), Logger: logger})

	_, err := d.RunAnalytics(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engagement source not configured")
}

func TestRun_NotifierReceivesSummary(t *testing.T) {
	d, fx := newFixture(t, false)
	fx.notifier.err = errors.New("smtp down")
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", "due today", "Post Now"},
	)

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, fx.notifier.subjects, 1)
	assert.Equal(t, "crier: 1 posted, 0 failed", fx.notifier.subjects[0])
	assert.Contains(t, fx.notifier.bodies[0], "Posted: 1")
	assert.Contains(t, fx.notifier.bodies[0], "row 2 (X Tweet): Posted")
}

func TestRun_NoNotificationWithoutActivity(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-05-01", "X Tweet", "future content", "Post Now"},
	)

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fx.notifier.subjects)
}

func TestRunRow_PublishesIgnoringDueDate(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-05-01", "X Thread", "a|||b", ""},
	)

	summary, err := d.RunRow(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, fx.poster.calls, 1)
	assert.Equal(t, calendar.PlatformThread, fx.poster.calls[0].platform)
	assert.Equal(t, 1, summary.Posted)
	require.Len(t, summary.Statuses, 1)
	assert.Equal(t, 2, summary.Statuses[0].Row)

	rows := readCalendar(t, fx.store)
	assert.Equal(t, "Posted", rows[1][3])
}

func TestRunRow_IndexOutOfRange(t *testing.T) {
	d, fx := newFixture(t, false)
	writeCalendar(t, fx.store,
		[]string{"2024-03-01", "X Tweet", "only row", ""},
	)

	for _, index := range []int{0, 2, -1} {
		_, err := d.RunRow(context.Background(), index)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	}
	assert.Empty(t, fx.poster.calls)
}

func TestRunRow_MissingCalendar(t *testing.T) {
	d, _ := newFixture(t, false)

	_, err := d.RunRow(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar not found")
}

func TestWatch_InvalidSchedule(t *testing.T) {
	d, _ := newFixture(t, false)

	err := d.Watch(context.Background(), "not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestWatch_StopsOnCancel(t *testing.T) {
	d, _ := newFixture(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Watch(ctx, "@daily")
	require.NoError(t, err)
}

func TestSummaryBody(t *testing.T) {
	s := Summary{
		RunID:  "run-1",
		Posted: 2,
		Failed: 1,
		Statuses: []RowStatus{
			{Row: 2, Platform: calendar.PlatformPost, Status: "Posted"},
			{Row: 4, Platform: calendar.PlatformThread, Status: "Error (will retry)", Err: "x api: 503"},
		},
	}

	body := s.Body()
	assert.Contains(t, body, "Run run-1")
	assert.Contains(t, body, "Posted: 2")
	assert.Contains(t, body, "Failed: 1")
	assert.Contains(t, body, "row 2 (X Tweet): Posted")
	assert.Contains(t, body, "row 4 (X Thread): Error (will retry) - x api: 503")
}

func readLedgerFile(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
