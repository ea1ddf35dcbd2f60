package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pacwatch/internal/feed"
	"pacwatch/internal/notify"
	"pacwatch/internal/pipeline/mocks"
	"pacwatch/internal/records"
	"pacwatch/internal/records/store"
)

const (
	houseText      = "Club for Growth spends $5,000 on media buy support Jane Doe (D-CA25)."
	cumulativeText = houseText + "\n\nThey have now spent $7,500 support Doe in the past 30 days."
	opposeText     = "America Votes spends $9,000 on phone calls oppose John Smith (R-TX10)."
)

type PipelineSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	source     *mocks.MockFeedSource
	ledger     *mocks.MockLedger
	dispatcher *mocks.MockDispatcher
	now        time.Time
	sleeps     []time.Duration
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockFeedSource(s.ctrl)
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.dispatcher = mocks.NewMockDispatcher(s.ctrl)
	s.now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	s.sleeps = nil
}

func (s *PipelineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func testOptions() Options {
	return Options{
		WindowDays:    30,
		InterDispatch: 5 * time.Second,
		CharLimit:     280,
		Send:          true,
		Record:        true,
		Cumulative:    true,
	}
}

func (s *PipelineSuite) newPipeline(opts Options) *Pipeline {
	p, err := New(s.source, s.ledger, s.dispatcher, opts,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			s.sleeps = append(s.sleeps, d)
			return ctx.Err()
		}),
	)
	s.Require().NoError(err)
	return p
}

// houseEntry is the canonical in-window filing used across scenarios.
func houseEntry() feed.Entry {
	return feed.Entry{
		CommitteeID: "C00487470",
		PAC:         "Club for Growth",
		Stance:      "Supports",
		Candidate:   "Doe, Jane",
		District:    "CA25",
		Amount:      "5000",
		Note:        "Media Buy",
		Party:       "D",
		Payee:       "Big Media LLC",
		Date:        "2024-03-10",
		Origin:      "FEC",
		Source:      "https://docquery.fec.gov/24960312345",
	}
}

func opposeEntry() feed.Entry {
	return feed.Entry{
		CommitteeID: "C00495861",
		PAC:         "America Votes",
		Stance:      "Opposes",
		Candidate:   "Smith, John",
		District:    "TX10",
		Amount:      "9000",
		Note:        "Phone Calls",
		Party:       "R",
		Payee:       "Callbank Inc",
		Date:        "2024-03-09",
		Origin:      "FEC",
		Source:      "https://docquery.fec.gov/24960399999",
	}
}

// asRecord converts an entry into its ledger form with the given capture
// time, guaranteeing the identity matches what the pipeline would compute.
func (s *PipelineSuite) asRecord(entry feed.Entry, seenAt time.Time) records.Expenditure {
	normalized := feed.Normalize([]feed.Entry{entry})
	s.Require().Len(normalized, 1)
	rec := normalized[0]
	rec.SeenAt = seenAt
	return rec
}

func (s *PipelineSuite) captureSave(saved *[]records.Expenditure) *gomock.Call {
	return s.ledger.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ledger []records.Expenditure) error {
			*saved = ledger
			return nil
		})
}

func (s *PipelineSuite) TestNew() {
	s.Run("nil feed source returns error", func() {
		_, err := New(nil, s.ledger, s.dispatcher, Options{})
		s.Error(err)
		s.Contains(err.Error(), "feed source is required")
	})

	s.Run("nil ledger returns error", func() {
		_, err := New(s.source, nil, s.dispatcher, Options{})
		s.Error(err)
		s.Contains(err.Error(), "ledger is required")
	})

	s.Run("nil dispatcher returns error", func() {
		_, err := New(s.source, s.ledger, nil, Options{})
		s.Error(err)
		s.Contains(err.Error(), "dispatcher is required")
	})

	s.Run("zero options get window and limit defaults", func() {
		p, err := New(s.source, s.ledger, s.dispatcher, Options{})
		s.Require().NoError(err)
		s.Equal(30, p.opts.WindowDays)
		s.Equal(280, p.opts.CharLimit)
	})
}

func (s *PipelineSuite) TestRunAnnouncesNewExpenditure() {
	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{houseEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), houseText).
		Return(notify.Delivery{ID: "175002", Attempts: 1}, nil)

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().NoError(err)

	s.Require().Len(saved, 1)
	s.Equal(s.now, saved[0].SeenAt)

	s.Equal(0, rep.LedgerLoaded)
	s.Equal(1, rep.Fetched)
	s.Equal(0, rep.Invalid)
	s.Equal(1, rep.New)
	s.Equal(1, rep.NewGroups)
	s.Equal(1, rep.LedgerSize)
	s.Equal(1, rep.Delivered)
	s.Equal(0, rep.DispatchFailed)
	s.Equal(s.now, rep.StartedAt)
	s.Equal(s.now, rep.FinishedAt)
	s.Empty(rep.Error)

	s.Require().Len(rep.Announcements, 1)
	s.Equal(OutcomeDelivered, rep.Announcements[0].Outcome)
	s.Equal("175002", rep.Announcements[0].PostID)
	s.Equal(1, rep.Announcements[0].Attempts)

	s.Equal([]time.Duration{5 * time.Second}, s.sleeps)
}

func (s *PipelineSuite) TestRunNothingNew() {
	known := s.asRecord(houseEntry(), s.now.AddDate(0, 0, -2))
	s.ledger.EXPECT().Load(gomock.Any()).Return([]records.Expenditure{known}, nil)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{houseEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().NoError(err)

	s.Require().Len(saved, 1)
	s.Equal(known.SeenAt, saved[0].SeenAt, "known record keeps its original capture time")

	s.Equal(1, rep.LedgerLoaded)
	s.Equal(0, rep.New)
	s.Equal(0, rep.NewGroups)
	s.Empty(rep.Announcements)
	s.Empty(s.sleeps)
}

func (s *PipelineSuite) TestRunDropsUnusableEntries() {
	missingAmount := houseEntry()
	missingAmount.Candidate = "Roe, Richard"
	missingAmount.Amount = "   "

	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).
		Return([]feed.Entry{houseEntry(), missingAmount}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), houseText).
		Return(notify.Delivery{ID: "1", Attempts: 1}, nil)

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().NoError(err)

	s.Len(saved, 1)
	s.Equal(2, rep.Fetched)
	s.Equal(1, rep.Invalid)
	s.Equal(1, rep.New)
}

func (s *PipelineSuite) TestRunReannouncesExpiredRecord() {
	// The filing left the window, was trimmed, and the feed still carries
	// it: it counts as new again and is re-announced.
	old := houseEntry()
	old.Date = "2024-01-01"
	expired := s.asRecord(old, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	s.ledger.EXPECT().Load(gomock.Any()).Return([]records.Expenditure{expired}, nil)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{old}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), houseText).
		Return(notify.Delivery{ID: "2", Attempts: 1}, nil)

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().NoError(err)

	s.Equal(1, rep.LedgerLoaded)
	s.Equal(1, rep.LedgerExpired)
	s.Equal(1, rep.New)
	s.Require().Len(saved, 1)
	s.Equal(s.now, saved[0].SeenAt, "re-surfaced record is stamped afresh")
}

func (s *PipelineSuite) TestRunLoadFailureIsFatal() {
	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, errors.New("redis down"))

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().Error(err)
	s.Contains(err.Error(), "load ledger")
	s.Require().NotNil(rep)
	s.Contains(rep.Error, "redis down")
}

func (s *PipelineSuite) TestRunFetchFailureIsFatal() {
	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).Return(nil, feed.ErrUnavailable)

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, feed.ErrUnavailable)
	s.Contains(rep.Error, "fetch feed")
}

func (s *PipelineSuite) TestRunSaveFailureIsFatal() {
	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{houseEntry()}, nil)
	s.ledger.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("bucket gone"))

	_, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().Error(err)
	s.Contains(err.Error(), "save ledger")
}

func (s *PipelineSuite) TestRunDispatchFailureSkipsRow() {
	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).
		Return([]feed.Entry{houseEntry(), opposeEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)

	// Older filing announces first and exhausts its retries; the next row
	// still goes out and the run still succeeds.
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), opposeText).
		Return(notify.Delivery{Attempts: 2}, errors.New("dispatch failed after 2 attempts: 500"))
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), houseText).
		Return(notify.Delivery{ID: "175003", Attempts: 1}, nil)

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().NoError(err)

	s.Len(saved, 2, "failed announcements are still recorded")
	s.Equal(1, rep.Delivered)
	s.Equal(1, rep.DispatchFailed)
	s.Require().Len(rep.Announcements, 2)
	s.Equal(OutcomeFailed, rep.Announcements[0].Outcome)
	s.Equal(2, rep.Announcements[0].Attempts)
	s.Contains(rep.Announcements[0].Error, "500")
	s.Equal(OutcomeDelivered, rep.Announcements[1].Outcome)
	s.Len(s.sleeps, 2, "the pause follows failed dispatches too")
}

func (s *PipelineSuite) TestRunSkipsGroupsBelowThreshold() {
	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{houseEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)

	opts := testOptions()
	opts.MinReportAmount = decimal.NewFromInt(10000)
	rep, err := s.newPipeline(opts).Run(context.Background())
	s.Require().NoError(err)

	s.Len(saved, 1, "below-threshold records still enter the ledger")
	s.Equal(1, rep.BelowThreshold)
	s.Empty(rep.Announcements)
	s.Empty(s.sleeps)
}

func (s *PipelineSuite) TestRunAddsCumulativeClause() {
	prior := houseEntry()
	prior.Amount = "2500"
	prior.Note = "Phone Calls"
	prior.Date = "2024-03-01"
	known := s.asRecord(prior, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	s.ledger.EXPECT().Load(gomock.Any()).Return([]records.Expenditure{known}, nil)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{houseEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), cumulativeText).
		Return(notify.Delivery{ID: "3", Attempts: 1}, nil)

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().NoError(err)
	s.Len(saved, 2)
	s.Equal(1, rep.Delivered)
}

func (s *PipelineSuite) TestRunCumulativeDisabled() {
	prior := houseEntry()
	prior.Amount = "2500"
	prior.Note = "Phone Calls"
	prior.Date = "2024-03-01"
	known := s.asRecord(prior, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	s.ledger.EXPECT().Load(gomock.Any()).Return([]records.Expenditure{known}, nil)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{houseEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), houseText).
		Return(notify.Delivery{ID: "4", Attempts: 1}, nil)

	opts := testOptions()
	opts.Cumulative = false
	_, err := s.newPipeline(opts).Run(context.Background())
	s.Require().NoError(err)
}

func (s *PipelineSuite) TestRunRecordDisabled() {
	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{houseEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), houseText).
		Return(notify.Delivery{ID: "5", Attempts: 1}, nil)

	opts := testOptions()
	opts.Record = false
	rep, err := s.newPipeline(opts).Run(context.Background())
	s.Require().NoError(err)

	s.Empty(saved, "unrecorded runs save only the trimmed ledger")
	s.Equal(0, rep.LedgerSize)
	s.Equal(1, rep.New)
	s.Equal(1, rep.Delivered)
}

func (s *PipelineSuite) TestRunDryRun() {
	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).Return([]feed.Entry{houseEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)

	opts := testOptions()
	opts.Send = false
	rep, err := s.newPipeline(opts).Run(context.Background())
	s.Require().NoError(err)

	s.Require().Len(rep.Announcements, 1)
	s.Equal(OutcomeDryRun, rep.Announcements[0].Outcome)
	s.Equal(houseText, rep.Announcements[0].Text)
	s.Equal(0, rep.Delivered)
	s.Empty(s.sleeps, "dry runs do not pause")
}

func (s *PipelineSuite) TestRunRenderFailureSkipsRow() {
	mononym := opposeEntry()
	mononym.Candidate = "Madonna"

	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).
		Return([]feed.Entry{houseEntry(), mononym}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), houseText).
		Return(notify.Delivery{ID: "6", Attempts: 1}, nil)

	rep, err := s.newPipeline(testOptions()).Run(context.Background())
	s.Require().NoError(err)

	s.Len(saved, 2, "unrenderable records are still recorded")
	s.Equal(1, rep.RenderFailed)
	s.Equal(1, rep.Delivered)
	s.Require().Len(rep.Announcements, 1)
	s.Equal(OutcomeDelivered, rep.Announcements[0].Outcome)
}

func (s *PipelineSuite) TestRunStopsWhenCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.ledger.EXPECT().Load(gomock.Any()).Return(nil, store.ErrNotExist)
	s.source.EXPECT().Fetch(gomock.Any()).
		Return([]feed.Entry{houseEntry(), opposeEntry()}, nil)
	var saved []records.Expenditure
	s.captureSave(&saved)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), opposeText).
		DoAndReturn(func(ctx context.Context, _ string) (notify.Delivery, error) {
			cancel()
			return notify.Delivery{Attempts: 1}, ctx.Err()
		})

	rep, err := s.newPipeline(testOptions()).Run(ctx)
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
	s.Len(saved, 2, "the ledger was already saved before announcing")
	s.NotEmpty(rep.Error)
}
