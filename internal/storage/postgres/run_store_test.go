package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

func TestRecordRunInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec, err := NewRunRecorderWithPool(mock, "")
	require.NoError(t, err)

	submitted := time.Unix(1700000000, 0).UTC()
	finished := submitted.Add(90 * time.Second)
	run := venue.Run{
		ID:         "run-1",
		Request:    venue.Request{RecordID: "rec1", VenueURL: "https://v.example.com"},
		State:      venue.RunStateSucceeded,
		Kind:       "SUCCESS",
		StatusLine: "SUCCESS|4200|3+1|venue_site,CB",
		Chars:      4200,
		Pages:      3,
		Listings:   1,
		Sources:    []string{"venue_site", "CB"},
		Language:   "eng",
		Submitted:  submitted,
		Finished:   &finished,
	}

	mock.ExpectExec("INSERT INTO venue_runs").
		WithArgs(
			"run-1",
			"rec1",
			"https://v.example.com",
			"succeeded",
			"SUCCESS",
			run.StatusLine,
			4200,
			3,
			1,
			[]byte(`["venue_site","CB"]`),
			"eng",
			false,
			submitted,
			&finished,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, rec.RecordRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunPropagatesErrors(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec, err := NewRunRecorderWithPool(mock, "audit_runs")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO audit_runs").WillReturnError(errors.New("connection lost"))
	err = rec.RecordRun(context.Background(), venue.Run{ID: "run-2"})
	require.ErrorContains(t, err, "connection lost")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunValidation(t *testing.T) {
	t.Parallel()

	_, err := NewRunRecorderWithPool(nil, "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewRunRecorderWithPool(mock, "runs; DROP TABLE x")
	require.Error(t, err)

	rec, err := NewRunRecorderWithPool(mock, "")
	require.NoError(t, err)
	require.Error(t, rec.RecordRun(context.Background(), venue.Run{}))

	var nilRec *RunRecorder
	require.Error(t, nilRec.RecordRun(context.Background(), venue.Run{ID: "x"}))
	nilRec.Close()
}
