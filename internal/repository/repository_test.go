package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

var (
	testNow = time.Date(2024, 12, 18, 10, 0, 0, 0, time.UTC)

	seatCols = []string{"show_id", "seat_id", "row_label", "col_no", "section", "status",
		"hold_id", "hold_expires_at", "booking_id", "version"}
	holdCols = []string{"id", "show_id", "holder_id", "status", "subtotal", "convenience_fee",
		"tax", "total", "quote_lines", "expires_at", "created_at"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func dupErr(index string) error {
	return &mysql.MySQLError{Number: mysqlDuplicateEntry, Message: "Duplicate entry 'x' for key 'shows." + index + "'"}
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(dupErr(slotIndex), slotIndex))
	assert.True(t, isDuplicateKey(dupErr(slotIndex), ""))
	assert.False(t, isDuplicateKey(dupErr("other"), slotIndex))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213}, ""))
	assert.False(t, isDuplicateKey(errors.New("boom"), ""))
}

func TestSlotKeyOnlyWhileOccupying(t *testing.T) {
	s := &model.Show{TheatreID: 1, ScreenNumber: 2, ShowDate: "2024-12-20", ShowTime: "18:30", Status: model.ShowActive}
	k := slotKey(s)
	assert.True(t, k.Valid)
	assert.Equal(t, "1:2:2024-12-20:18:30", k.String)

	s.Status = model.ShowCancelled
	assert.False(t, slotKey(s).Valid)
}

func TestShowRepoCreateMapsSlotConflict(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO shows").WillReturnError(dupErr(slotIndex))

	s := &model.Show{TheatreID: 1, MovieID: 1, ScreenNumber: 1, ShowDate: "2024-12-20", ShowTime: "18:30", Status: model.ShowActive}
	err := NewShowRepo(db).Create(context.Background(), s)
	assert.ErrorIs(t, err, apperr.ErrScheduleConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepoUpdateStaleAndMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	s := &model.Show{ID: 3, Status: model.ShowActive, Version: 1}

	mock.ExpectExec("UPDATE shows SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM shows WHERE id = \?`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	assert.ErrorIs(t, repo.Update(context.Background(), s), apperr.ErrStaleWrite)
	assert.Equal(t, uint32(1), s.Version)

	mock.ExpectExec("UPDATE shows SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM shows WHERE id = \?`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	assert.ErrorIs(t, repo.Update(context.Background(), s), apperr.ErrNotFound)

	mock.ExpectExec("UPDATE shows SET").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), s))
	assert.Equal(t, uint32(2), s.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepoListBuildsFilter(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "theatre_id", "movie_id", "screen_number", "show_date", "show_time",
		"format", "language", "subtitles", "audio_format", "price_normal", "price_premium",
		"price_recliner", "total_seats", "layout", "status", "notes", "created_by", "version",
		"created_at", "updated_at"}
	rows := sqlmock.NewRows(cols).AddRow(9, 1, 1, 2, "2024-12-20", "18:30", "2D", "English", false,
		"Standard", 200, 0, 0, 32, []byte(`[{"section":"normal","rows":2,"columns":16}]`), "active",
		"", "partner-1", 1, testNow, testNow)
	mock.ExpectQuery(`FROM shows WHERE movie_id = \? AND show_date >= \? AND status IN \(\?, \?\) ORDER BY show_date, show_time, id LIMIT \?`).
		WithArgs(1, "2024-12-18", "active", "housefull", 5).
		WillReturnRows(rows)

	shows, err := NewShowRepo(db).List(context.Background(), service.ShowFilter{
		MovieID:  1,
		DateFrom: "2024-12-18",
		Statuses: []model.ShowStatus{model.ShowActive, model.ShowHousefull},
		Limit:    5,
	})
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, uint64(9), shows[0].ID)
	assert.Equal(t, model.ShowActive, shows[0].Status)
	assert.Equal(t, model.Format2D, shows[0].Format)
	require.Len(t, shows[0].Layout, 1)
	assert.Equal(t, 32, shows[0].Layout[0].Seats())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTheatreRepoGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM theatres WHERE id = ").WithArgs(42).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewTheatreRepo(db).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTheatreRepoListSkipsDeleted(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM theatres WHERE deleted_at IS NULL AND status = \? AND owner_id = \? ORDER BY id`).
		WithArgs("approved", "partner-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, err := NewTheatreRepo(db).List(context.Background(), service.TheatreFilter{Status: model.TheatreApproved, OwnerID: "partner-1"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var theatreCols = []string{"id", "owner_id", "name", "address", "city", "state", "country",
	"pincode", "total_screens", "facilities", "phone", "email", "status", "rejection_reason",
	"approved_by", "approved_at", "rejected_by", "rejected_at", "deleted_at", "version",
	"created_at", "updated_at"}

func TestTheatreRepoReadsRejectionReviewer(t *testing.T) {
	db, mock := newMock(t)
	rejectedAt := testNow.Add(-time.Hour)
	mock.ExpectQuery("FROM theatres WHERE id = ").WithArgs(3).
		WillReturnRows(sqlmock.NewRows(theatreCols).AddRow(
			3, "partner-1", "PVR Phoenix", "Viman Nagar", "Pune", "", "", "",
			4, []byte(`{"parking":true}`), "+91 20 5555", "pvr@example.com", "rejected", "licence expired",
			"", nil, "admin-2", rejectedAt, nil, 5, testNow, testNow))

	th, err := NewTheatreRepo(db).GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, model.TheatreRejected, th.Status)
	assert.Empty(t, th.ApprovedBy)
	assert.Nil(t, th.ApprovedAt)
	assert.Equal(t, "admin-2", th.RejectedBy)
	require.NotNil(t, th.RejectedAt)
	assert.Equal(t, rejectedAt, *th.RejectedAt)
	assert.True(t, th.Facilities.Parking)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTheatreRepoUpdateWritesRejectionReviewer(t *testing.T) {
	db, mock := newMock(t)
	rejectedAt := testNow
	th := &model.Theatre{
		ID: 3, Name: "PVR Phoenix", Location: model.Location{Address: "Viman Nagar", City: "Pune"},
		TotalScreens: 4, Contact: model.Contact{Phone: "1", Email: "pvr@example.com"},
		Status: model.TheatreRejected, RejectionReason: "licence expired",
		RejectedBy: "admin-2", RejectedAt: &rejectedAt, Version: 5, UpdatedAt: testNow,
	}
	mock.ExpectExec(`UPDATE theatres SET .* approved_by = \?, approved_at = \?, rejected_by = \?,\s+rejected_at = \?, deleted_at = \?`).
		WithArgs("PVR Phoenix", "Viman Nagar", "Pune", "", "", "", 4, sqlmock.AnyArg(), "1", "pvr@example.com",
			"rejected", "licence expired", "", nil, "admin-2", rejectedAt, nil, testNow, 3, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewTheatreRepo(db).Update(context.Background(), th))
	assert.Equal(t, uint32(6), th.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceHoldRejectsTakenSeats(t *testing.T) {
	db, mock := newMock(t)
	later := testNow.Add(5 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM show_seats WHERE show_id = \? AND seat_id IN \(\?, \?\) ORDER BY seat_id FOR UPDATE`).
		WithArgs(1, "A1", "A2").
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(1, "A1", "A", 1, "normal", "held", "other", later, nil, 2).
			AddRow(1, "A2", "A", 2, "normal", "available", nil, nil, nil, 1))
	mock.ExpectRollback()

	h := &model.Hold{ID: "h1", ShowID: 1, HolderID: "u", SeatIDs: []string{"A1", "A2"}, ExpiresAt: later}
	err := NewInventoryRepo(db).PlaceHold(context.Background(), h, testNow)
	require.ErrorIs(t, err, apperr.ErrSeatUnavailable)
	assert.Equal(t, []string{"A1"}, apperr.UnavailableSeats(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceHoldUnknownSeat(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM show_seats WHERE show_id").
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(1, "A1", "A", 1, "normal", "available", nil, nil, nil, 1))
	mock.ExpectRollback()

	h := &model.Hold{ID: "h1", ShowID: 1, HolderID: "u", SeatIDs: []string{"A1", "Z9"}, ExpiresAt: testNow.Add(time.Minute)}
	err := NewInventoryRepo(db).PlaceHold(context.Background(), h, testNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceHoldTakesOverLapsedHold(t *testing.T) {
	db, mock := newMock(t)
	lapsed := testNow.Add(-time.Second)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM show_seats WHERE show_id").
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(1, "A1", "A", 1, "normal", "held", "old", lapsed, nil, 2))
	mock.ExpectExec("UPDATE show_seats SET status").WithArgs("available", "old", "held").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE holds SET status`).WithArgs("released", "old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE show_seats SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO holds").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	h := &model.Hold{ID: "new", ShowID: 1, HolderID: "u", SeatIDs: []string{"A1"}, ExpiresAt: testNow.Add(5 * time.Minute)}
	require.NoError(t, NewInventoryRepo(db).PlaceHold(context.Background(), h, testNow))
	assert.Equal(t, model.HoldActive, h.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func holdRow(status string, expires time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(holdCols).AddRow("h1", 1, "u", status, 400, 8, 73, 481,
		[]byte(`[{"seat_id":"A1","section":"normal","price":200},{"seat_id":"A2","section":"normal","price":200}]`),
		expires, testNow)
}

func TestReleaseHoldIgnoresFinishedHold(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM holds WHERE id = \? FOR UPDATE`).WithArgs("h1").
		WillReturnRows(holdRow("committed", testNow.Add(time.Minute)))
	mock.ExpectRollback()

	freed, err := NewInventoryRepo(db).ReleaseHold(context.Background(), "h1", testNow)
	require.NoError(t, err)
	assert.False(t, freed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitHoldExpiredReleasesSeats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM holds WHERE id = \? FOR UPDATE`).WithArgs("h1").
		WillReturnRows(holdRow("active", testNow.Add(-time.Minute)))
	mock.ExpectExec("UPDATE show_seats SET status").WithArgs("available", "h1", "held").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE holds SET status").WithArgs("released", "h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var b model.Booking
	err := NewInventoryRepo(db).CommitHold(context.Background(), "h1", &b, testNow)
	assert.ErrorIs(t, err, apperr.ErrHoldExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitHoldBooksSeats(t *testing.T) {
	db, mock := newMock(t)
	expires := testNow.Add(time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM holds WHERE id = \? FOR UPDATE`).WithArgs("h1").
		WillReturnRows(holdRow("active", expires))
	mock.ExpectQuery("FROM show_seats WHERE show_id").WithArgs(1, "A1", "A2").
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(1, "A1", "A", 1, "normal", "held", "h1", expires, nil, 2).
			AddRow(1, "A2", "A", 2, "normal", "held", "h1", expires, nil, 2))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO booking_seats").
		WithArgs(7, 1, "A1", 200, 7, 1, "A2", 200).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE show_seats SET status").WithArgs("booked", 7, "h1", "held").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE holds SET status").WithArgs("committed", "h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := model.Booking{PaymentRef: "pay-1"}
	require.NoError(t, NewInventoryRepo(db).CommitHold(context.Background(), "h1", &b, testNow))
	assert.Equal(t, uint64(7), b.ID)
	assert.Equal(t, []string{"A1", "A2"}, b.SeatIDs)
	assert.Equal(t, int64(481), b.Quote.Total)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, testNow, b.ConfirmedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitHoldSeatsTakenOver(t *testing.T) {
	db, mock := newMock(t)
	expires := testNow.Add(time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM holds WHERE id").WillReturnRows(holdRow("active", expires))
	mock.ExpectQuery("FROM show_seats WHERE show_id").
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(1, "A1", "A", 1, "normal", "held", "h1", expires, nil, 2).
			AddRow(1, "A2", "A", 2, "normal", "held", "h2", expires, nil, 3))
	mock.ExpectRollback()

	var b model.Booking
	err := NewInventoryRepo(db).CommitHold(context.Background(), "h1", &b, testNow)
	assert.ErrorIs(t, err, apperr.ErrHoldExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatsNormalizesLapsedHolds(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM show_seats WHERE show_id = \? ORDER BY seq`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(1, "A1", "A", 1, "normal", "held", "old", testNow.Add(-time.Second), nil, 2).
			AddRow(1, "A2", "A", 2, "normal", "booked", nil, nil, 4, 3))

	seats, err := NewInventoryRepo(db).Seats(context.Background(), 1, testNow)
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, model.SeatAvailable, seats[0].Status)
	assert.Empty(t, seats[0].HoldID)
	assert.Equal(t, model.SeatBooked, seats[1].Status)
	assert.Equal(t, uint64(4), seats[1].BookingID)
}

func TestSeatsUnknownShow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM show_seats").WillReturnRows(sqlmock.NewRows(seatCols))

	_, err := NewInventoryRepo(db).Seats(context.Background(), 99, testNow)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExpireHoldsSweepsLapsed(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT id FROM holds WHERE status").
		WithArgs("active", testNow, sweepBatch).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("h1"))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM holds WHERE id").WillReturnRows(holdRow("active", testNow.Add(-time.Minute)))
	mock.ExpectExec("UPDATE show_seats SET status").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE holds SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	shows, err := NewInventoryRepo(db).ExpireHolds(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, shows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
