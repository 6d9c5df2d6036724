package store

import (
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})

	return New(db), mock
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

var testTime = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

var eventTestColumns = []string{
	"id", "host_id", "title", "description", "event_date", "end_date", "location", "wines_theme",
	"price", "max_attendees", "status", "is_recurring", "recurrence_count", "series_id",
	"created_at", "updated_at",
}

func eventRowValues(id, hostID, status string, price any) []driver.Value {
	return []driver.Value{
		id, hostID, "Tasting", nil, testTime, nil, nil, nil,
		price, nil, status, false, nil, nil,
		testTime, testTime,
	}
}
