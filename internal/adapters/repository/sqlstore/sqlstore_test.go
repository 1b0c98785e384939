package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/okian/teamalloc/internal/adapters/repository"
	"github.com/okian/teamalloc/internal/adapters/repository/sqlstore"
	"github.com/okian/teamalloc/internal/adapters/repository/storetest"
	. "github.com/smartystreets/goconvey/convey"
)

var dbSeq atomic.Int64

func openSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:teamalloc-%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := sqlstore.Open(sqlstore.Config{Dialect: sqlstore.SQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background(), ""); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return openSQLite(t)
	})
}

func TestOpen(t *testing.T) {
	Convey("Given an unknown dialect", t, func() {
		_, err := sqlstore.Open(sqlstore.Config{Dialect: "oracle"})

		Convey("Then Open refuses it", func() {
			So(errors.Is(err, sqlstore.ErrUnsupportedDialect), ShouldBeTrue)
		})
	})

	Convey("Given an existing schema", t, func() {
		s := openSQLite(t)

		Convey("Then migrating again is a no-op", func() {
			So(s.Migrate(context.Background(), ""), ShouldBeNil)
		})
	})
}
