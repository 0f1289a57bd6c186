//go:build !integration

package postgres

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgconn"
)

func TestDBError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type json"}
	err := dbError("update settings", 42, pgErr)
	if !errors.Is(err, pgErr) {
		t.Fatal("driver error must stay unwrappable")
	}
	if !strings.Contains(err.Error(), "sqlstate 22P02") || !strings.Contains(err.Error(), "tg 42") {
		t.Fatalf("message = %q", err.Error())
	}

	plain := errors.New("conn reset")
	if err := dbError("get settings", 1, plain); !errors.Is(err, plain) || strings.Contains(err.Error(), "sqlstate") {
		t.Fatalf("plain error = %v", err)
	}
}
