package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErr(code string) error {
	return &pgconn.PgError{Code: code, Message: "synthetic"}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", pgErr("40001"), true},
		{"deadlock", pgErr("40P01"), true},
		{"connection does not exist", pgErr("08003"), true},
		{"too many connections", pgErr("53300"), true},
		{"admin shutdown", pgErr("57P01"), true},
		{"unique violation", pgErr("23505"), false},
		{"bad text representation", pgErr("22P02"), false},
		{"context deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("round: %w", context.DeadlineExceeded), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unique violation", pgErr("23505"), true},
		{"foreign key violation", pgErr("23503"), true},
		{"check violation", pgErr("23514"), true},
		{"bad text representation", pgErr("22P02"), true},
		{"undefined table", pgErr("42P01"), true},
		{"serialization failure", pgErr("40001"), false},
		{"connection failure", pgErr("08006"), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransientAndPermanentDisjoint(t *testing.T) {
	codes := []string{"40001", "40P01", "08000", "08003", "08006", "53300", "57P01",
		"23505", "23503", "23514", "22P02", "26000", "42P01", "42703"}
	for _, code := range codes {
		err := pgErr(code)
		if IsTransient(err) && IsPermanent(err) {
			t.Errorf("code %s classified both transient and permanent", code)
		}
	}
}
