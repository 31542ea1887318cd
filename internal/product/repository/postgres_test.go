package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var columns = []string{"id", "name", "sku", "price", "stock", "in_stock", "is_active", "updated_at"}

func TestFindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPGRepository(sqlx.NewDb(db, "pgx"))
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM products WHERE id").WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p1", "Mug", "MUG-1", "12.50", 7, true, true, at))
	p, err := repo.FindByID(context.Background(), "p1")
	if err != nil || p == nil {
		t.Fatalf("find: %v %v", p, err)
	}
	if p.Stock != 7 || p.Price.StringFixed(2) != "12.50" {
		t.Fatalf("unexpected product %+v", p)
	}

	mock.ExpectQuery("FROM products WHERE id").WithArgs("ghost").WillReturnRows(sqlmock.NewRows(columns))
	p, err = repo.FindByID(context.Background(), "ghost")
	if err != nil || p != nil {
		t.Fatalf("expected nil, nil; got %v, %v", p, err)
	}
}

func TestListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPGRepository(sqlx.NewDb(db, "pgx"))
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("WHERE is_active = TRUE ORDER BY created_at, id").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("p1", "Mug", "MUG-1", "12.50", 7, true, true, at).
			AddRow("p2", "Cap", "CAP-1", "5", 0, false, true, at))
	items, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[1].InStock {
		t.Fatalf("unexpected items %+v", items)
	}
}
