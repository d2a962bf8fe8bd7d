package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/tdhoang/authcore/internal/apperror"
	"github.com/tdhoang/authcore/internal/model"
)

func TestWebpageGetByKey(t *testing.T) {
	db := newTestDB(t)
	w := db.Webpages()

	page := &model.Webpage{Key: "dashboard", URL: "https://app.example.com/dashboard", Name: "Dashboard"}
	if err := w.Create(context.Background(), page); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := w.GetByKey(context.Background(), "dashboard")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if got.URL != page.URL {
		t.Errorf("URL = %q, want %q", got.URL, page.URL)
	}
}

func TestWebpageGetByKey_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Webpages().GetByKey(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByKey() error = %v, want ErrNotFound", err)
	}
}

func TestWebpageCreate_DuplicateKey(t *testing.T) {
	db := newTestDB(t)
	w := db.Webpages()

	if err := w.Create(context.Background(), &model.Webpage{Key: "home", URL: "https://x"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.Create(context.Background(), &model.Webpage{Key: "home", URL: "https://y"}); err == nil {
		t.Fatal("Create() should fail on duplicate key")
	}
}
