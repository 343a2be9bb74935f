package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func docColumns() []string {
	return []string{
		"id", "original_filename", "mime_type", "size_bytes", "raw_content",
		"extracted_text", "status", "processing", "uploaded_at", "analyzed_at",
	}
}

func TestPGRepoCreateInsertsRow(t *testing.T) {
	db, mock := newMock(t)
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("abc", "lease.pdf", "application/pdf", int64(10), []byte("raw"), "text", StatusUploaded, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), Document{
		ID:               "abc",
		OriginalFilename: "lease.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        10,
		RawContent:       []byte("raw"),
		ExtractedText:    "text",
		UploadedAt:       now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetUnmarshalsProcessing(t *testing.T) {
	db, mock := newMock(t)
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	payload, _ := json.Marshal(Processing{DocumentType: "lease", Confidence: 0.9})
	rows := sqlmock.NewRows(docColumns()).
		AddRow("abc", "lease.pdf", "application/pdf", int64(10), []byte("raw"),
			"text", StatusAnalyzed, payload, now, now)

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("abc").
		WillReturnRows(rows)

	doc, err := repo.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Processing == nil || doc.Processing.DocumentType != "lease" {
		t.Fatalf("expected processing to round-trip, got %+v", doc.Processing)
	}
	if doc.AnalyzedAt == nil {
		t.Fatal("expected analyzed_at to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetMissingReturnsNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoAttachProcessingWinner(t *testing.T) {
	db, mock := newMock(t)
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AttachProcessing(context.Background(), "abc", Processing{DocumentType: "lease"}, now)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoAttachProcessingSecondWriterLoses(t *testing.T) {
	db, mock := newMock(t)
	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE documents").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.AttachProcessing(context.Background(), "abc", Processing{}, time.Now().UTC())
	if !errors.Is(err, ErrAlreadyAnalyzed) {
		t.Fatalf("expected ErrAlreadyAnalyzed, got %v", err)
	}
}

func TestPGRepoAttachProcessingUnknownID(t *testing.T) {
	db, mock := newMock(t)
	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE documents").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.AttachProcessing(context.Background(), "ghost", Processing{}, time.Now().UTC())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoSetStatusOnAnalyzedDocument(t *testing.T) {
	db, mock := newMock(t)
	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE documents").
		WithArgs("abc", StatusValidating).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.SetStatus(context.Background(), "abc", StatusValidating)
	if !errors.Is(err, ErrAlreadyAnalyzed) {
		t.Fatalf("expected ErrAlreadyAnalyzed, got %v", err)
	}
}

func TestPGRepoListScansAllRows(t *testing.T) {
	db, mock := newMock(t)
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows(docColumns()).
		AddRow("a", "a.pdf", "application/pdf", int64(1), []byte{}, "t", StatusUploaded, nil, now, nil).
		AddRow("b", "b.pdf", "application/pdf", int64(2), []byte{}, "t", StatusUploaded, nil, now, nil)

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs(10, 0).
		WillReturnRows(rows)

	docs, err := repo.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Processing != nil {
		t.Fatalf("expected nil processing for unanalyzed row, got %+v", docs[0].Processing)
	}
}
