// Package storage archives processed documents and their reports in S3.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/wellrag/internal/domain"
)

// ObjectStore is the subset of S3Client the archive needs.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

type presigner interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// Archive keys objects by the SHA-256 of the source document, so re-processing
// the same file overwrites its previous report.
type Archive struct {
	objects ObjectStore
}

func NewArchive(objects ObjectStore) *Archive {
	return &Archive{objects: objects}
}

// Digest returns the hex SHA-256 of a document.
func Digest(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}

func DocumentKey(digest string) string {
	return "documents/" + digest + ".pdf"
}

func ReportKey(digest string) string {
	return "reports/" + digest + ".json"
}

// ArchivedReport is the stored form of a processed document.
type ArchivedReport struct {
	Source  string            `json:"source"`
	Digest  string            `json:"digest"`
	Report  domain.WellReport `json:"report"`
	Summary any               `json:"summary,omitempty"`
}

// Store uploads the document and its report and returns the digest.
func (a *Archive) Store(ctx context.Context, source string, document []byte, report domain.WellReport, summary any) (string, error) {
	digest := Digest(document)

	if err := a.objects.PutObject(ctx, DocumentKey(digest), "application/pdf", document); err != nil {
		return "", fmt.Errorf("archive document: %w", err)
	}

	body, err := json.Marshal(ArchivedReport{Source: source, Digest: digest, Report: report, Summary: summary})
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := a.objects.PutObject(ctx, ReportKey(digest), "application/json", body); err != nil {
		return "", fmt.Errorf("archive report: %w", err)
	}

	return digest, nil
}

// ValidDigest reports whether s looks like a hex SHA-256 digest.
func ValidDigest(s string) bool {
	if len(s) != 2*sha256.Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Report loads a previously archived report. A malformed or unknown digest
// yields domain.ErrReportNotFound; any other object store failure yields
// domain.ErrArchiveUnavailable.
func (a *Archive) Report(ctx context.Context, digest string) (*ArchivedReport, error) {
	if !ValidDigest(digest) {
		return nil, domain.Wrap(domain.ErrReportNotFound, fmt.Errorf("malformed digest %q", digest))
	}

	body, err := a.objects.GetObject(ctx, ReportKey(digest))
	if errors.Is(err, ErrObjectNotFound) {
		return nil, domain.Wrap(domain.ErrReportNotFound, err)
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrArchiveUnavailable, fmt.Errorf("load report %s: %w", digest, err))
	}

	var out ArchivedReport
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", digest, err)
	}
	return &out, nil
}

// DocumentURL returns a time-limited download link for an archived document.
func (a *Archive) DocumentURL(ctx context.Context, digest string) (string, error) {
	p, ok := a.objects.(presigner)
	if !ok {
		return "", errors.New("object store cannot presign URLs")
	}
	return p.GenerateDownloadURL(ctx, DocumentKey(digest))
}
