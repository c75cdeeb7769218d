package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// The digital EP and its backing storage layout. Access is checked against
// the catalog product id; files live in a private bucket and are only ever
// served through presigned URLs.
const (
	LitProductID = "f67a66b8-59a0-413f-b943-8fbb9cdee876"

	litBucket      = "LIT"
	litDownloadZip = "ThaMyind - LIT EP.zip"
)

// litTracks is the fixed ordered track list of the EP bucket.
var litTracks = []string{
	"1. L.I.T. ( Living In Truth).mp3",
	"2. G. O. D.mp3",
	"3. Victory In the Valley.wav",
	"4. Tired.mp3",
	"5. Let Him Cook.mp3",
	"6. Faith.mp3",
}

// Expiry windows. Downloads are one-shot so the window is short; a streaming
// playlist has to survive a full listening session.
const (
	downloadExpiry = 1 * time.Hour
	streamExpiry   = 2 * time.Hour
)

var (
	// ErrAccessDenied is deliberately uninformative: it must not reveal
	// whether the product exists.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotAvailable means the product has no downloadable asset mapped.
	ErrNotAvailable = errors.New("download not available for this product")
)

// AccessStore re-checks grant existence. This is a second, independent
// authorization check, separate from whatever authenticated the caller.
type AccessStore interface {
	HasAccess(ctx context.Context, userID, productID string) (bool, error)
}

// URLSigner abstracts the presigner so tests can substitute a fake.
type URLSigner interface {
	SignedGetURL(ctx context.Context, bucket, objectKey string, expiry time.Duration) (string, error)
}

// TrackURL is one streaming playlist entry. URL is empty when signing failed
// for that track; Error carries the per-track message.
type TrackURL struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Error    string `json:"error,omitempty"`
}

// Service issues signed content URLs to entitled users.
type Service struct {
	store  AccessStore
	signer URLSigner
}

func NewService(store AccessStore, signer URLSigner) *Service {
	return &Service{store: store, signer: signer}
}

// GetDownloadURL returns a short-lived download link for a product the user
// holds a grant for.
func (s *Service) GetDownloadURL(ctx context.Context, userID, productID string) (string, error) {
	ok, err := s.store.HasAccess(ctx, userID, productID)
	if err != nil {
		fiberlog.Errorf("[Delivery] access check failed for user %s: %v", userID, err)
		return "", ErrAccessDenied
	}
	if !ok {
		return "", ErrAccessDenied
	}

	bucket, objectKey, found := downloadObjectFor(productID)
	if !found {
		return "", ErrNotAvailable
	}

	signedURL, err := s.signer.SignedGetURL(ctx, bucket, objectKey, downloadExpiry)
	if err != nil {
		return "", fmt.Errorf("error generating download link: %w", err)
	}
	return signedURL, nil
}

// GetStreamURLs returns signed URLs for the full EP track list. A track whose
// signing fails is reported in place rather than failing the playlist.
func (s *Service) GetStreamURLs(ctx context.Context, userID string) ([]TrackURL, error) {
	ok, err := s.store.HasAccess(ctx, userID, LitProductID)
	if err != nil {
		fiberlog.Errorf("[Delivery] access check failed for user %s: %v", userID, err)
		return nil, ErrAccessDenied
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	tracks := make([]TrackURL, 0, len(litTracks))
	for _, fileName := range litTracks {
		entry := TrackURL{FileName: fileName}
		signedURL, err := s.signer.SignedGetURL(ctx, litBucket, fileName, streamExpiry)
		if err != nil {
			fiberlog.Warnf("[Delivery] presign failed for %s: %v", fileName, err)
			entry.Error = err.Error()
		} else {
			entry.URL = signedURL
		}
		tracks = append(tracks, entry)
	}
	return tracks, nil
}

// downloadObjectFor maps a product id to its backing zip. Only the EP has a
// single-file download today.
func downloadObjectFor(productID string) (bucket, objectKey string, found bool) {
	if productID == LitProductID {
		return litBucket, litDownloadZip, true
	}
	return "", "", false
}
