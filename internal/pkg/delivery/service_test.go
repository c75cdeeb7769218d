package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	grants map[string]bool
	err    error
}

func (f *fakeStore) HasAccess(ctx context.Context, userID, productID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.grants[userID+"/"+productID], nil
}

type fakeSigner struct {
	failFor map[string]bool
	calls   []string
}

func (f *fakeSigner) SignedGetURL(ctx context.Context, bucket, objectKey string, expiry time.Duration) (string, error) {
	f.calls = append(f.calls, objectKey)
	if f.failFor[objectKey] {
		return "", errors.New("presign refused")
	}
	return fmt.Sprintf("https://storage.example/%s/%s?exp=%d", bucket, objectKey, int(expiry.Seconds())), nil
}

func TestGetDownloadURLGranted(t *testing.T) {
	store := &fakeStore{grants: map[string]bool{"user_1/" + LitProductID: true}}
	signer := &fakeSigner{}
	svc := NewService(store, signer)

	url, err := svc.GetDownloadURL(context.Background(), "user_1", LitProductID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(url, "LIT") || !strings.Contains(url, "exp=3600") {
		t.Fatalf("unexpected signed url %q", url)
	}
}

func TestGetDownloadURLDeniedWithoutGrant(t *testing.T) {
	svc := NewService(&fakeStore{grants: map[string]bool{}}, &fakeSigner{})

	if _, err := svc.GetDownloadURL(context.Background(), "user_1", LitProductID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestGetDownloadURLDeniedOnStoreError(t *testing.T) {
	// A failing access check must deny, never fall open.
	svc := NewService(&fakeStore{err: errors.New("db down")}, &fakeSigner{})

	if _, err := svc.GetDownloadURL(context.Background(), "user_1", LitProductID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestGetDownloadURLUnknownProduct(t *testing.T) {
	store := &fakeStore{grants: map[string]bool{"user_1/other-product": true}}
	svc := NewService(store, &fakeSigner{})

	if _, err := svc.GetDownloadURL(context.Background(), "user_1", "other-product"); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}
}

func TestGetStreamURLsFullPlaylist(t *testing.T) {
	store := &fakeStore{grants: map[string]bool{"user_1/" + LitProductID: true}}
	signer := &fakeSigner{}
	svc := NewService(store, signer)

	tracks, err := svc.GetStreamURLs(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != len(litTracks) {
		t.Fatalf("expected %d tracks, got %d", len(litTracks), len(tracks))
	}
	for i, track := range tracks {
		if track.FileName != litTracks[i] {
			t.Fatalf("track %d = %q, want %q", i, track.FileName, litTracks[i])
		}
		if track.URL == "" || track.Error != "" {
			t.Fatalf("track %d not signed: %+v", i, track)
		}
		if !strings.Contains(track.URL, "exp=7200") {
			t.Fatalf("track %d uses wrong expiry: %q", i, track.URL)
		}
	}
}

func TestGetStreamURLsPartialSigningFailure(t *testing.T) {
	store := &fakeStore{grants: map[string]bool{"user_1/" + LitProductID: true}}
	signer := &fakeSigner{failFor: map[string]bool{litTracks[2]: true}}
	svc := NewService(store, signer)

	tracks, err := svc.GetStreamURLs(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracks[2].Error == "" || tracks[2].URL != "" {
		t.Fatalf("failed track must carry error in place: %+v", tracks[2])
	}
	if tracks[0].URL == "" || tracks[5].URL == "" {
		t.Fatalf("other tracks must still be signed")
	}
}

func TestGetStreamURLsDenied(t *testing.T) {
	signer := &fakeSigner{}
	svc := NewService(&fakeStore{grants: map[string]bool{}}, signer)

	if _, err := svc.GetStreamURLs(context.Background(), "user_1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if len(signer.calls) != 0 {
		t.Fatalf("no URLs may be signed for a denied user")
	}
}
