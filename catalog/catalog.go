// Package catalog reads the local store of previously fetched videos.
// The fetch stage writes one <id>.info.json metadata file per video into the
// download directory, alongside the media file and an optional thumbnail.
// The catalog is read-only: records are immutable once written by the fetch
// stage, and enumeration is restartable on every run.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const infoSuffix = ".info.json"

// ErrMediaMissing indicates the media file for a video is absent from the
// local store.
var ErrMediaMissing = errors.New("catalog: media file missing")

// mediaExtensions are the container formats yt-dlp produces, in preference
// order when several exist for the same id.
var mediaExtensions = []string{".mp4", ".mkv", ".webm", ".m4a", ".mp3", ".opus"}

// thumbnailExtensions are the thumbnail formats yt-dlp writes.
var thumbnailExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// VideoRecord is one locally fetched video. LocalID is the stable source
// platform identifier and the primary key throughout.
type VideoRecord struct {
	// LocalID is the source platform video identifier.
	LocalID string
	// Title is the video title. May be empty, never meaningfully null.
	Title string
	// Description is the video description. May be empty.
	Description string
	// UploadDate is the original publication date. Zero when unknown.
	UploadDate time.Time
	// MediaPath is the downloaded media file. Empty when the media is missing.
	MediaPath string
	// ThumbnailPath is the downloaded thumbnail. Empty when none exists.
	ThumbnailPath string

	thumbOnce sync.Once
	thumbHash string
	thumbErr  error
}

// HasMedia reports whether the media file is present in the local store.
func (v *VideoRecord) HasMedia() bool { return v.MediaPath != "" }

// HasThumbnail reports whether a local thumbnail exists.
func (v *VideoRecord) HasThumbnail() bool { return v.ThumbnailPath != "" }

// ThumbnailHash returns the SHA-256 hex digest of the local thumbnail.
// Computed lazily on first use and cached for the record's lifetime.
func (v *VideoRecord) ThumbnailHash() (string, error) {
	v.thumbOnce.Do(func() {
		if v.ThumbnailPath == "" {
			v.thumbErr = fmt.Errorf("video %s has no thumbnail", v.LocalID)
			return
		}
		v.thumbHash, v.thumbErr = HashFile(v.ThumbnailPath)
	})
	return v.thumbHash, v.thumbErr
}

// infoJSON is the subset of yt-dlp metadata the mirror needs.
type infoJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UploadDate  string `json:"upload_date"`
}

// Reader enumerates VideoRecords from a download directory.
type Reader struct {
	// Dir is the download directory populated by the fetch stage.
	Dir string
}

// NewReader creates a catalog reader over the given download directory.
func NewReader(dir string) *Reader {
	return &Reader{Dir: dir}
}

// Videos scans the download directory and returns all fetched videos,
// ordered by LocalID for deterministic processing. Metadata files that
// cannot be parsed are skipped with a diagnostic.
func (r *Reader) Videos() ([]*VideoRecord, error) {
	matches, err := filepath.Glob(filepath.Join(r.Dir, "*"+infoSuffix))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r.Dir, err)
	}

	records := make([]*VideoRecord, 0, len(matches))
	for _, infoPath := range matches {
		record, err := r.readRecord(infoPath)
		if err != nil {
			log.Printf("catalog: skipping %s: %v", filepath.Base(infoPath), err)
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].LocalID < records[j].LocalID
	})
	return records, nil
}

// Video reads a single record by local id.
func (r *Reader) Video(localID string) (*VideoRecord, error) {
	return r.readRecord(filepath.Join(r.Dir, localID+infoSuffix))
}

func (r *Reader) readRecord(infoPath string) (*VideoRecord, error) {
	data, err := os.ReadFile(infoPath)
	if err != nil {
		return nil, err
	}

	var info infoJSON
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	// The filename is authoritative for the id; the JSON field is a
	// cross-check only.
	localID := strings.TrimSuffix(filepath.Base(infoPath), infoSuffix)
	if localID == "" {
		return nil, fmt.Errorf("empty video id")
	}
	if info.ID != "" && info.ID != localID {
		log.Printf("catalog: %s: metadata id %q differs from filename id %q", filepath.Base(infoPath), info.ID, localID)
	}

	record := &VideoRecord{
		LocalID:       localID,
		Title:         info.Title,
		Description:   info.Description,
		MediaPath:     r.findAsset(localID, mediaExtensions),
		ThumbnailPath: r.findAsset(localID, thumbnailExtensions),
	}

	if info.UploadDate != "" {
		if t, err := time.ParseInLocation("20060102", info.UploadDate, time.UTC); err == nil {
			record.UploadDate = t
		} else {
			log.Printf("catalog: %s: unparseable upload_date %q", localID, info.UploadDate)
		}
	}

	return record, nil
}

// findAsset returns the first existing <id><ext> file among exts.
func (r *Reader) findAsset(localID string, exts []string) string {
	for _, ext := range exts {
		path := filepath.Join(r.Dir, localID+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// HashFile returns the SHA-256 hex digest of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the SHA-256 hex digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
