package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edirooss/streamrec/internal/domain/recording"
	"go.uber.org/zap"
)

const (
	recordedDir  = "recorded"
	processedDir = "processed"
)

// RecordingStore is a read-mostly view of the recordings tree:
//
//	<root>/recorded/<channel>/<file>.mp4   raw capture
//	<root>/processed/<channel>/<file>.mp4  transcoded copy
//
// It never writes file contents; the recorder owns that.
type RecordingStore struct {
	log     *zap.Logger
	root    string
	readDir func(name string) ([]fs.DirEntry, error)
}

// NewRecordingStore roots a store at dir.
func NewRecordingStore(log *zap.Logger, root string) *RecordingStore {
	return &RecordingStore{
		log:     log.Named("recordings"),
		root:    root,
		readDir: os.ReadDir,
	}
}

// EnsureDirs creates the recorded and processed top-level directories.
func (s *RecordingStore) EnsureDirs() error {
	for _, d := range []string{recordedDir, processedDir} {
		if err := os.MkdirAll(filepath.Join(s.root, d), 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", d, err)
		}
	}
	return nil
}

func (s *RecordingStore) ChannelDir(channel string) string {
	return filepath.Join(s.root, recordedDir, channel)
}

func (s *RecordingStore) ProcessedChannelDir(channel string) string {
	return filepath.Join(s.root, processedDir, channel)
}

func (s *RecordingStore) RawPath(channel, file string) string {
	return filepath.Join(s.ChannelDir(channel), file)
}

func (s *RecordingStore) ProcessedPath(channel, file string) string {
	return filepath.Join(s.ProcessedChannelDir(channel), file)
}

// List returns every recording grouped by channel, each group ordered by
// filename (which is creation order). Stray files at either level are
// skipped. A missing recorded directory yields an empty map.
func (s *RecordingStore) List() (map[string][]recording.Recording, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, recordedDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]recording.Recording{}, nil
		}
		return nil, fmt.Errorf("read recorded dir: %w", err)
	}

	out := make(map[string][]recording.Recording, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		recs, err := s.ListChannel(e.Name())
		if err != nil {
			// One bad channel must not hide the others.
			s.log.Warn("skipping unreadable channel", zap.String("channel", e.Name()), zap.Error(err))
			continue
		}
		out[e.Name()] = recs
	}
	return out, nil
}

// ListChannel returns the recordings of one channel, ordered by filename.
func (s *RecordingStore) ListChannel(channel string) ([]recording.Recording, error) {
	entries, err := s.readDir(s.ChannelDir(channel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read channel dir %s: %w", channel, err)
	}

	recs := make([]recording.Recording, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if recording.ValidateFilename(name) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Stat.
			s.log.Debug("skipping vanished entry", zap.String("channel", channel), zap.String("file", name), zap.Error(err))
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		rec := recording.Recording{
			Channel: channel,
			Path:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			SizeMB:  toMB(info.Size()),
		}
		if pinfo, err := os.Stat(s.ProcessedPath(channel, name)); err == nil && pinfo.Mode().IsRegular() {
			rec.Processed = true
			rec.SizeMB = toMB(pinfo.Size())
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Path < recs[j].Path })
	return recs, nil
}

// Latest returns the newest recording of channel by filename.
func (s *RecordingStore) Latest(channel string) (recording.Recording, bool, error) {
	recs, err := s.ListChannel(channel)
	if err != nil || len(recs) == 0 {
		return recording.Recording{}, false, err
	}
	return recs[len(recs)-1], true, nil
}

// Exists reports whether the raw file is present.
func (s *RecordingStore) Exists(channel, file string) (bool, error) {
	info, err := os.Stat(s.RawPath(channel, file))
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func toMB(n int64) float64 {
	mb := float64(n) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
