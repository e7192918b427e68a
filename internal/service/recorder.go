package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edirooss/streamrec/internal/domain/recording"
	"github.com/edirooss/streamrec/internal/domain/setting"
	"github.com/edirooss/streamrec/internal/infrastructure/processmgr"
	"github.com/edirooss/streamrec/internal/repo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// StatusClient reports whether a channel is live.
type StatusClient interface {
	QueryStatus(ctx context.Context, channel string) (recording.Status, *recording.LiveInfo, error)
}

// CaptureHandle is one running capture. Err blocks until Done is closed.
type CaptureHandle interface {
	Running() bool
	Terminate()
	Done() <-chan struct{}
	Err() error
}

// CaptureSpawner launches captures. Spawn must not wait for the capture to
// finish.
type CaptureSpawner interface {
	Spawn(channel, outputPath string) (CaptureHandle, error)
}

// Transcoder remuxes src into dst. Cancelling ctx aborts the work.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

type RecorderDeps struct {
	Status     StatusClient
	Capture    CaptureSpawner
	Transcoder Transcoder
	Store      *repo.RecordingStore
	Settings   repo.SettingsStore
}

type RecorderOptions struct {
	// StartWait bounds how long Start waits for the capture output to appear.
	StartWait time.Duration
	StartPoll time.Duration
	// StopGrace bounds how long Stop waits for a terminated capture to exit.
	StopGrace time.Duration

	ReconcileInterval time.Duration
	// MinAge is how long a raw file must sit untouched before the
	// reconciliation loop processes it.
	MinAge time.Duration

	MaxConcurrentTranscodes int64
	StartConcurrency        int
}

func (o *RecorderOptions) setDefaults() {
	if o.StartWait <= 0 {
		o.StartWait = 5 * time.Second
	}
	if o.StartPoll <= 0 {
		o.StartPoll = 500 * time.Millisecond
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 500 * time.Millisecond
	}
	if o.ReconcileInterval <= 0 {
		o.ReconcileInterval = 10 * time.Second
	}
	if o.MinAge <= 0 {
		o.MinAge = 5 * time.Second
	}
	if o.MaxConcurrentTranscodes <= 0 {
		o.MaxConcurrentTranscodes = 2
	}
	if o.StartConcurrency <= 0 {
		o.StartConcurrency = 4
	}
}

// closeWait bounds how long Close waits for captures to exit.
const closeWait = 5 * time.Second

type activeRecording struct {
	handle    CaptureHandle
	file      string
	startedAt time.Time
}

// ActiveCapture is a snapshot of one running capture.
type ActiveCapture struct {
	Channel   string    `json:"channel"`
	File      string    `json:"file"`
	StartedAt time.Time `json:"started_at"`
}

// LoopStats describes the reconciliation loop. Starts-Stops is 1 while it
// runs and 0 otherwise.
type LoopStats struct {
	Running bool  `json:"running"`
	Starts  int64 `json:"starts"`
	Stops   int64 `json:"stops"`

	// Transcodes holding a slot, out of MaxTranscodes.
	Transcodes    int64 `json:"transcodes"`
	MaxTranscodes int64 `json:"max_transcodes"`
}

// Recorder owns the set of channels being captured and everything that
// happens to their recordings afterwards.
//
//   - mu guards active and pending. It is never held across a spawn, a status
//     query, a transcode or a sleep.
//   - pending reserves a channel while Start is between its check and its
//     registration, so two concurrent Starts cannot both win.
//   - loopMu serializes loop start/stop; at most one loop runs.
//   - transcodes pass through a SlotPool keyed by channel/file: one transcode
//     per file, a bounded number overall.
type Recorder struct {
	log  *zap.Logger
	deps RecorderDeps
	opts RecorderOptions
	now  func() time.Time

	mu      sync.Mutex
	active  map[string]*activeRecording
	pending map[string]struct{}

	transcodes *processmgr.SlotPool
	listing    singleflight.Group

	settingsMu sync.Mutex

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	loopStarts atomic.Int64
	loopStops  atomic.Int64

	closed atomic.Bool
}

// NewRecorder wires a Recorder and starts the reconciliation loop if
// auto-processing is enabled. A settings read failure is logged and treated
// as disabled.
func NewRecorder(log *zap.Logger, deps RecorderDeps, opts RecorderOptions) *Recorder {
	opts.setDefaults()
	r := &Recorder{
		log:        log.Named("recorder"),
		deps:       deps,
		opts:       opts,
		now:        time.Now,
		active:     make(map[string]*activeRecording),
		pending:    make(map[string]struct{}),
		transcodes: processmgr.NewSlotPool(opts.MaxConcurrentTranscodes),
	}

	if err := deps.Store.EnsureDirs(); err != nil {
		r.log.Warn("failed to create recording dirs", zap.Error(err))
	}

	on, err := r.autoProcess(context.Background())
	if err != nil {
		r.log.Warn("failed to read auto-process setting; assuming off", zap.Error(err))
	}
	if on {
		r.startLoop()
	}
	return r
}

// --- capture lifecycle ------------------------------------------------------

// Start begins capturing channel if it is live.
//
// Once the capture is spawned Start waits up to StartWait for the output file
// to appear and succeeds whether or not it did. The one exception is a
// capture that exits before writing anything, which is reported as a launch
// failure.
func (r *Recorder) Start(ctx context.Context, channel string) error {
	ch, err := recording.NormalizeChannel(channel)
	if err != nil {
		return newRecordingError(ErrInvalidRecording, channel, "", err)
	}
	log := r.log.With(zap.String("channel", ch))

	if r.closed.Load() {
		return newRecordingError(ErrCaptureLaunchFailed, ch, "", errors.New("recorder closed"))
	}
	if !r.reserve(ch) {
		return newRecordingError(ErrAlreadyRecording, ch, "", nil)
	}
	// Once registered the reservation is gone; a later Start may own pending[ch].
	registered := false
	defer func() {
		if !registered {
			r.unreserve(ch)
		}
	}()

	status, info, err := r.deps.Status.QueryStatus(ctx, ch)
	if status != recording.StatusOnline {
		if err == nil {
			err = fmt.Errorf("status %s", status)
		}
		log.Info("channel is not live", zap.Stringer("status", status), zap.Error(err))
		return newRecordingError(ErrNotStreaming, ch, "", err)
	}

	if err := os.MkdirAll(r.deps.Store.ChannelDir(ch), 0o755); err != nil {
		log.Error("failed to create channel dir", zap.Error(err))
		return newRecordingError(ErrCaptureLaunchFailed, ch, "", err)
	}

	title := ""
	if info != nil {
		title = info.Title
	}
	file, ok := r.freeFilename(ch, title)
	if !ok {
		log.Error("no free capture filename", zap.String("title", title))
		return newRecordingError(ErrCaptureLaunchFailed, ch, "", errors.New("no free filename"))
	}
	out := r.deps.Store.RawPath(ch, file)

	h, err := r.deps.Capture.Spawn(ch, out)
	if err != nil {
		log.Error("failed to spawn capture", zap.Error(err))
		return newRecordingError(ErrCaptureLaunchFailed, ch, "", err)
	}

	rec := &activeRecording{handle: h, file: file, startedAt: r.now()}
	if registered = r.register(ch, rec); !registered {
		h.Terminate()
		log.Warn("recorder closed during start; capture terminated", zap.String("file", file))
		return newRecordingError(ErrCaptureLaunchFailed, ch, "", errors.New("recorder closed"))
	}

	go r.watch(ch, rec)
	log.Info("capture started", zap.String("file", file))

	if !r.waitForOutput(h, out) {
		r.forget(ch, rec)
		log.Warn("capture exited before writing output", zap.String("file", file))
		return newRecordingError(ErrCaptureLaunchFailed, ch, "", errors.New("capture exited without output"))
	}
	return nil
}

// StartMany starts every channel independently. Blank and duplicate names
// are dropped. Failures are collected into a *BatchError in input order.
func (r *Recorder) StartMany(ctx context.Context, channels []string) error {
	seen := make(map[string]struct{}, len(channels))
	uniq := make([]string, 0, len(channels))
	for _, c := range channels {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		uniq = append(uniq, c)
	}

	errs := make([]error, len(uniq))
	var g errgroup.Group
	g.SetLimit(r.opts.StartConcurrency)
	for i, c := range uniq {
		g.Go(func() error {
			errs[i] = r.Start(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &BatchError{Errs: failed}
}

// Stop terminates the capture of channel and, with auto-processing on,
// processes its output before returning. A capture that has not exited
// within StopGrace is left for the reconciliation loop.
func (r *Recorder) Stop(ctx context.Context, channel string) error {
	ch, err := recording.NormalizeChannel(channel)
	if err != nil {
		return newRecordingError(ErrNotWatching, strings.TrimSpace(channel), "", err)
	}
	log := r.log.With(zap.String("channel", ch))

	r.mu.Lock()
	rec, ok := r.active[ch]
	if ok {
		delete(r.active, ch)
	}
	r.mu.Unlock()
	if !ok {
		return newRecordingError(ErrNotWatching, ch, "", nil)
	}

	rec.handle.Terminate()
	exited := true
	grace := time.NewTimer(r.opts.StopGrace)
	select {
	case <-rec.handle.Done():
	case <-grace.C:
		exited = false
	}
	grace.Stop()
	log.Info("capture stopped", zap.String("file", rec.file), zap.Duration("duration", r.now().Sub(rec.startedAt)))

	if !exited {
		// The file may still be growing; the loop picks it up once it settles.
		log.Warn("capture still exiting after grace; not processing", zap.Duration("grace", r.opts.StopGrace), zap.String("file", rec.file))
		return nil
	}

	on, err := r.autoProcess(ctx)
	if err != nil {
		log.Warn("failed to read auto-process setting; skipping", zap.Error(err))
		return nil
	}
	if !on {
		return nil
	}

	file := rec.file
	if ok, _ := r.deps.Store.Exists(ch, file); !ok {
		latest, found, err := r.deps.Store.Latest(ch)
		if err != nil || !found {
			log.Info("no recording to process after stop", zap.Error(err))
			return nil
		}
		file = latest.Path
	}

	// The request may go away; the transcode should not.
	if err := r.Process(context.WithoutCancel(ctx), ch, file); err != nil {
		log.Warn("processing after stop failed", zap.String("file", file), zap.Error(err))
	}
	return nil
}

// reserve claims ch for a Start in progress.
func (r *Recorder) reserve(ch string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[ch]; ok {
		return false
	}
	if _, ok := r.pending[ch]; ok {
		return false
	}
	r.pending[ch] = struct{}{}
	return true
}

func (r *Recorder) unreserve(ch string) {
	r.mu.Lock()
	delete(r.pending, ch)
	r.mu.Unlock()
}

// register moves ch from pending to active. It refuses once Close has begun,
// since Close only terminates the captures it finds in active.
func (r *Recorder) register(ch string, rec *activeRecording) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return false
	}
	r.active[ch] = rec
	delete(r.pending, ch)
	return true
}

// forget drops ch from the active set if rec is still its registered capture.
func (r *Recorder) forget(ch string, rec *activeRecording) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[ch] != rec {
		return false
	}
	delete(r.active, ch)
	return true
}

// watch cleans up after a capture that ends without Stop (stream went
// offline, tool crashed).
func (r *Recorder) watch(ch string, rec *activeRecording) {
	<-rec.handle.Done()
	if r.forget(ch, rec) {
		r.log.Info("capture ended on its own", zap.String("channel", ch), zap.String("file", rec.file), zap.NamedError("exit", rec.handle.Err()))
	}
}

// waitForOutput polls for path. It returns false only when the capture
// exited without creating it.
func (r *Recorder) waitForOutput(h CaptureHandle, path string) bool {
	deadline := time.NewTimer(r.opts.StartWait)
	defer deadline.Stop()
	tick := time.NewTicker(r.opts.StartPoll)
	defer tick.Stop()

	for {
		if fileExists(path) {
			return true
		}
		select {
		case <-h.Done():
			return fileExists(path)
		case <-deadline.C:
			return true
		case <-tick.C:
		}
	}
}

// filenameAttempts is how many one-second steps freeFilename tries.
const filenameAttempts = 10

// freeFilename names a new capture, stepping the timestamp forward if a
// capture with the same name already exists. It never returns a taken name.
func (r *Recorder) freeFilename(ch, title string) (string, bool) {
	t := r.now()
	for i := 0; i < filenameAttempts; i++ {
		name := recording.Filename(t.Add(time.Duration(i)*time.Second), title)
		if !fileExists(r.deps.Store.RawPath(ch, name)) {
			return name, true
		}
	}
	return "", false
}

// ActiveChannels returns the running captures ordered by channel.
func (r *Recorder) ActiveChannels() []ActiveCapture {
	r.mu.Lock()
	out := make([]ActiveCapture, 0, len(r.active))
	for ch, rec := range r.active {
		out = append(out, ActiveCapture{Channel: ch, File: rec.file, StartedAt: rec.startedAt})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// IsRecording reports whether channel has a running capture.
func (r *Recorder) IsRecording(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[strings.ToLower(strings.TrimSpace(channel))]
	return ok
}

func (r *Recorder) capturing(ch, file string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.active[ch]
	return ok && rec.file == file
}

// busy reports whether ch is being captured or about to be.
func (r *Recorder) busy(ch string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, active := r.active[ch]
	_, pending := r.pending[ch]
	return active || pending
}

// --- recordings -------------------------------------------------------------

// Process remuxes a raw recording into the processed tree.
//
// A missing source is an error. A failed transcode is logged and otherwise
// ignored: the raw file stays the source of truth. Concurrent calls for the
// same file collapse into one.
func (r *Recorder) Process(ctx context.Context, channel, file string) error {
	err := r.process(ctx, channel, file)
	if errors.Is(err, ErrTranscodeFailed) {
		return nil
	}
	return err
}

func (r *Recorder) process(ctx context.Context, channel, file string) error {
	ch, err := validateRecording(channel, file)
	if err != nil {
		return err
	}
	log := r.log.With(zap.String("channel", ch), zap.String("file", file))

	if r.capturing(ch, file) {
		return newRecordingError(ErrRecordingInProgress, ch, file, nil)
	}
	ok, err := r.deps.Store.Exists(ch, file)
	if err != nil || !ok {
		return newRecordingError(ErrSourceNotFound, ch, file, err)
	}

	key := ch + "/" + file
	if !r.transcodes.Acquire(key) {
		log.Info("already processing; skipped")
		return nil
	}
	defer r.transcodes.Release(key)

	dir := r.deps.Store.ProcessedChannelDir(ch)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("failed to create processed dir", zap.Error(err))
		return newRecordingError(ErrTranscodeFailed, ch, file, err)
	}

	src := r.deps.Store.RawPath(ch, file)
	dst := r.deps.Store.ProcessedPath(ch, file)
	tmp := filepath.Join(dir, "."+file+".tmp")

	start := time.Now()
	if err := r.deps.Transcoder.Transcode(ctx, src, tmp); err != nil {
		_ = os.Remove(tmp)
		log.Error("transcode failed", zap.Error(err))
		return newRecordingError(ErrTranscodeFailed, ch, file, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		log.Error("failed to move processed file into place", zap.Error(err))
		return newRecordingError(ErrTranscodeFailed, ch, file, err)
	}

	log.Info("recording processed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Delete removes the raw and processed copies of a recording. Missing copies
// are fine; the file under capture is refused.
func (r *Recorder) Delete(_ context.Context, channel, file string) error {
	ch, err := validateRecording(channel, file)
	if err != nil {
		return err
	}
	if r.capturing(ch, file) {
		return newRecordingError(ErrRecordingInProgress, ch, file, nil)
	}

	for _, p := range []string{r.deps.Store.RawPath(ch, file), r.deps.Store.ProcessedPath(ch, file)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.log.Error("delete failed", zap.String("path", p), zap.Error(err))
			return newRecordingError(ErrDeleteFailed, ch, file, err)
		}
	}
	r.log.Info("recording deleted", zap.String("channel", ch), zap.String("file", file))
	return nil
}

// ListRecordings returns all recordings by channel, flagging the files that
// are being captured right now. Concurrent callers share one directory scan.
func (r *Recorder) ListRecordings(_ context.Context) (map[string][]recording.Recording, error) {
	v, err, _ := r.listing.Do("list", func() (any, error) {
		return r.deps.Store.List()
	})
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	shared := v.(map[string][]recording.Recording)

	r.mu.Lock()
	files := make(map[string]string, len(r.active))
	for ch, rec := range r.active {
		files[ch] = rec.file
	}
	r.mu.Unlock()

	// The scan result is shared with other callers; copy before marking.
	out := make(map[string][]recording.Recording, len(shared))
	for ch, recs := range shared {
		recs = slices.Clone(recs)
		for i := range recs {
			recs[i].Capturing = files[ch] == recs[i].Path
		}
		out[ch] = recs
	}
	return out, nil
}

func validateRecording(channel, file string) (string, error) {
	ch, err := recording.NormalizeChannel(channel)
	if err != nil {
		return "", newRecordingError(ErrInvalidRecording, channel, "", err)
	}
	if err := recording.ValidateFilename(file); err != nil {
		return "", newRecordingError(ErrInvalidRecording, ch, file, err)
	}
	return ch, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// --- auto-processing --------------------------------------------------------

func (r *Recorder) autoProcess(ctx context.Context) (bool, error) {
	return repo.GetBool(ctx, r.deps.Settings, setting.AutoProcessRecordings)
}

// AutoProcess reports the persisted auto-process flag.
func (r *Recorder) AutoProcess(ctx context.Context) (bool, error) {
	on, err := r.autoProcess(ctx)
	if err != nil {
		return false, newRecordingError(ErrSettingsIO, "", "", err)
	}
	return on, nil
}

// SetAutoProcess persists the flag and starts or stops the reconciliation
// loop to match. If persisting fails the loop is left alone.
func (r *Recorder) SetAutoProcess(ctx context.Context, enabled bool) error {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()

	if err := r.deps.Settings.Set(ctx, setting.AutoProcessRecordings, enabled); err != nil {
		r.log.Error("failed to save auto-process setting", zap.Error(err))
		return newRecordingError(ErrSettingsIO, "", "", err)
	}
	r.converge(enabled)
	return nil
}

// SyncAutoProcess re-reads the flag and converges the loop, for changes made
// outside SetAutoProcess.
func (r *Recorder) SyncAutoProcess(ctx context.Context) error {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()

	on, err := r.autoProcess(ctx)
	if err != nil {
		return newRecordingError(ErrSettingsIO, "", "", err)
	}
	r.converge(on)
	return nil
}

func (r *Recorder) converge(on bool) {
	if on {
		if r.startLoop() {
			r.log.Info("auto-processing enabled")
		}
		return
	}
	if r.stopLoop() {
		r.log.Info("auto-processing disabled")
	}
}

// LoopStats reports the reconciliation loop state and transcode occupancy.
func (r *Recorder) LoopStats() LoopStats {
	r.loopMu.Lock()
	running := r.loopCancel != nil
	r.loopMu.Unlock()
	return LoopStats{
		Running:       running,
		Starts:        r.loopStarts.Load(),
		Stops:         r.loopStops.Load(),
		Transcodes:    r.transcodes.InUse(),
		MaxTranscodes: r.transcodes.Capacity(),
	}
}

// startLoop starts the loop unless one is running or the recorder is closed.
func (r *Recorder) startLoop() bool {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()

	if r.loopCancel != nil || r.closed.Load() {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.loopCancel, r.loopDone = cancel, done
	r.loopStarts.Add(1)

	go func() {
		defer close(done)
		r.reconcileLoop(ctx)
	}()
	return true
}

// stopLoop cancels the loop and waits for it to exit. An in-flight transcode
// is killed and its temp file removed.
func (r *Recorder) stopLoop() bool {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()

	if r.loopCancel == nil {
		return false
	}
	r.loopCancel()
	<-r.loopDone
	r.loopCancel, r.loopDone = nil, nil
	r.loopStops.Add(1)
	return true
}

// fileState is what the loop remembers about a raw file between ticks.
type fileState struct {
	size    int64
	modTime int64
}

func (r *Recorder) reconcileLoop(ctx context.Context) {
	log := r.log.Named("reconcile")
	log.Info("loop started", zap.Duration("interval", r.opts.ReconcileInterval))
	defer log.Info("loop stopped")

	seen := r.reconcileOnce(ctx, nil)

	t := time.NewTicker(r.opts.ReconcileInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			seen = r.reconcileOnce(ctx, seen)
		}
	}
}

// reconcileOnce processes every raw recording that is settled: its channel
// is not being captured, and it had the same size and mtime on the previous
// tick and is at least MinAge old. It returns the observations for the next
// tick.
func (r *Recorder) reconcileOnce(ctx context.Context, seen map[string]fileState) map[string]fileState {
	all, err := r.deps.Store.List()
	if err != nil {
		r.log.Warn("reconcile: list failed", zap.Error(err))
		return seen
	}

	now := r.now()
	next := make(map[string]fileState)
	for ch, recs := range all {
		if r.busy(ch) {
			continue
		}
		for _, rec := range recs {
			if rec.Processed {
				continue
			}
			key := ch + "/" + rec.Path
			st := fileState{size: rec.Size, modTime: rec.ModTime.UnixNano()}
			next[key] = st

			prev, ok := seen[key]
			if !ok || prev != st || now.Sub(rec.ModTime) < r.opts.MinAge {
				continue
			}
			if ctx.Err() != nil {
				return next
			}
			// A Start may have landed since the check above.
			if r.busy(ch) {
				break
			}

			err := r.process(ctx, ch, rec.Path)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return next
			default:
				r.log.Warn("reconcile: process failed", zap.String("channel", ch), zap.String("file", rec.Path), zap.Error(err))
			}
		}
	}
	return next
}

// Close stops the loop and every capture. Further Starts fail.
func (r *Recorder) Close() {
	r.closed.Store(true)
	r.stopLoop()

	r.mu.Lock()
	recs := make(map[string]*activeRecording, len(r.active))
	for ch, rec := range r.active {
		recs[ch] = rec
	}
	clear(r.active)
	r.mu.Unlock()

	deadline := time.NewTimer(closeWait)
	defer deadline.Stop()
	for ch, rec := range recs {
		rec.handle.Terminate()
		r.log.Info("stopping capture", zap.String("channel", ch))
	}
	for ch, rec := range recs {
		select {
		case <-rec.handle.Done():
		case <-deadline.C:
			r.log.Warn("capture did not exit in time", zap.String("channel", ch))
			return
		}
	}
}
