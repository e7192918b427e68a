package repo

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileSettings_CreatesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.json")

	s, err := NewFileSettings(zap.NewNop(), path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	on, err := GetBool(context.Background(), s, "auto_process_recordings")
	require.NoError(t, err)
	assert.False(t, on, "absent reads as false")
}

func TestFileSettings_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewFileSettings(zap.NewNop(), path)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "auto_process_recordings", true))
	require.NoError(t, s.Set(ctx, "other", "x"))

	on, err := GetBool(ctx, s, "auto_process_recordings")
	require.NoError(t, err)
	assert.True(t, on)

	// A second store on the same file sees the write.
	s2, err := NewFileSettings(zap.NewNop(), path)
	require.NoError(t, err)
	all, err := s2.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.JSONEq(t, `"x"`, string(all["other"]))

	require.NoError(t, s.Delete(ctx, "other"))
	require.NoError(t, s.Delete(ctx, "other"))
	_, ok, err := s.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileSettings_PicksUpHandEdits(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewFileSettings(zap.NewNop(), path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"auto_process_recordings": true}`), 0o644))
	on, err := GetBool(ctx, s, "auto_process_recordings")
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = GetBool(ctx, s, "auto_process_recordings")
	assert.Error(t, err)
}

func TestGetBool_WrongType(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileSettings(zap.NewNop(), filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "auto_process_recordings", "yes"))
	_, err = GetBool(ctx, s, "auto_process_recordings")
	assert.Error(t, err)
}

// fakeHash is an in-memory hashClient.
type fakeHash struct {
	fields map[string]string
	err    error
}

func newFakeHash() *fakeHash { return &fakeHash{fields: map[string]string{}} }

func (f *fakeHash) HGet(_ context.Context, _, field string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.fields[field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeHash) HSet(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for i := 0; i+1 < len(values); i += 2 {
		f.fields[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHash) HDel(_ context.Context, _ string, fields ...string) *redis.IntCmd {
	for _, k := range fields {
		delete(f.fields, k)
	}
	return redis.NewIntResult(int64(len(fields)), f.err)
}

func (f *fakeHash) HGetAll(_ context.Context, _ string) *redis.MapStringStringCmd {
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, f.err)
}

func TestRedisSettings(t *testing.T) {
	ctx := context.Background()
	h := newFakeHash()
	s := NewRedisSettings(zap.NewNop(), h)

	on, err := GetBool(ctx, s, "auto_process_recordings")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, s.Set(ctx, "auto_process_recordings", true))
	assert.Equal(t, "true", h.fields["auto_process_recordings"])

	on, err = GetBool(ctx, s, "auto_process_recordings")
	require.NoError(t, err)
	assert.True(t, on)

	h.fields["broken"] = "{"
	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]json.RawMessage{"auto_process_recordings": json.RawMessage("true")}, all)

	require.NoError(t, s.Delete(ctx, "auto_process_recordings"))
	_, ok, err := s.Get(ctx, "auto_process_recordings")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSettings_Errors(t *testing.T) {
	ctx := context.Background()
	h := newFakeHash()
	h.err = errors.New("connection refused")
	s := NewRedisSettings(zap.NewNop(), h)

	_, _, err := s.Get(ctx, "auto_process_recordings")
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, s.Set(ctx, "auto_process_recordings", true))
	_, err = s.All(ctx)
	assert.Error(t, err)
}
