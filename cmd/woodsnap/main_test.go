package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/fallback"
	"github.com/Veraticus/woodsnap/internal/model"
	"github.com/Veraticus/woodsnap/internal/quota"
	"github.com/Veraticus/woodsnap/internal/storage"
)

// useTempConfig points the global viper at a throwaway database and a
// missing offline model.
func useTempConfig(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "woodsnap.db")
	viper.Set("database.path", dbPath)
	viper.Set("fallback.model_path", filepath.Join(dir, "missing-model.json"))
	return dbPath
}

func writePhoto(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 150, G: 110, B: 70, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListPhotos(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "b.JPG")
	writePhoto(t, dir, "a.jpeg")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.png"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o750))

	files, err := listPhotos(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"a.jpeg", "b.JPG", "c.png"}, names)

	_, err = listPhotos(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

func TestReadPhotos(t *testing.T) {
	dir := t.TempDir()
	path := writePhoto(t, dir, "oak.jpg")

	photos, err := readPhotos([]string{path})
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.NotEmpty(t, photos[0])

	_, err = readPhotos([]string{filepath.Join(dir, "missing.jpg")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrCameraPermissionDenied)
}

func TestReadPhotosPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	path := writePhoto(t, dir, "locked.jpg")
	require.NoError(t, os.Chmod(path, 0o000))

	_, err := readPhotos([]string{path})
	assert.ErrorIs(t, err, common.ErrCameraPermissionDenied)
}

func TestUnavailableRemote(t *testing.T) {
	_, err := unavailableRemote{}.Identify(context.Background(), [][]byte{{1}})
	assert.ErrorIs(t, err, common.ErrNetworkFailure)
}

func TestQuotaCommand(t *testing.T) {
	useTempConfig(t)

	out, err := execute(t, quotaCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "3 free scans left today")
	assert.Contains(t, out, "Used today: 0 of 3")
}

func TestIdentifyOfflineUsesPlaceholderAndSavesHistory(t *testing.T) {
	dbPath := useTempConfig(t)
	photo := writePhoto(t, t.TempDir(), "board.jpg")

	out, err := execute(t, identifyCmd(), "--offline", photo)
	require.NoError(t, err)
	assert.Contains(t, out, fallback.PlaceholderCommonName)
	assert.Contains(t, out, "Saved as scan")

	out, err = execute(t, quotaCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "2 free scans left today")

	store, err := storage.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	scans, err := store.ListScans(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.True(t, scans[0].IsOfflineResult)
	assert.Equal(t, 2, scans[0].ScansRemaining)
}

func TestIdentifyRejectsTooManyPhotos(t *testing.T) {
	useTempConfig(t)
	dir := t.TempDir()
	args := []string{"--offline"}
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"} {
		args = append(args, writePhoto(t, dir, name))
	}

	_, err := execute(t, identifyCmd(), args...)
	assert.Error(t, err)
}

func TestBatchStopsAtQuota(t *testing.T) {
	useTempConfig(t)
	dir := t.TempDir()
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg"} {
		writePhoto(t, dir, name)
	}

	out, err := execute(t, batchCmd(), "--offline", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Identified 3 of 5 photos")
	assert.Contains(t, out, common.UserMessage(common.ErrQuotaExceeded))
}

func TestCorrectCommand(t *testing.T) {
	dbPath := useTempConfig(t)
	ctx := context.Background()

	store, err := storage.Open(ctx, dbPath)
	require.NoError(t, err)
	scan := &model.ScanRecord{
		Matches: []model.Match{
			{SpeciesID: "quercus-rubra", CommonName: "Red Oak", ScientificName: "Quercus rubra", Confidence: 0.8},
		},
		ScansRemaining: 2,
	}
	require.NoError(t, store.SaveScan(ctx, scan))
	require.NoError(t, store.Close())

	out, err := execute(t, correctCmd(), scan.ID, "white", "oak")
	require.NoError(t, err)
	assert.Contains(t, out, "Marked scan as White Oak")

	store, err = storage.Open(ctx, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	corrections, err := store.ListCorrections(ctx, scan.ID)
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, "quercus-rubra", corrections[0].OriginalSpeciesID)
	assert.Equal(t, "quercus-alba", corrections[0].CorrectedSpeciesID)

	_, err = execute(t, correctCmd(), "no-such-scan", "1")
	assert.ErrorContains(t, err, "no scan with id")
}

func TestMigrateStatus(t *testing.T) {
	useTempConfig(t)

	out, err := execute(t, migrateCmd(), "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 0")
	assert.Contains(t, out, "Migrations pending")

	out, err = execute(t, migrateCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated database")

	out, err = execute(t, migrateCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "already up to date")
}

func TestWatchEntitlement(t *testing.T) {
	assert.False(t, watchEntitlement(viper.New(), quota.NewCapability(false)), "no config file to watch")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("entitlement:\n  unlimited: false\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(cfgPath)
	require.NoError(t, v.ReadInConfig())

	capability := quota.NewCapability(false)
	require.True(t, watchEntitlement(v, capability))

	require.NoError(t, os.WriteFile(cfgPath, []byte("entitlement:\n  unlimited: true\n"), 0o600))
	assert.Eventually(t, capability.Unlimited, 3*time.Second, 20*time.Millisecond)
}
