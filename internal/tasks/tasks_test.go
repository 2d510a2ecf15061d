package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"ibup/internal/models"
	"ibup/internal/scanner"
	"ibup/internal/services"
	tu "ibup/internal/testing"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// runPipeline logs in, discovers, plans, and executes in one call.
func runPipeline(t *testing.T, lib *tu.FakeLibrary, sink HistorySink, dirs []string, skipDuplicates bool, opts ExecuteOpts) (*Plan, *RunResult) {
	t.Helper()
	ctx := context.Background()
	engine := NewUploadEngine(lib, sink)

	if _, err := engine.Login(ctx, nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	candidates, err := engine.Discover(ctx, nil, dirs)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}

	plan, err := engine.Plan(ctx, nil, candidates, skipDuplicates)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	result, err := engine.Execute(ctx, nil, plan, opts)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	return plan, result
}

func TestUploadEngine(t *testing.T) {
	t.Run("Identical Content Uploads Once", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.mp3"), "same bytes")
		writeFile(t, filepath.Join(dir, "sub", "b.mp3"), "same bytes")
		writeFile(t, filepath.Join(dir, "c.mp3"), "other bytes")

		lib := tu.NewFakeLibrary()
		_, result := runPipeline(t, lib, nil, []string{dir}, true, ExecuteOpts{Parallel: true})

		if result.Uploaded != 2 {
			t.Errorf("expected 2 uploads, got %d", result.Uploaded)
		}
		if result.Skipped != 1 {
			t.Errorf("expected 1 skip, got %d", result.Skipped)
		}
		if len(lib.Uploaded) != 2 {
			t.Errorf("expected 2 files on the server, got %v", lib.Uploaded)
		}
	})

	t.Run("Remote Duplicates Skipped", func(t *testing.T) {
		dir := t.TempDir()
		known := writeFile(t, filepath.Join(dir, "known.mp3"), "already there")
		writeFile(t, filepath.Join(dir, "fresh.mp3"), "new content")

		sum, err := scanner.Checksum(known)
		if err != nil {
			t.Fatalf("checksum failed: %v", err)
		}

		lib := tu.NewFakeLibrary()
		lib.Known[sum] = struct{}{}

		plan, result := runPipeline(t, lib, nil, []string{dir}, true, ExecuteOpts{Parallel: true})

		if len(plan.Skipped) != 1 || filepath.Base(plan.Skipped[0].Path) != "known.mp3" {
			t.Errorf("expected known.mp3 planned as skip, got %+v", plan.Skipped)
		}
		if result.Uploaded != 1 {
			t.Errorf("expected 1 upload, got %d", result.Uploaded)
		}
		if len(lib.Uploaded) != 1 || filepath.Base(lib.Uploaded[0]) != "fresh.mp3" {
			t.Errorf("expected only fresh.mp3 uploaded, got %v", lib.Uploaded)
		}
	})

	t.Run("Skipping Disabled Uploads Everything", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, filepath.Join(dir, "a.mp3"), "same bytes")
		writeFile(t, filepath.Join(dir, "b.mp3"), "same bytes")

		sum, err := scanner.Checksum(a)
		if err != nil {
			t.Fatalf("checksum failed: %v", err)
		}

		lib := tu.NewFakeLibrary()
		lib.Known[sum] = struct{}{} // remote copy exists too

		_, result := runPipeline(t, lib, nil, []string{dir}, false, ExecuteOpts{Parallel: true})

		if result.Uploaded != 2 {
			t.Errorf("expected 2 uploads, got %d", result.Uploaded)
		}
		if result.Skipped != 0 {
			t.Errorf("expected no skips, got %d", result.Skipped)
		}
	})

	t.Run("Unsupported Extensions Excluded", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.mp3"), "audio")
		writeFile(t, filepath.Join(dir, "cover.jpg"), "image")

		lib := tu.NewFakeLibrary()
		_, result := runPipeline(t, lib, nil, []string{dir}, true, ExecuteOpts{Parallel: true})

		if result.Uploaded != 1 {
			t.Errorf("expected 1 upload, got %d", result.Uploaded)
		}
	})

	t.Run("Tags And Playlists Applied To Every Upload", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.mp3"), "aaa")
		writeFile(t, filepath.Join(dir, "b.mp3"), "bbb")

		lib := tu.NewFakeLibrary()
		lib.Tags = []services.Tag{{ID: "t-existing", Name: "rock"}}

		_, result := runPipeline(t, lib, nil, []string{dir}, true, ExecuteOpts{
			Tags:      []string{"rock", "new-tag"},
			Playlists: []string{"Drive"},
			Parallel:  true,
		})

		if result.Uploaded != 2 {
			t.Fatalf("expected 2 uploads, got %d", result.Uploaded)
		}

		// Existing tag reused, missing tag and playlist created.
		if len(lib.Tags) != 2 {
			t.Errorf("expected 2 tags after run, got %+v", lib.Tags)
		}
		if len(lib.Playlists) != 1 || lib.Playlists[0].Name != "Drive" {
			t.Errorf("expected playlist Drive created, got %+v", lib.Playlists)
		}

		for tagID, tracks := range lib.Tagged {
			if len(tracks) != 2 {
				t.Errorf("tag %s applied to %d tracks, want 2", tagID, len(tracks))
			}
		}
		if len(lib.Tagged) != 2 {
			t.Errorf("expected 2 tags applied, got %d", len(lib.Tagged))
		}

		appended := lib.Appended[lib.Playlists[0].ID]
		sort.Slice(appended, func(i, j int) bool { return appended[i] < appended[j] })
		if len(appended) != 2 {
			t.Errorf("expected 2 tracks in playlist, got %v", appended)
		}
	})

	t.Run("No Uploads Means No Target Resolution", func(t *testing.T) {
		dir := t.TempDir()
		known := writeFile(t, filepath.Join(dir, "known.mp3"), "dup")

		sum, err := scanner.Checksum(known)
		if err != nil {
			t.Fatalf("checksum failed: %v", err)
		}

		lib := tu.NewFakeLibrary()
		lib.Known[sum] = struct{}{}

		_, result := runPipeline(t, lib, nil, []string{dir}, true, ExecuteOpts{
			Tags:     []string{"never-created"},
			Parallel: true,
		})

		if result.Uploaded != 0 || result.Skipped != 1 {
			t.Fatalf("expected all skips, got %+v", result)
		}
		if len(lib.Tags) != 0 {
			t.Errorf("expected no tag creation, got %+v", lib.Tags)
		}
	})

	t.Run("One Failure Does Not Cancel Others", func(t *testing.T) {
		dir := t.TempDir()
		bad := writeFile(t, filepath.Join(dir, "bad.mp3"), "bad")
		writeFile(t, filepath.Join(dir, "good.mp3"), "good")

		lib := tu.NewFakeLibrary()
		lib.UploadErr[bad] = errors.New("boom")

		_, result := runPipeline(t, lib, nil, []string{dir}, true, ExecuteOpts{Parallel: true})

		if result.Failed != 1 {
			t.Errorf("expected 1 failure, got %d", result.Failed)
		}
		if result.Uploaded != 1 {
			t.Errorf("expected 1 upload, got %d", result.Uploaded)
		}

		var failure *models.UploadOutcome
		for i := range result.Outcomes {
			if result.Outcomes[i].Result == models.DispositionFailed {
				failure = &result.Outcomes[i]
			}
		}
		if failure == nil || failure.Err == nil {
			t.Fatal("expected failure outcome with error")
		}
	})

	t.Run("Serial Mode Uploads Everything", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"a", "b", "c"} {
			writeFile(t, filepath.Join(dir, name+".mp3"), name)
		}

		lib := tu.NewFakeLibrary()
		_, result := runPipeline(t, lib, nil, []string{dir}, true, ExecuteOpts{Parallel: false})

		if result.Uploaded != 3 {
			t.Errorf("expected 3 uploads, got %d", result.Uploaded)
		}
	})

	t.Run("History Records Every Outcome", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.mp3"), "same")
		writeFile(t, filepath.Join(dir, "b.mp3"), "same")
		bad := writeFile(t, filepath.Join(dir, "bad.mp3"), "bad")

		lib := tu.NewFakeLibrary()
		lib.UploadErr[bad] = errors.New("boom")

		sink := &tu.MemorySink{}
		_, result := runPipeline(t, lib, sink, []string{dir}, true, ExecuteOpts{Parallel: true})

		if len(sink.Outcomes) != len(result.Outcomes) {
			t.Errorf("expected %d history rows, got %d", len(result.Outcomes), len(sink.Outcomes))
		}

		counts := map[models.Disposition]int{}
		for _, o := range sink.Outcomes {
			counts[o.Result]++
		}
		if counts[models.DispositionUploaded] != 1 || counts[models.DispositionSkipped] != 1 || counts[models.DispositionFailed] != 1 {
			t.Errorf("unexpected history disposition counts %v", counts)
		}
	})

	t.Run("Cancelled Context Stops Dispatch", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.mp3"), "a")

		lib := tu.NewFakeLibrary()
		engine := NewUploadEngine(lib, nil)

		ctx, cancel := context.WithCancel(context.Background())
		if _, err := engine.Login(ctx, nil); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		candidates, err := engine.Discover(ctx, nil, []string{dir})
		if err != nil {
			t.Fatalf("discover failed: %v", err)
		}
		plan, err := engine.Plan(ctx, nil, candidates, false)
		if err != nil {
			t.Fatalf("plan failed: %v", err)
		}

		cancel()
		if _, err := engine.Execute(ctx, nil, plan, ExecuteOpts{Parallel: true}); err == nil {
			t.Error("expected context error")
		}
	})

	t.Run("Login Failure Surfaces", func(t *testing.T) {
		lib := tu.NewFakeLibrary()
		lib.LoginErr = errors.New("bad token")

		engine := NewUploadEngine(lib, nil)
		if _, err := engine.Login(context.Background(), nil); err == nil {
			t.Error("expected login error")
		}
	})
}
