package staged_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"testing"
	"time"

	staged "github.com/goliatone/go-staged"
	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/path"
	"github.com/goliatone/go-staged/pkg/activity"
	"github.com/goliatone/go-staged/pkg/baseline"
	"github.com/goliatone/go-staged/pkg/storage"
)

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("failed to locate fixture directory")
	}
	fixturePath := filepath.Join(filepath.Dir(filename), "testdata", name)
	raw, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", fixturePath, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", fixturePath, err)
	}
	return out
}

func loadedSession(t *testing.T, opts ...staged.Option) *staged.Session {
	t.Helper()
	doc := loadFixture[model.Document](t, "features.json")
	session := staged.New(opts...)
	if err := session.Load(context.Background(), baseline.Static(doc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	return session
}

func mustCursor(t *testing.T, s *staged.Session, store staged.StoreID, addr string) *staged.Cursor {
	t.Helper()
	cur, err := s.CursorAt(store, addr)
	if err != nil {
		t.Fatalf("cursor %q: %v", addr, err)
	}
	return cur
}

type failingStore struct {
	err error
}

func (f failingStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (f failingStore) Put(context.Context, string, string) error { return f.err }

type failingSource struct{}

func (failingSource) Name() string { return "broken" }

func (failingSource) Fetch(context.Context) (model.Document, error) {
	return model.Document{}, errors.New("connection refused")
}

func TestLoadSeedsTrees(t *testing.T) {
	var notified []staged.StoreID
	session := staged.New()
	for _, store := range staged.Stores {
		session.Subscribe(store, path.Root, func(c staged.Change) {
			notified = append(notified, c.Store)
		})
	}
	if session.Loaded() {
		t.Fatalf("new session must not be loaded")
	}

	doc := loadFixture[model.Document](t, "features.json")
	if err := session.Load(context.Background(), baseline.Static(doc)); err != nil {
		t.Fatalf("load: %v", err)
	}

	committed := session.Committed()
	if committed.Count != 0 || len(committed.Features) != 3 {
		t.Fatalf("unexpected committed tree: count=%d features=%d", committed.Count, len(committed.Features))
	}
	if !reflect.DeepEqual(committed, session.Staged()) {
		t.Fatalf("staged should start as a copy of committed")
	}
	if d := session.Diff(); d.HasChanges || len(d.ChangedPaths) != 0 {
		t.Fatalf("expected empty diff, got %+v", d)
	}
	if !slices.Equal(notified, staged.Stores) {
		t.Fatalf("expected every store notified once, got %v", notified)
	}
}

func TestCursorBeforeLoad(t *testing.T) {
	session := staged.New()
	cur := session.Cursor(staged.StoreStaged, path.MustParse("count"))

	if _, err := cur.Get(); !errors.Is(err, staged.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded from read, got %v", err)
	}
	if err := cur.Reset(context.Background(), 1); !errors.Is(err, staged.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded from reset, got %v", err)
	}
	var cursorErr *staged.CursorError
	_, err := cur.Get()
	if !errors.As(err, &cursorErr) || cursorErr.Op != "read" || cursorErr.Store != staged.StoreStaged {
		t.Fatalf("expected *CursorError describing the read, got %#v", err)
	}
	if got := session.Committed(); !reflect.DeepEqual(got, model.Empty()) {
		t.Fatalf("expected empty snapshot before load, got %+v", got)
	}
}

func TestLoadFetchFailure(t *testing.T) {
	session := staged.New()
	err := session.Load(context.Background(), failingSource{})
	if !errors.Is(err, staged.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var fetchErr *baseline.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Source != "broken" {
		t.Fatalf("expected FetchError naming the source, got %v", err)
	}
	if session.Loaded() {
		t.Fatalf("failed load must leave the session unloaded")
	}
}

// A single field edit shows up as one modified feature.
func TestSwapFieldProducesModifiedPath(t *testing.T) {
	session := loadedSession(t)
	hp := mustCursor(t, session, staged.StoreStaged, "features[1].hp")

	if err := hp.Swap(context.Background(), func(old any) any { return old.(int) + 15 }); err != nil {
		t.Fatalf("swap: %v", err)
	}

	fresh := mustCursor(t, session, staged.StoreStaged, "features[1].hp")
	value, err := fresh.Get()
	if err != nil || value != 60 {
		t.Fatalf("expected 60 after swap, got %v (%v)", value, err)
	}

	d := session.Diff()
	if !slices.Equal(d.Paths(), []string{"features[1].hp"}) {
		t.Fatalf("unexpected changed paths: %v", d.Paths())
	}
	if d.Summary.AddedCount != 0 || d.Summary.ModifiedCount != 1 || d.Summary.DeletedCount != 0 {
		t.Fatalf("unexpected summary: %+v", d.Summary)
	}
	if committedHP, _ := mustCursor(t, session, staged.StoreCommitted, "features[1].hp").Get(); committedHP != 45 {
		t.Fatalf("committed tree changed: %v", committedHP)
	}
}

func TestAddFeatureProducesSequenceAddress(t *testing.T) {
	session := loadedSession(t)
	features := session.Cursor(staged.StoreStaged, path.New(path.Field("features")))

	err := staged.SwapAs(context.Background(), features, func(old []model.Feature) []model.Feature {
		return append(old, model.NewFeature(model.NextFeatureID(old)))
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	d := session.Diff()
	if d.Summary.AddedCount != 1 || d.Summary.ModifiedCount != 0 {
		t.Fatalf("unexpected summary: %+v", d.Summary)
	}
	if !slices.Equal(d.Paths(), []string{"features[4]"}) {
		t.Fatalf("expected one sequence-level address, got %v", d.Paths())
	}
	name, err := staged.Read[string](mustCursor(t, session, staged.StoreStaged, "features[4].name"))
	if err != nil || name != "Feature 4" {
		t.Fatalf("unexpected new feature name %q (%v)", name, err)
	}
}

func TestDeleteAndRestoreFeature(t *testing.T) {
	session := loadedSession(t)
	ctx := context.Background()
	features := session.Cursor(staged.StoreStaged, path.New(path.Field("features")))
	committed := session.Committed().Features

	without := slices.DeleteFunc(model.Clone(committed), func(f model.Feature) bool { return f.ID == "2" })
	if err := features.Reset(ctx, without); err != nil {
		t.Fatalf("reset: %v", err)
	}
	d := session.Diff()
	if d.Summary.DeletedCount != 1 || !slices.Equal(d.Paths(), []string{"features[2]"}) {
		t.Fatalf("unexpected diff after delete: %+v", d)
	}

	if err := features.Reset(ctx, model.Clone(committed)); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if d := session.Diff(); d.HasChanges || d.Touches(path.MustParse("features[2]")) {
		t.Fatalf("restoring the committed features should clear the diff, got %+v", d)
	}
	restored, _, ok := model.FindFeature(session.Staged().Features, "2")
	if !ok || restored.Illustrator == nil || *restored.Illustrator != "" {
		t.Fatalf("re-added feature lost its empty illustrator: %+v", restored.Illustrator)
	}
}

func TestEmptyStringSurvivesStorageRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first := loadedSession(t, staged.WithStorage(store))
	if err := mustCursor(t, first, staged.StoreStaged, "features[2].hp").Reset(ctx, 55); err != nil {
		t.Fatalf("reset: %v", err)
	}

	second := loadedSession(t, staged.WithStorage(store))
	if second.RestoreError() != nil {
		t.Fatalf("unexpected restore error: %v", second.RestoreError())
	}
	feature, _, ok := model.FindFeature(second.Staged().Features, "2")
	if !ok || feature.Illustrator == nil || *feature.Illustrator != "" {
		t.Fatalf("restored feature lost its empty illustrator: %+v", feature.Illustrator)
	}
	if !slices.Equal(second.Diff().Paths(), []string{"features[2].hp"}) {
		t.Fatalf("empty illustrator should not show up as a change: %v", second.Diff().Paths())
	}
}

func TestMalformedStoredStateFallsBack(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Put(context.Background(), staged.DefaultStorageKey, "{definitely not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	session := loadedSession(t, staged.WithStorage(store))

	if !reflect.DeepEqual(session.Staged(), session.Committed()) {
		t.Fatalf("staged should equal committed after a malformed restore")
	}
	if !errors.Is(session.RestoreError(), staged.ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", session.RestoreError())
	}
	if session.Diff().HasChanges {
		t.Fatalf("expected no changes after fallback")
	}
}

func TestStoredStateWithDuplicateIDsFallsBack(t *testing.T) {
	store := storage.NewMemoryStore()
	_ = store.Put(context.Background(), "editor", `{"count":0,"features":[{"id":"1"},{"id":"1"}]}`)

	session := loadedSession(t, staged.WithStorage(store), staged.WithStorageKey("editor"))
	if !errors.Is(session.RestoreError(), staged.ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", session.RestoreError())
	}
}

func TestStagedStatePersistsAcrossSessions(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first := loadedSession(t, staged.WithStorage(store))
	if err := mustCursor(t, first, staged.StoreStaged, "count").Reset(ctx, 7); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := mustCursor(t, first, staged.StoreStaged, "features[1].rarity").Reset(ctx, nil); err != nil {
		t.Fatalf("reset: %v", err)
	}

	raw, ok, err := store.Get(ctx, staged.DefaultStorageKey)
	if err != nil || !ok {
		t.Fatalf("expected stored state, ok=%v err=%v", ok, err)
	}
	var stored model.DataState
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored state is not JSON: %v", err)
	}
	if !reflect.DeepEqual(stored, first.Staged()) {
		t.Fatalf("stored state differs from the staged tree")
	}

	second := loadedSession(t, staged.WithStorage(store))
	if second.RestoreError() != nil {
		t.Fatalf("unexpected restore error: %v", second.RestoreError())
	}
	if !reflect.DeepEqual(second.Staged(), first.Staged()) {
		t.Fatalf("restored staged tree differs")
	}
	if !slices.Equal(second.Diff().Paths(), []string{"count", "features[1].rarity"}) {
		t.Fatalf("unexpected restored diff: %v", second.Diff().Paths())
	}
}

func TestWriteFailureKeepsMemoryAuthoritative(t *testing.T) {
	quota := errors.New("quota exceeded")
	session := loadedSession(t, staged.WithStorage(failingStore{err: quota}))

	cur := mustCursor(t, session, staged.StoreStaged, "features[2].name")
	if err := cur.Reset(context.Background(), "Charmeleon"); err != nil {
		t.Fatalf("write failure must not fail the swap: %v", err)
	}
	if value, _ := cur.Get(); value != "Charmeleon" {
		t.Fatalf("in-memory value lost: %v", value)
	}
	if !session.Diff().Touches(path.MustParse("features[2].name")) {
		t.Fatalf("diff not recomputed after failed write")
	}
	if session.Stats().WriteFailures != 1 {
		t.Fatalf("expected one write failure, got %+v", session.Stats())
	}
	if !errors.Is(session.LastWriteError(), quota) {
		t.Fatalf("expected last write error, got %v", session.LastWriteError())
	}
}

func TestReadOnlyTrees(t *testing.T) {
	session := loadedSession(t)
	for _, store := range []staged.StoreID{staged.StoreCommitted, staged.StoreDiff} {
		err := session.Cursor(store, path.Root).Swap(context.Background(), func(old any) any { return old })
		if !errors.Is(err, staged.ErrReadOnly) {
			t.Fatalf("expected ErrReadOnly for %s, got %v", store, err)
		}
	}
	if session.Stats().Swaps != 0 {
		t.Fatalf("rejected writes must not count as swaps")
	}
}

func TestWriteToUnknownStore(t *testing.T) {
	session := loadedSession(t)
	err := session.Cursor(staged.StoreID("draft"), path.Root).Reset(context.Background(), model.Empty())
	if errors.Is(err, staged.ErrReadOnly) {
		t.Fatalf("unknown store reported as read-only: %v", err)
	}
	if !errors.Is(err, staged.ErrUnknownStore) {
		t.Fatalf("expected ErrUnknownStore, got %v", err)
	}
}

func TestSecondLoadIsRejected(t *testing.T) {
	session := loadedSession(t)
	ctx := context.Background()
	if err := mustCursor(t, session, staged.StoreStaged, "count").Reset(ctx, 3); err != nil {
		t.Fatalf("reset: %v", err)
	}

	other := model.Document{Features: []model.Feature{model.NewFeature("9")}}
	if err := session.Load(ctx, baseline.Static(other)); !errors.Is(err, staged.ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
	if n := len(session.Committed().Features); n != 3 {
		t.Fatalf("second load replaced committed: %d features", n)
	}
	if !slices.Equal(session.Diff().Paths(), []string{"count"}) {
		t.Fatalf("second load dropped staged edits: %v", session.Diff().Paths())
	}
}

func TestAddressErrors(t *testing.T) {
	session := loadedSession(t)

	if _, err := mustCursor(t, session, staged.StoreStaged, "features[99]").Get(); !errors.Is(err, staged.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err := mustCursor(t, session, staged.StoreStaged, "features[99].hp").Reset(context.Background(), 10)
	if !errors.Is(err, staged.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := session.CursorAt(staged.StoreStaged, "features[1"); !errors.Is(err, staged.ErrInvalidAddress) {
		t.Fatalf("expected parse failure, got %v", err)
	}
	if !reflect.DeepEqual(session.Staged(), session.Committed()) {
		t.Fatalf("failed writes must leave staged untouched")
	}
}

func TestNotificationsFollowAddressOverlap(t *testing.T) {
	session := loadedSession(t)
	var hits []string
	watch := func(store staged.StoreID, addr string) {
		session.Subscribe(store, path.MustParse(addr), func(staged.Change) {
			hits = append(hits, string(store)+":"+addr)
		})
	}
	watch(staged.StoreStaged, "features[1].hp")
	watch(staged.StoreStaged, "features[1]")
	watch(staged.StoreStaged, "")
	watch(staged.StoreStaged, "features[2].hp")
	watch(staged.StoreStaged, "count")
	watch(staged.StoreCommitted, "features[1].hp")
	watch(staged.StoreDiff, "summary")

	ctx := context.Background()
	if err := mustCursor(t, session, staged.StoreStaged, "features[1].hp").Reset(ctx, 70); err != nil {
		t.Fatalf("reset: %v", err)
	}
	want := []string{"staged:features[1].hp", "staged:features[1]", "staged:", "diff:summary"}
	if !slices.Equal(hits, want) {
		t.Fatalf("field write notified %v, want %v", hits, want)
	}

	hits = nil
	if err := mustCursor(t, session, staged.StoreStaged, "features[1]").Swap(ctx, func(old any) any {
		feature := old.(model.Feature)
		feature.Name = "Ivysaur"
		return feature
	}); err != nil {
		t.Fatalf("swap: %v", err)
	}
	want = []string{"staged:features[1].hp", "staged:features[1]", "staged:", "diff:summary"}
	if !slices.Equal(hits, want) {
		t.Fatalf("parent write notified %v, want %v", hits, want)
	}
}

func TestCancelSubscription(t *testing.T) {
	session := loadedSession(t)
	cur := mustCursor(t, session, staged.StoreStaged, "count")
	calls := 0
	cancel := cur.Subscribe(func(staged.Change) { calls++ })

	_ = cur.Reset(context.Background(), 1)
	cancel()
	cancel()
	_ = cur.Reset(context.Background(), 2)
	if calls != 1 {
		t.Fatalf("expected exactly one notification, got %d", calls)
	}
}

func TestReadsAreCopies(t *testing.T) {
	session := loadedSession(t)
	value, err := mustCursor(t, session, staged.StoreStaged, "features[1].attacks").Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	attacks := value.([]model.Attack)
	attacks[0].Name = "mutated"

	again, _ := staged.Read[[]model.Attack](mustCursor(t, session, staged.StoreStaged, "features[1].attacks"))
	if again[0].Name != "Vine Whip" {
		t.Fatalf("read exposed live tree: %q", again[0].Name)
	}
}

func TestTypedHelpersRejectWrongType(t *testing.T) {
	session := loadedSession(t)
	cur := mustCursor(t, session, staged.StoreStaged, "features[1].hp")
	if _, err := staged.Read[string](cur); !errors.Is(err, staged.ErrType) {
		t.Fatalf("expected ErrType, got %v", err)
	}
	err := staged.SwapAs(context.Background(), cur, func(old string) string { return old })
	if !errors.Is(err, staged.ErrType) {
		t.Fatalf("expected ErrType, got %v", err)
	}
}

func TestPanickingUpdaterReleasesSession(t *testing.T) {
	session := loadedSession(t)
	cur := mustCursor(t, session, staged.StoreStaged, "features[1].hp")

	err := cur.Swap(context.Background(), func(old any) any { return old.(string) })
	if !errors.Is(err, staged.ErrUpdaterPanic) {
		t.Fatalf("expected ErrUpdaterPanic, got %v", err)
	}
	var cursorErr *staged.CursorError
	if !errors.As(err, &cursorErr) || cursorErr.Op != "swap" {
		t.Fatalf("expected a swap CursorError, got %v", err)
	}

	done := make(chan any, 1)
	go func() {
		value, _ := cur.Get()
		done <- value
	}()
	select {
	case value := <-done:
		if value != 45 {
			t.Fatalf("failed swap changed the value: %v", value)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session still locked after a panicking updater")
	}
	if session.Stats().Swaps != 0 || session.Diff().HasChanges {
		t.Fatalf("failed swap must leave the session untouched")
	}
}

func TestResetJSON(t *testing.T) {
	session := loadedSession(t)
	ctx := context.Background()

	weakness := mustCursor(t, session, staged.StoreStaged, "features[1].weakness")
	if err := weakness.ResetJSON(ctx, []byte(`{"type":"Psychic","multiplier":"x2"}`)); err != nil {
		t.Fatalf("reset json: %v", err)
	}
	got, err := staged.Read[*model.Weakness](weakness)
	if err != nil || got.Type != model.TypePsychic {
		t.Fatalf("unexpected weakness %+v (%v)", got, err)
	}

	rarity := mustCursor(t, session, staged.StoreStaged, "features[1].rarity")
	if err := rarity.ResetJSON(ctx, []byte(`null`)); err != nil {
		t.Fatalf("reset json: %v", err)
	}
	if !slices.Equal(session.Diff().Paths(), []string{"features[1].weakness.type", "features[1].rarity"}) {
		t.Fatalf("unexpected diff: %v", session.Diff().Paths())
	}

	if err := rarity.ResetJSON(ctx, []byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDiscard(t *testing.T) {
	session := loadedSession(t)
	ctx := context.Background()
	_ = mustCursor(t, session, staged.StoreStaged, "count").Reset(ctx, 3)
	_ = mustCursor(t, session, staged.StoreStaged, "features[3].name").Reset(ctx, "Wartortle")

	if err := session.Discard(ctx); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if session.Diff().HasChanges {
		t.Fatalf("discard should clear every change, got %v", session.Diff().Paths())
	}
}

func TestDiffTreeIsReadableThroughCursors(t *testing.T) {
	session := loadedSession(t)
	_ = mustCursor(t, session, staged.StoreStaged, "count").Reset(context.Background(), 1)

	modified, err := staged.Read[int](mustCursor(t, session, staged.StoreDiff, "summary.modifiedCount"))
	if err != nil || modified != 0 {
		t.Fatalf("a count change modifies no feature, got %d (%v)", modified, err)
	}
	changed, err := staged.Read[bool](mustCursor(t, session, staged.StoreDiff, "hasChanges"))
	if err != nil || !changed {
		t.Fatalf("expected hasChanges=true, got %v (%v)", changed, err)
	}
	first, err := staged.Read[path.Address](mustCursor(t, session, staged.StoreDiff, "changedPaths[0]"))
	if err != nil || first.String() != "count" {
		t.Fatalf("unexpected first changed path %v (%v)", first, err)
	}
}

func TestActivityEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	session := loadedSession(t, staged.WithActivityHooks("", capture), staged.WithActor("ash"))
	ctx := context.Background()

	_ = mustCursor(t, session, staged.StoreStaged, "features[1].hp").Swap(ctx, func(old any) any { return 50 })
	_ = mustCursor(t, session, staged.StoreCommitted, "count").Reset(ctx, 9)
	_ = session.Discard(ctx)

	verbs := capture.Verbs()
	want := []string{activity.VerbSessionLoaded, activity.VerbStagedSwapped, activity.VerbStagedReset}
	if !slices.Equal(verbs, want) {
		t.Fatalf("unexpected verbs %v, want %v", verbs, want)
	}
	swapped := capture.Events()[1]
	if swapped.ActorID != "ash" || swapped.ObjectID != "features[1].hp" || swapped.Channel != activity.DefaultChannel {
		t.Fatalf("unexpected swap event: %+v", swapped)
	}
	if swapped.Metadata["session_id"] != session.ID() || swapped.Metadata["modified_count"] != 1 {
		t.Fatalf("unexpected swap metadata: %+v", swapped.Metadata)
	}
}

func TestActivityFailureDoesNotFailSwap(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("audit offline")}
	session := loadedSession(t, staged.WithActivityHooks("audit", capture))
	if err := mustCursor(t, session, staged.StoreStaged, "count").Reset(context.Background(), 2); err != nil {
		t.Fatalf("hook failure leaked into swap: %v", err)
	}
}

func TestParseStoreID(t *testing.T) {
	for _, store := range staged.Stores {
		got, err := staged.ParseStoreID(string(store))
		if err != nil || got != store {
			t.Fatalf("round trip of %q failed: %v %v", store, got, err)
		}
	}
	if _, err := staged.ParseStoreID("draft"); !errors.Is(err, staged.ErrUnknownStore) {
		t.Fatalf("expected ErrUnknownStore, got %v", err)
	}
}
