package source

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vigilbox/vigil-backend/internal/model"
)

func sampleSet() *model.QuestionSet {
	return &model.QuestionSet{
		ExamName:        "Offline Mock",
		DurationSeconds: 5400,
		MaxViolations:   3,
		Questions: []model.QuestionRecord{
			{ID: 1, Topic: "geometry", Question: "Sum of triangle angles?", Options: []string{"90", "180", "270"}, Answer: json.RawMessage(`"180"`)},
			{ID: 2, Topic: "algebra", Question: "2x = 10, x = ?", Options: []string{"2", "5", "10"}, Answer: json.RawMessage(`"5"`)},
			{ID: 3, Topic: "algebra", Question: "x^2 = 9, positive x?", Options: []string{"3", "9", "81"}, Answer: json.RawMessage(`"3"`)},
		},
	}
}

func TestBundleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleSet()

	if err := SaveBundle(dir, "mock-a", want); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	path, err := BundlePath(dir, "mock-a")
	if err != nil {
		t.Fatalf("BundlePath: %v", err)
	}
	got, err := OpenBundle(path)
	if err != nil {
		t.Fatalf("OpenBundle: %v", err)
	}

	if got.ExamName != want.ExamName {
		t.Errorf("exam name = %q, want %q", got.ExamName, want.ExamName)
	}
	if got.DurationSeconds != want.DurationSeconds {
		t.Errorf("duration = %d, want %d", got.DurationSeconds, want.DurationSeconds)
	}
	if got.MaxViolations != want.MaxViolations {
		t.Errorf("max violations = %d, want %d", got.MaxViolations, want.MaxViolations)
	}
	if len(got.Questions) != len(want.Questions) {
		t.Fatalf("questions = %d, want %d", len(got.Questions), len(want.Questions))
	}
	for i, q := range got.Questions {
		w := want.Questions[i]
		if q.ID != w.ID || q.Topic != w.Topic || q.Question != w.Question {
			t.Errorf("question %d = %+v, want %+v", i, q, w)
		}
		if len(q.Options) != len(w.Options) {
			t.Errorf("question %d options = %v, want %v", i, q.Options, w.Options)
		}
		if string(q.Answer) != string(w.Answer) {
			t.Errorf("question %d answer = %s, want %s", i, q.Answer, w.Answer)
		}
	}
}

func TestSaveBundleReplacesExisting(t *testing.T) {
	dir := t.TempDir()

	first := sampleSet()
	if err := SaveBundle(dir, "mock", first); err != nil {
		t.Fatalf("SaveBundle first: %v", err)
	}

	second := sampleSet()
	second.ExamName = "Offline Mock v2"
	second.Questions = second.Questions[:2]
	if err := SaveBundle(dir, "mock", second); err != nil {
		t.Fatalf("SaveBundle second: %v", err)
	}

	path, _ := BundlePath(dir, "mock")
	got, err := OpenBundle(path)
	if err != nil {
		t.Fatalf("OpenBundle: %v", err)
	}
	if got.ExamName != "Offline Mock v2" || len(got.Questions) != 2 {
		t.Errorf("bundle not replaced: %q with %d questions", got.ExamName, len(got.Questions))
	}
}

func TestBundlePathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"", "../etc/passwd", "a/b", `a\b`, "x..y"} {
		if _, err := BundlePath(dir, name); !errors.Is(err, ErrSourceInvalid) {
			t.Errorf("BundlePath(%q) err = %v, want ErrSourceInvalid", name, err)
		}
	}
}

func TestBundlePathMissing(t *testing.T) {
	if _, err := BundlePath(t.TempDir(), "nope"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("err = %v, want ErrSourceNotFound", err)
	}
}

func TestOpenBundleCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk"+BundleExt)
	if err := os.WriteFile(path, []byte("this is not a database"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	if _, err := OpenBundle(path); !errors.Is(err, ErrSourceInvalid) {
		t.Errorf("err = %v, want ErrSourceInvalid", err)
	}
}

func TestListBundles(t *testing.T) {
	dir := t.TempDir()
	if err := SaveBundle(dir, "alpha", sampleSet()); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	beta := sampleSet()
	beta.ExamName = "Beta Paper"
	if err := SaveBundle(dir, "beta", beta); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	// Noise that must not show up in the listing.
	os.WriteFile(filepath.Join(dir, "junk"+BundleExt), []byte("garbage"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644)

	infos, err := ListBundles(dir)
	if err != nil {
		t.Fatalf("ListBundles: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("bundles = %d, want 2", len(infos))
	}
	names := map[string]model.BundleInfo{}
	for _, b := range infos {
		names[b.Name] = b
	}
	if b, ok := names["alpha"]; !ok || b.QuestionCount != 3 {
		t.Errorf("alpha = %+v", b)
	}
	if b, ok := names["beta"]; !ok || b.ExamName != "Beta Paper" {
		t.Errorf("beta = %+v", b)
	}
}

func TestListBundlesMissingDir(t *testing.T) {
	infos, err := ListBundles(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil || infos != nil {
		t.Errorf("ListBundles = (%v, %v), want (nil, nil)", infos, err)
	}
}

func TestResolverBundleKind(t *testing.T) {
	dir := t.TempDir()
	if err := SaveBundle(dir, "mock", sampleSet()); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	r := NewResolver(nil, nil, nil, dir, zerolog.Nop())

	set, err := r.Resolve(context.Background(), model.SourceRef{Kind: model.SourceBundle, Bundle: "mock"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if set.ExamName != "Offline Mock" || len(set.Questions) != 3 {
		t.Errorf("set = %q with %d questions", set.ExamName, len(set.Questions))
	}

	if _, err := r.Resolve(context.Background(), model.SourceRef{Kind: model.SourceBundle, Bundle: "ghost"}); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("missing bundle err = %v, want ErrSourceNotFound", err)
	}
	if _, err := r.Resolve(context.Background(), model.SourceRef{Kind: "floppy"}); !errors.Is(err, ErrSourceInvalid) {
		t.Errorf("unknown kind err = %v, want ErrSourceInvalid", err)
	}
}
