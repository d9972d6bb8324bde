package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/schoolmon/internal/llm"
	"github.com/ppiankov/schoolmon/internal/model"
	"github.com/ppiankov/schoolmon/internal/verify"
)

// Fixture is a recorded (mail, oracle answer) pair with the outcome the
// verifier is expected to reach
type Fixture struct {
	Name       string       `yaml:"name"`
	Now        string       `yaml:"now,omitempty"` // YYYY-MM-DD or RFC 3339; empty means the real clock
	Source     string       `yaml:"source"`
	Extraction string       `yaml:"extraction"` // Raw oracle output, fences allowed
	Expect     *Expectation `yaml:"expect,omitempty"`

	Path string `yaml:"-"`
}

// Expectation lists what a fixture should produce. Only the populated
// fields are compared.
type Expectation struct {
	Verified         []string          `yaml:"verified,omitempty"`          // Titles, in order
	Rejected         map[string]string `yaml:"rejected,omitempty"`          // Title -> issue
	ConfidenceIssues []string          `yaml:"confidence_issues,omitempty"` // Exact list
}

// Clock returns the fixture's frozen "now"
func (f Fixture) Clock() (func() time.Time, error) {
	if f.Now == "" {
		return time.Now, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, f.Now); err == nil {
			return func() time.Time { return t }, nil
		}
	}
	return nil, fmt.Errorf("fixture %s: unparseable now %q", f.Name, f.Now)
}

// ReplayJob verifies one fixture
type ReplayJob struct {
	Fixture Fixture
}

// Execute parses the recorded oracle output and runs the verifier over it
func (j *ReplayJob) Execute(ctx context.Context) Result {
	res := &ReplayResult{Name: j.Fixture.Name, Path: j.Fixture.Path}

	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}

	now, err := j.Fixture.Clock()
	if err != nil {
		res.Error = err
		return res
	}

	candidate, err := llm.ParseExtraction(j.Fixture.Extraction)
	if err != nil {
		res.Error = fmt.Errorf("fixture %s: %w", j.Fixture.Name, err)
		return res
	}

	res.Extraction = verify.New(verify.WithNow(now)).Verify(candidate, j.Fixture.Source)
	if j.Fixture.Expect != nil {
		res.Mismatches = j.Fixture.Expect.Compare(res.Extraction)
	}
	return res
}

// ReplayResult is the outcome of one fixture
type ReplayResult struct {
	Name       string
	Path       string
	Extraction model.VerifiedExtraction
	Mismatches []string
	Error      error
}

// GetError returns the load error, or a summary of expectation mismatches
func (r *ReplayResult) GetError() error {
	if r.Error != nil {
		return r.Error
	}
	if len(r.Mismatches) > 0 {
		return fmt.Errorf("%s: %s", r.Name, strings.Join(r.Mismatches, "; "))
	}
	return nil
}

// Compare lists every way got differs from the expectation
func (e *Expectation) Compare(got model.VerifiedExtraction) []string {
	var out []string

	if e.Verified != nil {
		var titles []string
		for _, ev := range got.Verified() {
			titles = append(titles, ev.Title())
		}
		if !slices.Equal(titles, e.Verified) {
			out = append(out, fmt.Sprintf("verified %v, want %v", titles, e.Verified))
		}
	}

	if e.Rejected != nil {
		rejected := make(map[string]string)
		for _, ev := range got.Unverified() {
			rejected[ev.Title()] = ev.Verification.Issue
		}
		titles := make([]string, 0, len(e.Rejected))
		for title := range e.Rejected {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		for _, title := range titles {
			issue, ok := rejected[title]
			switch {
			case !ok:
				out = append(out, fmt.Sprintf("%q not rejected", title))
			case issue != e.Rejected[title]:
				out = append(out, fmt.Sprintf("%q rejected with %q, want %q", title, issue, e.Rejected[title]))
			}
		}
		if len(rejected) != len(e.Rejected) {
			out = append(out, fmt.Sprintf("%d rejected, want %d", len(rejected), len(e.Rejected)))
		}
	}

	if e.ConfidenceIssues != nil && !slices.Equal(got.ConfidenceIssues, e.ConfidenceIssues) {
		out = append(out, fmt.Sprintf("confidence issues %v, want %v", got.ConfidenceIssues, e.ConfidenceIssues))
	}

	return out
}

// ReplayProcessor replays many fixtures concurrently. Each verification pass
// is itself single-threaded.
type ReplayProcessor struct {
	concurrency int
}

// NewReplayProcessor creates a new replay processor
func NewReplayProcessor(concurrency int) *ReplayProcessor {
	return &ReplayProcessor{concurrency: concurrency}
}

// Run verifies every fixture and returns results in input order
func (b *ReplayProcessor) Run(ctx context.Context, fixtures []Fixture) []*ReplayResult {
	if len(fixtures) == 0 {
		return []*ReplayResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, f := range fixtures {
		pool.Submit(&ReplayJob{Fixture: f})
	}

	results := pool.Wait()

	out := make([]*ReplayResult, len(results))
	for i, r := range results {
		if rr, ok := r.(*ReplayResult); ok {
			out[i] = rr
			continue
		}
		out[i] = &ReplayResult{Name: fixtures[i].Name, Path: fixtures[i].Path, Error: context.Canceled}
	}
	return out
}

// RunDir loads every fixture under dir and replays them
func (b *ReplayProcessor) RunDir(ctx context.Context, dir string) ([]*ReplayResult, error) {
	fixtures, err := LoadFixtures(dir)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, fixtures), nil
}

// LoadFixtures reads *.yaml and *.yml files in dir, sorted by file name
func LoadFixtures(dir string) ([]Fixture, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob fixtures: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	fixtures := make([]Fixture, 0, len(paths))
	for _, path := range paths {
		f, err := LoadFixture(path)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

// LoadFixture reads a single fixture file
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	f.Path = path
	return f, nil
}
