package scraper

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/ratelimit"
)

// fakePager serves canned pages. With alwaysNext set it pretends a next-page
// control exists forever.
type fakePager struct {
	openErr     error
	openedURL   string
	pages       [][]string
	cursor      int
	alwaysNext  bool
	extractions int
}

func (p *fakePager) Open(_ context.Context, url string) error {
	p.openedURL = url
	return p.openErr
}

func (p *fakePager) ItemURLs(context.Context) []string {
	p.extractions++
	if p.cursor < len(p.pages) {
		return p.pages[p.cursor]
	}
	return nil
}

func (p *fakePager) NextPage(context.Context) bool {
	if p.alwaysNext {
		p.cursor++
		return true
	}
	if p.cursor+1 < len(p.pages) {
		p.cursor++
		return true
	}
	return false
}

// recordingSink collects appended batches per path.
type recordingSink struct {
	appends map[string][][]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{appends: make(map[string][][]string)}
}

func (s *recordingSink) AppendURLs(path string, urls []string) error {
	s.appends[path] = append(s.appends[path], urls)
	return nil
}

func (s *recordingSink) all(path string) []string {
	var out []string
	for _, batch := range s.appends[path] {
		out = append(out, batch...)
	}
	return out
}

func newTestWalker() *Walker {
	return NewWalker(ratelimit.None{}, slog.Default())
}

func newSession(limit int) *Session {
	return &Session{
		Category:    "zeny",
		StartingURL: "https://www.vinted.cz/zeny/obleceni",
		OutputPath:  "out.txt",
		PageLimit:   limit,
	}
}

func TestWalkStopsWhenNextPageAbsent(t *testing.T) {
	pager := &fakePager{pages: [][]string{
		{"u1", "u2", "u3"},
		{"u4", "u5"},
	}}
	sink := newRecordingSink()

	final, err := newTestWalker().Walk(context.Background(), newSession(1000), pager, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, final)
	assert.Equal(t, 2, pager.extractions)
	assert.Equal(t, []string{"u1", "u2", "u3", "u4", "u5"}, sink.all("out.txt"))
	assert.Equal(t, "https://www.vinted.cz/zeny/obleceni", pager.openedURL)
}

func TestWalkNeverExceedsPageLimit(t *testing.T) {
	pager := &fakePager{alwaysNext: true, pages: [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}}
	sink := newRecordingSink()

	final, err := newTestWalker().Walk(context.Background(), newSession(3), pager, sink)
	require.NoError(t, err)

	assert.Equal(t, 3, final)
	assert.Equal(t, 3, pager.extractions)
}

func TestWalkSinglePageLimit(t *testing.T) {
	pager := &fakePager{alwaysNext: true, pages: [][]string{{"a"}, {"b"}}}
	sink := newRecordingSink()

	final, err := newTestWalker().Walk(context.Background(), newSession(1), pager, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, final)
	assert.Equal(t, []string{"a"}, sink.all("out.txt"))
}

func TestWalkZeroPageLimitIsInvalid(t *testing.T) {
	_, err := newTestWalker().Walk(context.Background(), newSession(0), &fakePager{}, newRecordingSink())
	assert.Error(t, err)
}

func TestWalkNegativePageLimitIsUnbounded(t *testing.T) {
	pager := &fakePager{pages: [][]string{{"a"}, {"b"}, {"c"}}}
	sink := newRecordingSink()

	final, err := newTestWalker().Walk(context.Background(), newSession(-1), pager, sink)
	require.NoError(t, err)

	assert.Equal(t, 3, final)
	assert.Equal(t, []string{"a", "b", "c"}, sink.all("out.txt"))
}

func TestWalkOpenFailurePropagates(t *testing.T) {
	pager := &fakePager{openErr: errors.New("session lost")}

	_, err := newTestWalker().Walk(context.Background(), newSession(10), pager, newRecordingSink())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session lost")
}

func TestWalkBrokenPageTerminatesEarlyAndCleanly(t *testing.T) {
	// A page where every element lookup fails behaves as "no items, no next
	// control": the walk ends at page 1 without an error.
	pager := &fakePager{pages: [][]string{nil}}
	sink := newRecordingSink()

	final, err := newTestWalker().Walk(context.Background(), newSession(100), pager, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, final)
	assert.Empty(t, sink.all("out.txt"))
}

func TestWalkDuplicateURLsAcrossPagesReachSink(t *testing.T) {
	pager := &fakePager{pages: [][]string{
		{"u1", "u2"},
		{"u2", "u3"},
	}}
	sink := newRecordingSink()

	_, err := newTestWalker().Walk(context.Background(), newSession(1000), pager, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"u1", "u2", "u2", "u3"}, sink.all("out.txt"))
}
