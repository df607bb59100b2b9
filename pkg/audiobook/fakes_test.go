package audiobook

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeTag struct {
	fields   map[ItemKey]string
	pictures []Picture
}

func (t *fakeTag) Get(key ItemKey) (string, bool) {
	v, ok := t.fields[key]
	return v, ok
}

func (t *fakeTag) Pictures() []Picture {
	return t.pictures
}

type fakeTaggedFile struct {
	tag      *fakeTag
	duration time.Duration
}

func (f *fakeTaggedFile) PrimaryTag() TagSource {
	if f.tag == nil {
		return nil
	}
	return f.tag
}

func (f *fakeTaggedFile) Duration() time.Duration {
	return f.duration
}

type fakeTrack struct {
	id       uint32
	media    MediaType
	mediaErr error
	samples  []*Sample
}

func (t *fakeTrack) ID() uint32 { return t.id }

func (t *fakeTrack) MediaType() (MediaType, error) {
	if t.mediaErr != nil {
		return "", t.mediaErr
	}
	return t.media, nil
}

func (t *fakeTrack) SampleCount() uint32 { return uint32(len(t.samples)) }

type fakeContainer struct {
	tracks  []*fakeTrack
	readErr error
	closed  bool
}

func (c *fakeContainer) Tracks() []Track {
	tracks := make([]Track, 0, len(c.tracks))
	for _, t := range c.tracks {
		tracks = append(tracks, t)
	}
	return tracks
}

func (c *fakeContainer) ReadSample(trackID, sampleID uint32) (*Sample, error) {
	if c.readErr != nil {
		return nil, c.readErr
	}
	for _, t := range c.tracks {
		if t.id != trackID {
			continue
		}
		if sampleID == 0 || int(sampleID) > len(t.samples) {
			return nil, errors.Errorf("sample %d out of range", sampleID)
		}
		return t.samples[sampleID-1], nil
	}
	return nil, errors.Errorf("track %d not found", trackID)
}

func (c *fakeContainer) Close() error {
	c.closed = true
	return nil
}

// fakeSources serves tags and containers keyed by file path.
type fakeSources struct {
	tags       map[string]*fakeTaggedFile
	containers map[string]*fakeContainer
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		tags:       map[string]*fakeTaggedFile{},
		containers: map[string]*fakeContainer{},
	}
}

func (s *fakeSources) ReadTags(_ context.Context, path string) (TaggedFile, error) {
	f, ok := s.tags[path]
	if !ok {
		return nil, errors.Errorf("no tags for %s", path)
	}
	return f, nil
}

func (s *fakeSources) OpenContainer(_ context.Context, path string) (ContainerSource, error) {
	c, ok := s.containers[path]
	if !ok {
		return nil, errors.New("not a container")
	}
	return c, nil
}

func (s *fakeSources) builder() *Builder {
	return NewBuilder(s, s, BuilderOptions{})
}

func chapterPayload(title string) []byte {
	payload := []byte{byte(len(title) >> 8), byte(len(title))}
	payload = append(payload, title...)
	return append(payload, 0, 0, 0, 12, 'e', 'n', 'c', 'd', 0, 0, 1, 0)
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0600))
	return path
}

func strPtr(s string) *string {
	return &s
}
