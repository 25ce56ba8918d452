package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tasklight/tasklight/internal/fs"
	"github.com/tasklight/tasklight/internal/testutil"
)

func newTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()

	dir := t.TempDir()
	clock := testutil.NewClock()
	ids := testutil.NewIDs()

	l := New(fs.NewReal(), dir, "Files", clock.Now, ids.NewID)

	return l, dir
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func readLedgerFile(t *testing.T, dir string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, "Files", "Info.txt"))
	require.NoError(t, err)

	return string(data)
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("skips blank lines between sections", func(t *testing.T) {
		t.Parallel()

		text := "[Files/a.pdf]\r\n" +
			"Guid:00000000-0000-7000-8000-000000000001\r\n" +
			"ParentGuid:00000000-0000-7000-8000-000000000009\r\n" +
			"AttachedAt:2024-01-01T00:00:01Z\r\n" +
			"ModifiedAt:2024-01-01T00:00:00Z\r\n" +
			"\r\n" +
			"[Files/b.pdf]\r\n" +
			"Guid:00000000-0000-7000-8000-000000000002\r\n" +
			"ParentGuid:\r\n" +
			"AttachedAt:2024-01-01T00:00:02Z\r\n" +
			"ModifiedAt:2024-01-01T00:00:00Z\r\n"

		attachments, warnings := Parse(text)
		require.Empty(t, warnings)
		require.Len(t, attachments, 2)

		require.Equal(t, "Files/a.pdf", attachments[0].RelativePath)
		require.Equal(t, "00000000-0000-7000-8000-000000000009", attachments[0].ParentGuid)
		require.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), attachments[0].AttachedAtUtc)

		// Empty ParentGuid is a list-level attachment, not an error.
		require.Equal(t, "", attachments[1].ParentGuid)
	})

	t.Run("malformed section becomes warning", func(t *testing.T) {
		t.Parallel()

		text := "[Files/broken.pdf]\r\n" +
			"ParentGuid:00000000-0000-7000-8000-000000000009\r\n" +
			"\r\n" +
			"[Files/ok.pdf]\r\n" +
			"Guid:00000000-0000-7000-8000-000000000002\r\n" +
			"AttachedAt:2024-01-01T00:00:02Z\r\n" +
			"ModifiedAt:2024-01-01T00:00:00Z\r\n"

		attachments, warnings := Parse(text)
		require.Len(t, warnings, 1)
		require.Equal(t, "Files/broken.pdf", warnings[0].Path)
		require.ErrorContains(t, warnings[0].Err, "Guid")

		require.Len(t, attachments, 1)
		require.Equal(t, "Files/ok.pdf", attachments[0].RelativePath)
	})

	t.Run("bad timestamp becomes warning", func(t *testing.T) {
		t.Parallel()

		text := "[Files/x.pdf]\r\n" +
			"Guid:00000000-0000-7000-8000-000000000001\r\n" +
			"AttachedAt:yesterday\r\n" +
			"ModifiedAt:2024-01-01T00:00:00Z\r\n"

		attachments, warnings := Parse(text)
		require.Empty(t, attachments)
		require.Len(t, warnings, 1)
	})

	t.Run("tombstone needs no timestamps", func(t *testing.T) {
		t.Parallel()

		text := "[Files/x.pdf]\r\n" +
			"Guid:00000000-0000-7000-8000-000000000001\r\n" +
			"Deleted:true\r\n"

		attachments, warnings := Parse(text)
		require.Empty(t, warnings)
		require.Len(t, attachments, 1)
		require.True(t, attachments[0].Deleted)
	})
}

func TestAttachCopiesPayload(t *testing.T) {
	t.Parallel()

	l, dir := newTestLedger(t)

	src := writeSource(t, "report.pdf", "payload bytes")

	attachment, err := l.Attach(src, "00000000-0000-7000-8000-000000000099")
	require.NoError(t, err)
	require.Equal(t, "Files/report.pdf", attachment.RelativePath)
	require.Equal(t, "00000000-0000-7000-8000-000000000099", attachment.ParentGuid)

	// Copy, never move.
	_, err = os.Stat(src)
	require.NoError(t, err)

	copied, err := os.ReadFile(filepath.Join(dir, "Files", "report.pdf"))
	require.NoError(t, err)
	require.Equal(t, "payload bytes", string(copied))

	live, warnings, err := l.List()
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, live, 1)
	require.Equal(t, attachment.Guid, live[0].Guid)
}

func TestAttachCollisionChain(t *testing.T) {
	t.Parallel()

	l, dir := newTestLedger(t)

	var rels []string

	for i := 0; i < 3; i++ {
		src := writeSource(t, "report.pdf", "v"+string(rune('0'+i)))

		attachment, err := l.Attach(src, "")
		require.NoError(t, err)

		rels = append(rels, attachment.RelativePath)
	}

	require.Equal(t, []string{
		"Files/report.pdf",
		"Files/1/report.pdf",
		"Files/2/report.pdf",
	}, rels)

	// Earlier payloads are untouched by later attaches.
	first, err := os.ReadFile(filepath.Join(dir, "Files", "report.pdf"))
	require.NoError(t, err)
	require.Equal(t, "v0", string(first))

	live, _, err := l.List()
	require.NoError(t, err)
	require.Len(t, live, 3)
}

func TestAttachReservedName(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)

	// The bare slot is the metadata file itself, so the first payload named
	// Info.txt goes straight to a numbered subdirectory.
	src := writeSource(t, "Info.txt", "not the ledger")

	attachment, err := l.Attach(src, "")
	require.NoError(t, err)
	require.Equal(t, "Files/1/Info.txt", attachment.RelativePath)
}

func TestAttachOnlyAppends(t *testing.T) {
	t.Parallel()

	l, dir := newTestLedger(t)

	_, err := l.Attach(writeSource(t, "a.pdf", "a"), "")
	require.NoError(t, err)

	before := readLedgerFile(t, dir)

	_, err = l.Attach(writeSource(t, "b.pdf", "b"), "")
	require.NoError(t, err)

	after := readLedgerFile(t, dir)
	require.True(t, strings.HasPrefix(after, before))
	require.Greater(t, len(after), len(before))
}

func TestDetach(t *testing.T) {
	t.Parallel()

	l, dir := newTestLedger(t)

	attachment, err := l.Attach(writeSource(t, "a.pdf", "a"), "")
	require.NoError(t, err)

	kept, err := l.Attach(writeSource(t, "b.pdf", "b"), "")
	require.NoError(t, err)

	before := readLedgerFile(t, dir)

	require.NoError(t, l.Detach(attachment.Guid))

	// The tombstone is appended; nothing already written changes, and the
	// payload stays on disk.
	after := readLedgerFile(t, dir)
	require.True(t, strings.HasPrefix(after, before))

	_, err = os.Stat(filepath.Join(dir, "Files", "a.pdf"))
	require.NoError(t, err)

	live, _, err := l.List()
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, kept.Guid, live[0].Guid)

	err = l.Detach(attachment.Guid)
	require.ErrorIs(t, err, ErrAttachmentNotFound)
}

func TestListMissingLedgerIsEmpty(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)

	live, warnings, err := l.List()
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Empty(t, live)
}
