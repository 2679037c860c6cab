package facade_test

import (
	"bytes"
	"testing"

	"github.com/nullradix/fd1440/facade"
	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/vdisk"
	"github.com/nullradix/fd1440/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMount(t *testing.T) (*vdisk.Disk, *facade.FileSystem) {
	t.Helper()
	disk := vdisk.New()
	fs := facade.New(disk)
	require.Nil(t, fs.Format("TESTVOL", true))
	require.Nil(t, fs.Mount())
	return disk, fs
}

func TestWriteReadDeleteRoundTrip(t *testing.T) {
	_, fs := mustMount(t)

	wfd, err := fs.Open("HELLO.TXT", facade.ModeWrite)
	require.Nil(t, err)
	n, err := fs.Write(wfd, []byte("hello floppy"))
	require.Nil(t, err)
	require.Equal(t, 12, n)
	require.Nil(t, fs.Close(wfd))

	st, err := fs.Stat("HELLO.TXT")
	require.Nil(t, err)
	assert.Equal(t, "HELLO.TXT", st.Name)
	assert.EqualValues(t, 12, st.Size)
	assert.False(t, st.IsDir)

	rfd, err := fs.Open("hello.txt", facade.ModeRead)
	require.Nil(t, err)
	buf := make([]byte, 32)
	n, err = fs.Read(rfd, buf)
	require.Nil(t, err)
	assert.Equal(t, "hello floppy", string(buf[:n]))
	require.Nil(t, fs.Close(rfd))

	require.Nil(t, fs.Delete("HELLO.TXT"))
	_, err = fs.Stat("HELLO.TXT")
	assert.NotNil(t, err)
}

func TestSeekReopensAndSkipReads(t *testing.T) {
	_, fs := mustMount(t)

	wfd, err := fs.Open("DATA.BIN", facade.ModeWrite)
	require.Nil(t, err)
	payload := bytes.Repeat([]byte("0123456789"), 100) // 1000 bytes
	_, err = fs.Write(wfd, payload)
	require.Nil(t, err)
	require.Nil(t, fs.Close(wfd))

	rfd, err := fs.Open("DATA.BIN", facade.ModeRead)
	require.Nil(t, err)

	require.Nil(t, fs.Seek(rfd, 500))
	pos, err := fs.Tell(rfd)
	require.Nil(t, err)
	assert.EqualValues(t, 500, pos)

	buf := make([]byte, 10)
	n, err := fs.Read(rfd, buf)
	require.Nil(t, err)
	assert.Equal(t, payload[500:500+n], buf[:n])
}

func TestReadAtRestoresPosition(t *testing.T) {
	_, fs := mustMount(t)

	wfd, err := fs.Open("F.TXT", facade.ModeWrite)
	require.Nil(t, err)
	_, err = fs.Write(wfd, []byte("abcdefghijklmnop"))
	require.Nil(t, err)
	require.Nil(t, fs.Close(wfd))

	rfd, err := fs.Open("F.TXT", facade.ModeRead)
	require.Nil(t, err)

	buf := make([]byte, 4)
	_, err = fs.Read(rfd, buf)
	require.Nil(t, err)
	assert.Equal(t, "abcd", string(buf))

	pos, err := fs.Tell(rfd)
	require.Nil(t, err)

	out := make([]byte, 4)
	n, err := fs.ReadAt(rfd, 8, out)
	require.Nil(t, err)
	assert.Equal(t, "ijkl", string(out[:n]))

	restored, err := fs.Tell(rfd)
	require.Nil(t, err)
	assert.Equal(t, pos, restored)
}

func TestWriteAtIsUnsupported(t *testing.T) {
	_, fs := mustMount(t)
	wfd, err := fs.Open("X.TXT", facade.ModeWrite)
	require.Nil(t, err)
	_, err = fs.WriteAt(wfd, 0, []byte("x"))
	assert.ErrorIs(t, err, ferr.Invalid)
}

func TestOpenDirListsEntriesAndSkipsVolumeLabel(t *testing.T) {
	_, fs := mustMount(t)

	for _, name := range []string{"A.TXT", "B.TXT"} {
		fd, err := fs.Open(name, facade.ModeWrite)
		require.Nil(t, err)
		_, err = fs.Write(fd, []byte("x"))
		require.Nil(t, err)
		require.Nil(t, fs.Close(fd))
	}

	it, err := fs.OpenDir("/")
	require.Nil(t, err)

	var names []string
	it.List(func(d wire.Dirent) {
		names = append(names, d.DisplayName())
	})
	assert.ElementsMatch(t, []string{"A.TXT", "B.TXT"}, names)
}

func TestOpenDirNonRootFailsNotFound(t *testing.T) {
	_, fs := mustMount(t)
	_, err := fs.OpenDir("/sub")
	assert.ErrorIs(t, err, ferr.NotFound)
}

func TestWriteProtectedMediumBlocksWrites(t *testing.T) {
	disk, fs := mustMount(t)
	disk.SetWriteProtected(true)

	_, err := fs.Open("NOPE.TXT", facade.ModeWrite)
	assert.ErrorIs(t, err, ferr.WriteProtected)
}

// TestWriteProtectedMediumBlocksDeleteButAllowsRead covers the other two
// clauses of the write-protect scenario: delete also fails WriteProtected,
// but reading a file already on the medium still succeeds.
func TestWriteProtectedMediumBlocksDeleteButAllowsRead(t *testing.T) {
	disk, fs := mustMount(t)

	wfd, err := fs.Open("Y.TXT", facade.ModeWrite)
	require.Nil(t, err)
	_, err = fs.Write(wfd, []byte("preexisting"))
	require.Nil(t, err)
	require.Nil(t, fs.Close(wfd))

	disk.SetWriteProtected(true)

	err = fs.Delete("Y.TXT")
	assert.ErrorIs(t, err, ferr.WriteProtected)

	rfd, err := fs.Open("Y.TXT", facade.ModeRead)
	require.Nil(t, err)
	buf := make([]byte, 11)
	n, err := fs.Read(rfd, buf)
	require.Nil(t, err)
	assert.Equal(t, "preexisting", string(buf[:n]))
	require.Nil(t, fs.Close(rfd))
}

func TestDiskChangeInvalidatesMountAndOpenFiles(t *testing.T) {
	disk, fs := mustMount(t)

	wfd, err := fs.Open("A.TXT", facade.ModeWrite)
	require.Nil(t, err)
	_, err = fs.Write(wfd, []byte("x"))
	require.Nil(t, err)
	require.Nil(t, fs.Close(wfd))

	rfd, err := fs.Open("A.TXT", facade.ModeRead)
	require.Nil(t, err)

	disk.SimulateMediaChange()

	_, err = fs.Stat("A.TXT")
	assert.ErrorIs(t, err, ferr.DiskChanged)

	_, err = fs.Stat("A.TXT")
	assert.ErrorIs(t, err, ferr.NotMounted)

	_, err = fs.Tell(rfd)
	assert.ErrorIs(t, err, ferr.BadHandle)
}

func TestOpenFileTableExhaustionReturnsTooMany(t *testing.T) {
	_, fs := mustMount(t)

	wfd, err := fs.Open("A.TXT", facade.ModeWrite)
	require.Nil(t, err)
	_, err = fs.Write(wfd, []byte("seed"))
	require.Nil(t, err)
	require.Nil(t, fs.Close(wfd))

	var fds []int
	for i := 0; i < facade.OpenFileTableSize; i++ {
		fd, err := fs.Open("A.TXT", facade.ModeRead)
		require.Nil(t, err)
		fds = append(fds, fd)
	}

	_, err = fs.Open("A.TXT", facade.ModeRead)
	assert.ErrorIs(t, err, ferr.TooMany)

	for _, fd := range fds {
		require.Nil(t, fs.Close(fd))
	}
}
