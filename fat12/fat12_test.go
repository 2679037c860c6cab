package fat12_test

import (
	"bytes"
	"testing"

	"github.com/nullradix/fd1440/fat12"
	"github.com/nullradix/fd1440/vdisk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFormatAndInit(t *testing.T, label string) (*vdisk.Disk, *fat12.Engine) {
	t.Helper()
	disk := vdisk.New()

	err := fat12.Format(disk, label, true)
	require.Nil(t, err)

	engine, err := fat12.Init(disk)
	require.Nil(t, err)
	return disk, engine
}

func TestFormatProducesMountableFilesystem(t *testing.T) {
	_, engine := mustFormatAndInit(t, "TESTDISK")

	assert.EqualValues(t, 2880, engine.BPB.TotalSectors)
	assert.EqualValues(t, 2, engine.BPB.NumFATs)
	assert.EqualValues(t, 224, engine.BPB.RootEntries)
	assert.EqualValues(t, 33, engine.BPB.DataStart)
	assert.EqualValues(t, 2847, engine.BPB.TotalClusters)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	_, engine := mustFormatAndInit(t, "")

	payload := bytes.Repeat([]byte("the quick brown fox "), 200) // > one cluster

	batch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
	w, err := engine.OpenWriter(batch, "HELLO.TXT")
	require.Nil(t, err)

	n, err := w.Write(payload)
	require.Nil(t, err)
	require.Equal(t, len(payload), n)
	require.Nil(t, w.Close())

	dirent, _, err := engine.Find("hello.txt")
	require.Nil(t, err)
	assert.Equal(t, uint32(len(payload)), dirent.Size)
	assert.Equal(t, "HELLO.TXT", dirent.DisplayName())

	reader, err := engine.OpenReader(dirent)
	require.Nil(t, err)

	got := make([]byte, 0, len(payload))
	buf := make([]byte, 64)
	for {
		n, rerr := reader.Read(buf)
		got = append(got, buf[:n]...)
		if rerr != nil {
			break
		}
	}
	assert.Equal(t, payload, got)
}

func TestOverwriteExistingFileFreesOldChain(t *testing.T) {
	_, engine := mustFormatAndInit(t, "")

	batch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
	w, err := engine.OpenWriter(batch, "A.TXT")
	require.Nil(t, err)
	_, err = w.Write(bytes.Repeat([]byte{1}, 4000))
	require.Nil(t, err)
	require.Nil(t, w.Close())

	old, _, err := engine.Find("A.TXT")
	require.Nil(t, err)

	batch2 := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
	w2, err := engine.OpenWriter(batch2, "A.TXT")
	require.Nil(t, err)
	_, err = w2.Write([]byte("short"))
	require.Nil(t, err)
	require.Nil(t, w2.Close())

	dirent, _, err := engine.Find("A.TXT")
	require.Nil(t, err)
	assert.EqualValues(t, 5, dirent.Size)

	assert.NotEqual(t, old.StartCluster, dirent.StartCluster)
	freed, err := engine.GetEntry(int(old.StartCluster))
	require.Nil(t, err)
	assert.Equal(t, 0, freed)
}

func TestDeleteFreesChainAndMarksSlotDeleted(t *testing.T) {
	_, engine := mustFormatAndInit(t, "")

	batch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
	w, err := engine.OpenWriter(batch, "GONE.TXT")
	require.Nil(t, err)
	_, err = w.Write([]byte("data"))
	require.Nil(t, err)
	require.Nil(t, w.Close())

	before, idx, err := engine.Find("GONE.TXT")
	require.Nil(t, err)

	delBatch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
	require.Nil(t, engine.Delete(delBatch, "GONE.TXT"))

	_, _, err = engine.Find("GONE.TXT")
	assert.NotNil(t, err)

	freed, err := engine.GetEntry(int(before.StartCluster))
	require.Nil(t, err)
	assert.Equal(t, 0, freed)

	slot, err := engine.ReadRootEntry(idx)
	require.Nil(t, err)
	assert.EqualValues(t, 0xE5, slot.Name[0])
}

func TestFindMissingFileReturnsNotFound(t *testing.T) {
	_, engine := mustFormatAndInit(t, "")
	_, _, err := engine.Find("NOPE.TXT")
	assert.NotNil(t, err)
}

func TestLargeFileSpansExpectedClusterChainLength(t *testing.T) {
	_, engine := mustFormatAndInit(t, "")

	payload := make([]byte, 2000)
	for i := range payload {
		payload[i] = byte(i & 0xFF)
	}

	batch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
	w, err := engine.OpenWriter(batch, "BIG.DAT")
	require.Nil(t, err)
	n, err := w.Write(payload)
	require.Nil(t, err)
	require.Equal(t, len(payload), n)
	require.Nil(t, w.Close())

	dirent, _, err := engine.Find("BIG.DAT")
	require.Nil(t, err)
	assert.EqualValues(t, len(payload), dirent.Size)

	clusters := 0
	cluster := int(dirent.StartCluster)
	for engine.IsValidCluster(cluster) {
		clusters++
		next, err := engine.GetEntry(cluster)
		require.Nil(t, err)
		if fat12.IsEndOfChain(next) {
			break
		}
		cluster = next
	}
	assert.Equal(t, 4, clusters)

	reader, err := engine.OpenReader(dirent)
	require.Nil(t, err)
	got := make([]byte, 0, len(payload))
	buf := make([]byte, 64)
	for {
		n, rerr := reader.Read(buf)
		got = append(got, buf[:n]...)
		if rerr != nil {
			break
		}
	}
	assert.Equal(t, payload, got)
}

func TestMultipleFilesWrittenThenReReadMatchByteForByte(t *testing.T) {
	_, engine := mustFormatAndInit(t, "")

	names := []string{"CYCLE0.DAT", "CYCLE1.DAT", "CYCLE2.DAT"}
	payloads := make([][]byte, len(names))

	for cycle, name := range names {
		payload := make([]byte, 1024)
		for i := range payload {
			payload[i] = byte((cycle*100 + i) & 0xFF)
		}
		payloads[cycle] = payload

		batch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
		w, err := engine.OpenWriter(batch, name)
		require.Nil(t, err)
		_, err = w.Write(payload)
		require.Nil(t, err)
		require.Nil(t, w.Close())
	}

	for cycle, name := range names {
		dirent, _, err := engine.Find(name)
		require.Nil(t, err)

		reader, err := engine.OpenReader(dirent)
		require.Nil(t, err)
		got := make([]byte, 0, len(payloads[cycle]))
		buf := make([]byte, 64)
		for {
			n, rerr := reader.Read(buf)
			got = append(got, buf[:n]...)
			if rerr != nil {
				break
			}
		}
		assert.Equal(t, payloads[cycle], got)
	}
}

func TestFillToCapacityThenDeleteEveryOtherThenRefillRoundTrip(t *testing.T) {
	_, engine := mustFormatAndInit(t, "")

	// Fill the root directory toward capacity with small single-cluster
	// files, each checksummed by its own content so survival is verifiable.
	const fileCount = 40
	var names []string
	checksum := func(name string) byte {
		var sum byte
		for i := 0; i < len(name); i++ {
			sum += name[i]
		}
		return sum
	}

	for i := 0; i < fileCount; i++ {
		name := fileNameFor(i)
		names = append(names, name)

		batch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
		w, err := engine.OpenWriter(batch, name)
		require.Nil(t, err)
		_, err = w.Write([]byte{checksum(name)})
		require.Nil(t, err)
		require.Nil(t, w.Close())
	}

	// Delete every other file.
	var survivors, deleted []string
	for i, name := range names {
		if i%2 == 0 {
			deleted = append(deleted, name)
			delBatch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
			require.Nil(t, engine.Delete(delBatch, name))
		} else {
			survivors = append(survivors, name)
		}
	}

	// Surviving files still read back with their original checksum byte.
	for _, name := range survivors {
		dirent, _, err := engine.Find(name)
		require.Nil(t, err)
		reader, err := engine.OpenReader(dirent)
		require.Nil(t, err)
		buf := make([]byte, 1)
		_, err = reader.Read(buf)
		require.Nil(t, err)
		assert.Equal(t, checksum(name), buf[0])
	}

	// Deleted files are gone.
	for _, name := range deleted {
		_, _, err := engine.Find(name)
		assert.NotNil(t, err)
	}

	// The freed slots and clusters can be reused by new files.
	for i := 0; i < len(deleted); i++ {
		name := "REFILL" + string(rune('A'+i)) + ".DAT"
		batch := fat12.NewWriteBatch(engine, fat12.BatchCapacity)
		w, err := engine.OpenWriter(batch, name)
		require.Nil(t, err)
		_, err = w.Write([]byte{checksum(name)})
		require.Nil(t, err)
		require.Nil(t, w.Close())

		dirent, _, err := engine.Find(name)
		require.Nil(t, err)
		reader, err := engine.OpenReader(dirent)
		require.Nil(t, err)
		buf := make([]byte, 1)
		_, err = reader.Read(buf)
		require.Nil(t, err)
		assert.Equal(t, checksum(name), buf[0])
	}
}

func fileNameFor(i int) string {
	return string(rune('A'+(i/10))) + string(rune('0'+(i%10))) + "FILE.DAT"
}

func TestLBAToCHSAndBackAreConsistent(t *testing.T) {
	_, engine := mustFormatAndInit(t, "")
	for lba := uint32(0); lba < 2880; lba += 37 {
		track, side, sectorN := engine.LBAToCHS(lba)
		assert.GreaterOrEqual(t, sectorN, 1)
		assert.LessOrEqual(t, sectorN, 18)
		assert.Less(t, side, 2)
		assert.Less(t, track, 80)
		assert.Equal(t, lba, uint32((track*2+side)*18+sectorN-1))
	}
}
