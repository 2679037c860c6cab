// Package fsck implements the consistency checker spec §8 describes as a
// battery of testable properties: FAT mirror agreement, directory-entry
// well-formedness, and cluster-chain validity (no cycles, no out-of-range
// links, no cluster claimed by two files at once). Every violation is
// collected rather than stopping at the first one, the way the teacher
// aggregates independent validation failures with hashicorp/go-multierror
// elsewhere in the stack; Check returns a single *multierror.Error (nil if
// the medium is clean) so a caller can report every defect from one run
// instead of fixing them one at a time.
package fsck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/nullradix/fd1440/fat12"
)

// Check walks the mounted engine's FAT copies and root directory, reporting
// every violation it finds. A nil return means the medium passed every
// check.
func Check(e *fat12.Engine) error {
	var result *multierror.Error

	result = multierror.Append(result, checkFATMirrors(e))
	chains, err := checkDirentsAndChains(e)
	if err != nil {
		result = multierror.Append(result, err)
	}
	result = multierror.Append(result, checkNoCrossLinkedClusters(chains))

	return result.ErrorOrNil()
}

// checkFATMirrors compares every secondary FAT copy against the first,
// cluster by cluster, per spec §8's "every FAT mirror must agree" property.
func checkFATMirrors(e *fat12.Engine) error {
	var result *multierror.Error
	total := int(e.BPB.TotalClusters)

	for fatIndex := 1; fatIndex < int(e.BPB.NumFATs); fatIndex++ {
		for c := 2; c < total+2; c++ {
			primary, err := e.GetEntryFromCopy(0, c)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("fat copy 0 cluster %d: %w", c, err))
				continue
			}
			mirror, err := e.GetEntryFromCopy(fatIndex, c)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("fat copy %d cluster %d: %w", fatIndex, c, err))
				continue
			}
			if primary != mirror {
				result = multierror.Append(result, fmt.Errorf(
					"fat mirror mismatch at cluster %d: copy 0 = %#x, copy %d = %#x",
					c, primary, fatIndex, mirror))
			}
		}
	}
	return result.ErrorOrNil()
}

// chain is one file's resolved cluster list, carried alongside its name for
// diagnostics.
type chain struct {
	name     string
	clusters []int
}

// checkDirentsAndChains validates every live root directory entry's
// well-formedness (spec §8: a directory's attributes, size, and start
// cluster must be internally consistent) and walks its cluster chain,
// flagging cycles, out-of-range links, and chains that never terminate.
func checkDirentsAndChains(e *fat12.Engine) ([]chain, error) {
	var result *multierror.Error

	dirents, _, err := e.ListRootDirectory()
	if err != nil {
		return nil, fmt.Errorf("reading root directory: %w", err)
	}

	var chains []chain
	for _, d := range dirents {
		name := d.DisplayName()

		if d.StartCluster == 0 {
			if d.Size != 0 {
				result = multierror.Append(result, fmt.Errorf(
					"%s: zero start cluster but non-zero size %d", name, d.Size))
			}
			continue
		}

		if !e.IsValidCluster(int(d.StartCluster)) {
			result = multierror.Append(result, fmt.Errorf(
				"%s: start cluster %d out of range", name, d.StartCluster))
			continue
		}

		visited := map[int]bool{}
		var clusters []int
		cluster := int(d.StartCluster)
		broken := false
		for {
			if visited[cluster] {
				result = multierror.Append(result, fmt.Errorf(
					"%s: cluster chain cycles back to cluster %d", name, cluster))
				broken = true
				break
			}
			visited[cluster] = true
			clusters = append(clusters, cluster)

			next, err := e.GetEntry(cluster)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf(
					"%s: reading fat entry for cluster %d: %w", name, cluster, err))
				broken = true
				break
			}
			if fat12.IsEndOfChain(next) {
				break
			}
			if !e.IsValidCluster(next) {
				result = multierror.Append(result, fmt.Errorf(
					"%s: cluster %d links to out-of-range cluster %d", name, cluster, next))
				broken = true
				break
			}
			cluster = next
		}

		if !broken {
			wantClusters := (int(d.Size) + e.BytesPerCluster() - 1) / e.BytesPerCluster()
			if wantClusters == 0 {
				wantClusters = 1 // a zero-length file still occupies its one start cluster
			}
			if len(clusters) != wantClusters {
				result = multierror.Append(result, fmt.Errorf(
					"%s: size %d implies %d cluster(s), chain has %d",
					name, d.Size, wantClusters, len(clusters)))
			}
		}

		chains = append(chains, chain{name: name, clusters: clusters})
	}

	return chains, result.ErrorOrNil()
}

// checkNoCrossLinkedClusters flags any data cluster claimed by more than one
// file's chain, per spec §8's "no cluster is referenced by two files at
// once" property.
func checkNoCrossLinkedClusters(chains []chain) error {
	var result *multierror.Error

	owner := map[int]string{}
	for _, c := range chains {
		for _, cl := range c.clusters {
			if prev, ok := owner[cl]; ok {
				result = multierror.Append(result, fmt.Errorf(
					"cluster %d is cross-linked between %q and %q", cl, prev, c.name))
				continue
			}
			owner[cl] = c.name
		}
	}
	return result.ErrorOrNil()
}
