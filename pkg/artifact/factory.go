package artifact

import "sync"

// shardCount bounds lock contention: keys are spread over the shards by a
// hash of the whole (path, root, owner) triple. Each Analysis Environment
// (pkg/analysis) is single-owner-per-target, so contention mostly shows up
// when many targets are analyzed concurrently.
const shardCount = 32

// Factory interns Artifacts so that repeated lookups of the same
// (path, root, owner) triple return the same *Artifact. It is shared across
// every Analysis Environment in a build and must be safe for concurrent use.
type Factory struct {
	shards [shardCount]shard
}

type shard struct {
	mu    sync.Mutex
	byKey map[key]*Artifact
}

// NewFactory returns an empty, ready-to-use Factory.
func NewFactory() *Factory {
	f := &Factory{}
	for i := range f.shards {
		f.shards[i].byKey = make(map[key]*Artifact)
	}
	return f
}

func (f *Factory) shardFor(k key) *shard {
	h := fnv1a(k.path) ^ fnv1a(k.root.name) ^ fnv1a(k.owner.Label)
	return &f.shards[h%shardCount]
}

func fnv1a(s string) uint32 {
	const offset, prime = 2166136261, 16777619
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// GetDerivedArtifact interns a derived (non-source) artifact under root,
// owned by owner.
func (f *Factory) GetDerivedArtifact(path string, root Root, owner Owner) *Artifact {
	return f.intern(key{path: path, root: root, owner: owner}, false)
}

// GetFilesetArtifact is identical to GetDerivedArtifact; filesets carry no
// additional identity in this model beyond the usual triple.
func (f *Factory) GetFilesetArtifact(path string, root Root, owner Owner) *Artifact {
	return f.GetDerivedArtifact(path, root, owner)
}

// GetSourceArtifact interns a source artifact (root is always SourceRoot).
func (f *Factory) GetSourceArtifact(path string, owner Owner) *Artifact {
	return f.intern(key{path: path, root: SourceRoot, owner: owner}, true)
}

// GetSpecialMetadataArtifact interns an artifact whose provenance is managed
// externally (constant metadata / forced digest artifacts). forceConstant
// and forceDigest are accepted for interface parity with the original
// design but do not affect identity: they only ever influence how the
// artifact's metadata is computed downstream, which is out of this
// package's scope.
func (f *Factory) GetSpecialMetadataArtifact(path string, root Root, owner Owner, forceConstant, forceDigest bool) *Artifact {
	return f.intern(key{path: path, root: root, owner: owner}, false)
}

func (f *Factory) intern(k key, isSource bool) *Artifact {
	s := f.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byKey[k]; ok {
		return a
	}
	a := &Artifact{path: k.path, root: k.root, owner: k.owner, isSource: isSource}
	s.byKey[k] = a
	return a
}
