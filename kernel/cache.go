package kernel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/blake2b"
)

// blobVersion is bumped whenever the persisted layout or generation math changes.
const blobVersion = 1

var (
	// ErrCacheMiss indicates no persisted table exists for the requested parameters.
	ErrCacheMiss = errors.New("kernel cache miss")

	// ErrCacheCorrupt indicates the persisted table could not be read back intact.
	ErrCacheCorrupt = errors.New("kernel cache corrupt")
)

// Origin records where GenerateOrLoad obtained its table.
type Origin int

const (
	// OriginLoaded means the table was read from the persisted blob.
	OriginLoaded Origin = iota
	// OriginGenerated means the table was computed in this process.
	OriginGenerated
)

func (o Origin) String() string {
	if o == OriginLoaded {
		return "loaded"
	}
	return "generated"
}

// envelope is the on-disk blob. Payload is the msgpack encoding of payload and
// Checksum is its BLAKE2b-256 digest.
type envelope struct {
	Version  int    `msgpack:"version"`
	Key      []byte `msgpack:"key"`
	Checksum []byte `msgpack:"checksum"`
	Payload  []byte `msgpack:"payload"`
}

type payload struct {
	MaxRadius float32  `msgpack:"max_radius"`
	Steps     int      `msgpack:"steps"`
	Kernels   []Kernel `msgpack:"kernels"`
}

// CacheKey derives the identity of a table from its generation parameters.
func CacheKey(p Params) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint32(buf[0:4], blobVersion)
	binary.BigEndian.PutUint32(buf[4:8], math.Float32bits(p.MaxRadius))
	binary.BigEndian.PutUint64(buf[8:16], uint64(p.Steps))
	sum := blake2b.Sum256(buf[:])
	return sum[:]
}

// Marshal serializes a table into a self-checking blob.
func Marshal(t *Table) ([]byte, error) {
	body, err := msgpack.Marshal(payload{
		MaxRadius: t.params.MaxRadius,
		Steps:     t.params.Steps,
		Kernels:   t.kernels,
	})
	if err != nil {
		return nil, fmt.Errorf("encode kernel table: %w", err)
	}

	sum := blake2b.Sum256(body)
	blob, err := msgpack.Marshal(envelope{
		Version:  blobVersion,
		Key:      CacheKey(t.params),
		Checksum: sum[:],
		Payload:  body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode kernel envelope: %w", err)
	}
	return blob, nil
}

// Unmarshal decodes a blob produced by Marshal for the expected parameters.
//
// A blob for other parameters or an older layout yields ErrCacheMiss; any
// decode, checksum or invariant failure yields ErrCacheCorrupt.
func Unmarshal(data []byte, p Params) (*Table, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrCacheCorrupt, err)
	}
	if env.Version != blobVersion {
		return nil, fmt.Errorf("%w: blob version %d, want %d", ErrCacheMiss, env.Version, blobVersion)
	}
	if !bytes.Equal(env.Key, CacheKey(p)) {
		return nil, fmt.Errorf("%w: blob generated for other parameters", ErrCacheMiss)
	}

	sum := blake2b.Sum256(env.Payload)
	if !bytes.Equal(env.Checksum, sum[:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCacheCorrupt)
	}

	var body payload
	if err := msgpack.Unmarshal(env.Payload, &body); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrCacheCorrupt, err)
	}
	if body.MaxRadius != p.MaxRadius || body.Steps != p.Steps {
		return nil, fmt.Errorf("%w: payload parameters do not match key", ErrCacheCorrupt)
	}

	t, err := newTable(p, body.Kernels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	return t, nil
}

// Cache persists a kernel table as a single blob at a fixed path.
//
// Persistence is best effort: a failed write is logged and the in-memory
// table is still returned. An empty path disables persistence.
type Cache struct {
	path string
}

// NewCache creates a cache backed by the file at path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// DefaultPath returns the per-user cache location of the blob.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate user cache dir: %w", err)
	}
	return filepath.Join(dir, "crossfade", "weights"), nil
}

// Path returns the blob location.
func (c *Cache) Path() string {
	return c.path
}

// Load reads the persisted table for p.
func (c *Cache) Load(p Params) (*Table, error) {
	if c.path == "" {
		return nil, fmt.Errorf("%w: persistence disabled", ErrCacheMiss)
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, c.path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCacheCorrupt, c.path, err)
	}
	return Unmarshal(data, p)
}

// Save writes the table atomically by renaming a temporary file into place.
func (c *Cache) Save(t *Table) error {
	if c.path == "" {
		return nil
	}
	blob, err := Marshal(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".weights-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp blob: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install blob: %w", err)
	}
	return nil
}

// GenerateOrLoad returns the table for p, loading the persisted blob when it
// is present and intact and regenerating (and overwriting the blob) otherwise.
//
// The only errors returned are invalid parameters; cache failures are
// recovered locally.
func (c *Cache) GenerateOrLoad(p Params) (*Table, Origin, error) {
	if err := p.Validate(); err != nil {
		return nil, OriginGenerated, err
	}

	t, err := c.Load(p)
	if err == nil {
		logrus.WithFields(logrus.Fields{
			"function": "Cache.GenerateOrLoad",
			"path":     c.path,
			"steps":    t.Len(),
		}).Info("Loaded blur kernel table from cache")
		return t, OriginLoaded, nil
	}

	fields := logrus.Fields{
		"function": "Cache.GenerateOrLoad",
		"path":     c.path,
		"reason":   err.Error(),
	}
	if errors.Is(err, ErrCacheCorrupt) {
		logrus.WithFields(fields).Warn("Kernel cache unreadable, regenerating")
	} else {
		logrus.WithFields(fields).Debug("Kernel cache miss, generating")
	}

	t, err = Generate(p)
	if err != nil {
		return nil, OriginGenerated, err
	}

	if err := c.Save(t); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Cache.GenerateOrLoad",
			"path":     c.path,
			"error":    err.Error(),
		}).Warn("Failed to persist kernel table, continuing in memory")
	}

	return t, OriginGenerated, nil
}
