package rpak

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LibraryOptions configures how containers are loaded and how streaming
// files are located.
type LibraryOptions struct {
	// GameDir is the root that starpak paths stored in containers are
	// relative to. When empty only the container's directory is searched.
	GameDir string

	// Codec decompresses compressed container bodies.
	Codec Codec
}

// Library is the process-wide asset table: every loaded container and a
// hash -> asset index over all of them.
//
// Loading mutates the table and must not run concurrently with anything
// else. Once loading is done the Library is read-only and safe for
// concurrent lookups from any number of sessions.
type Library struct {
	gameDir    string
	codec      Codec
	containers []*Container
	assets     map[uint64]*Asset
	order      []*Asset
}

// NewLibrary creates an empty library.
func NewLibrary(options *LibraryOptions) *Library {
	if options == nil {
		options = &LibraryOptions{}
	}
	codec := options.Codec
	if codec == nil {
		codec = OodleCodec{}
	}

	return &Library{
		gameDir: options.GameDir,
		codec:   codec,
		assets:  make(map[uint64]*Asset),
	}
}

// Load parses a container and registers its assets. Assets from later
// containers replace earlier ones with the same hash.
func (l *Library) Load(path string) (*Container, error) {
	c, err := LoadContainer(path, l.codec)
	if err != nil {
		return nil, err
	}

	l.containers = append(l.containers, c)
	for _, a := range c.assets {
		if prev, exists := l.assets[a.GUID]; exists {
			slog.Debug("Asset replaced by later container",
				"hash", fmt.Sprintf("0x%x", a.GUID),
				"previous", prev.container.Path,
				"container", path)
			l.removeFromOrder(prev)
		}
		l.assets[a.GUID] = a
		l.order = append(l.order, a)
	}

	slog.Debug("Container loaded",
		"path", path,
		"version", c.Header.Version,
		"assets", len(c.assets),
		"segments", len(c.segments),
		"compressed", c.Header.Compressed())

	return c, nil
}

func (l *Library) removeFromOrder(a *Asset) {
	for i, o := range l.order {
		if o == a {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

// Lookup returns the asset with the given hash.
func (l *Library) Lookup(hash uint64) (*Asset, error) {
	a, ok := l.assets[hash]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", ErrAssetNotFound, hash)
	}
	return a, nil
}

// Assets returns every registered asset in load order.
func (l *Library) Assets() []*Asset {
	return l.order
}

// AssetsOfType returns the registered assets of one type in load order.
func (l *Library) AssetsOfType(t AssetType) []*Asset {
	var out []*Asset
	for _, a := range l.order {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// Codec returns the block codec containers were loaded with.
func (l *Library) Codec() Codec {
	return l.codec
}

// Containers returns the loaded containers in load order.
func (l *Library) Containers() []*Container {
	return l.containers
}

// NewSession opens a read session. Each goroutine exporting assets needs
// its own session.
func (l *Library) NewSession() *Session {
	return &Session{
		lib:        l,
		containers: make(map[*Container]Store),
		streams:    make(map[string]Store),
	}
}

// starpakCandidates lists where a stored streaming path may live on disk.
func (l *Library) starpakCandidates(c *Container, stored string) []string {
	rel := filepath.FromSlash(strings.ReplaceAll(stored, "\\", "/"))

	var candidates []string
	if l.gameDir != "" {
		candidates = append(candidates, filepath.Join(l.gameDir, rel))
	}
	candidates = append(candidates, filepath.Join(filepath.Dir(c.Path), filepath.Base(rel)))
	return candidates
}

// DiscoverContainers walks dir for container files, sorted by path.
func DiscoverContainers(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".rpak") {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering containers in %s: %w", dir, err)
	}

	sort.Strings(found)
	return found, nil
}
