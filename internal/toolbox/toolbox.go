// Package toolbox holds the modules a growth run may glue onto its host,
// with how many pieces of each remain and how likely each is to be drawn.
package toolbox

import (
	"math/rand"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/modgrow/internal/engine"
	"github.com/Faultbox/modgrow/internal/glue"
	"github.com/Faultbox/modgrow/internal/mesh"
)

// DefaultCacheSize bounds the number of built prototypes kept in memory.
const DefaultCacheSize = 32

// Shape kinds.
const (
	KindBox  = "box"
	KindTube = "tube"
)

// Shape describes how to build a module mesh.
type Shape struct {
	Kind string `yaml:"kind"`

	// box: one edge length for a cube or three for a cuboid
	Size []float64 `yaml:"size,omitempty"`

	// tube
	Sides    int     `yaml:"sides,omitempty"`
	Segments int     `yaml:"segments,omitempty"`
	Radius   float64 `yaml:"radius,omitempty"`
	Length   float64 `yaml:"length,omitempty"`
}

// Build constructs the mesh.
func (s Shape) Build() (*mesh.Mesh, error) {
	switch strings.ToLower(s.Kind) {
	case KindBox:
		switch len(s.Size) {
		case 1:
			if s.Size[0] <= 0 {
				break
			}
			return mesh.Box(s.Size[0], s.Size[0], s.Size[0]), nil
		case 3:
			if s.Size[0] <= 0 || s.Size[1] <= 0 || s.Size[2] <= 0 {
				break
			}
			return mesh.Box(s.Size[0], s.Size[1], s.Size[2]), nil
		}
		return nil, errors.Errorf("box size %v: want one or three positive lengths", s.Size)
	case KindTube:
		segments := s.Segments
		if segments == 0 {
			segments = 1
		}
		return mesh.Tube(s.Sides, segments, s.Radius, s.Length)
	default:
		return nil, errors.Errorf("unknown shape kind %q", s.Kind)
	}
}

// Entry is one module of the toolbox.
type Entry struct {
	Name        string          `yaml:"name"`
	Shape       Shape           `yaml:"shape"`
	Type        glue.ModuleType `yaml:"type"`
	Probability float64         `yaml:"probability"`
	Pieces      int             `yaml:"no_pieces"`
	Glueings    int             `yaml:"no_glueings"`
	Labels      []string        `yaml:"labels,omitempty"`
}

type file struct {
	Toolbox []Entry `yaml:"toolbox"`
}

// Draw is a module taken from the toolbox.
type Draw struct {
	Name     string
	Module   engine.Module
	Glueings int
}

// Toolbox is a weighted bag of modules. Built meshes are cached by name and
// every draw returns a fresh copy.
type Toolbox struct {
	mu      sync.Mutex
	entries []Entry
	labels  []glue.Label
	total   int
	cache   *lru.Cache[string, *mesh.Mesh]
}

// Load reads a toolbox file. JSON files are accepted as well since JSON is
// valid YAML.
func Load(path string) (*Toolbox, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read toolbox")
	}
	tb, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "toolbox %s", path)
	}
	return tb, nil
}

// Parse decodes a toolbox document.
func Parse(data []byte) (*Toolbox, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse toolbox")
	}
	return New(f.Toolbox)
}

// New validates entries and creates a toolbox from them.
func New(entries []Entry) (*Toolbox, error) {
	cache, err := lru.New[string, *mesh.Mesh](DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	tb := &Toolbox{cache: cache}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		switch {
		case e.Name == "":
			return nil, errors.Errorf("entry %d: missing name", i)
		case seen[e.Name]:
			return nil, errors.Errorf("entry %d: duplicate name %q", i, e.Name)
		case e.Pieces < 0:
			return nil, errors.Errorf("%s: negative no_pieces", e.Name)
		case e.Glueings < 1:
			return nil, errors.Errorf("%s: no_glueings must be at least 1", e.Name)
		case e.Probability < 0:
			return nil, errors.Errorf("%s: negative probability", e.Name)
		}
		seen[e.Name] = true
		labels, ok := glue.ParseLabels(e.Labels)
		if !ok {
			return nil, errors.Errorf("%s: unknown label in %v", e.Name, e.Labels)
		}
		if _, err := e.Shape.Build(); err != nil {
			return nil, errors.Wrap(err, e.Name)
		}
		tb.entries = append(tb.entries, e)
		tb.labels = append(tb.labels, labels)
		tb.total += e.Pieces
	}
	return tb, nil
}

// Entries returns a copy of the current entries.
func (tb *Toolbox) Entries() []Entry {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return append([]Entry(nil), tb.entries...)
}

// Remaining returns the number of pieces left over all entries.
func (tb *Toolbox) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.total
}

// UpdateProbabilities sets each entry's probability to its share of the
// remaining pieces.
func (tb *Toolbox) UpdateProbabilities() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for i := range tb.entries {
		if tb.total == 0 {
			tb.entries[i].Probability = 0
			continue
		}
		tb.entries[i].Probability = float64(tb.entries[i].Pieces) / float64(tb.total)
	}
}

// HasNext reports whether any piece is left.
func (tb *Toolbox) HasNext() bool {
	return tb.Remaining() > 0
}

// Next draws an entry with pieces left, weighted by probability, and takes
// one piece of it. When every available entry has zero probability the
// draw is weighted by remaining pieces instead.
func (tb *Toolbox) Next(rng *rand.Rand) (Draw, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.total == 0 {
		return Draw{}, errors.New("toolbox is empty")
	}

	i := tb.pick(rng, func(e Entry) float64 { return e.Probability })
	if i < 0 {
		i = tb.pick(rng, func(e Entry) float64 { return float64(e.Pieces) })
	}
	e := &tb.entries[i]
	m, err := tb.prototype(*e)
	if err != nil {
		return Draw{}, err
	}
	e.Pieces--
	tb.total--
	return Draw{
		Name:     e.Name,
		Module:   engine.Module{Mesh: m, Type: e.Type, Labels: tb.labels[i]},
		Glueings: e.Glueings,
	}, nil
}

// pick returns the index of an entry with pieces left chosen with
// probability proportional to weight, or -1 when all weights are zero.
func (tb *Toolbox) pick(rng *rand.Rand, weight func(Entry) float64) int {
	sum := 0.0
	for _, e := range tb.entries {
		if e.Pieces > 0 {
			sum += weight(e)
		}
	}
	if sum <= 0 {
		return -1
	}
	x := rng.Float64() * sum
	last := -1
	for i, e := range tb.entries {
		if e.Pieces == 0 || weight(e) == 0 {
			continue
		}
		last = i
		x -= weight(e)
		if x < 0 {
			return i
		}
	}
	return last
}

// Prototype returns a fresh copy of the named entry's mesh.
func (tb *Toolbox) Prototype(name string) (*mesh.Mesh, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for _, e := range tb.entries {
		if e.Name == name {
			return tb.prototype(e)
		}
	}
	return nil, errors.Errorf("no module named %q", name)
}

func (tb *Toolbox) prototype(e Entry) (*mesh.Mesh, error) {
	if m, ok := tb.cache.Get(e.Name); ok {
		return m.Clone(), nil
	}
	m, err := e.Shape.Build()
	if err != nil {
		return nil, errors.Wrap(err, e.Name)
	}
	tb.cache.Add(e.Name, m)
	return m.Clone(), nil
}
