// Package bundle implements the export bundle format: newline-delimited
// JSON with one saved object per line and a trailing manifest line.
//
// A bundle file is deterministic for a given set of objects (see
// Bundle.Sort), so exporting an unchanged index twice produces
// byte-identical files.
package bundle

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"

	"github.com/JohnCGriffin/overflow" // Overflow-checked integer math

	"github.com/kibtools/kibtools"
)

// manifestType marks the trailing manifest line of a bundle file.
// It can't collide with a saved object type.
const manifestType = "_manifest"

// maxLineBytes is the largest single bundle line Read will accept.
// Kibana visualization payloads can get big, but not this big.
const maxLineBytes = 64 * 1024 * 1024

// ErrTooLarge is returned by Add when the total payload byte count
// would overflow the manifest counter.
var ErrTooLarge = errors.New("bundle payload byte count overflows int64")

// ErrManifestMismatch is returned by Read when a bundle's manifest line
// doesn't match the objects actually present in the file.
var ErrManifestMismatch = errors.New("bundle manifest does not match its contents")

// Manifest summarizes a bundle's contents. It holds only values derived
// from the objects themselves, keeping bundle files reproducible.
type Manifest struct {
	// Counts maps saved object type to the number of objects
	// of that type in the bundle.
	Counts map[string]int `json:"counts"`

	// PayloadBytes is the total size of all object payloads.
	PayloadBytes int64 `json:"payload_bytes"`
}

// envelope is one line of a bundle file.
type envelope struct {
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type"`
	Source   json.RawMessage `json:"source,omitempty"`
	Manifest *Manifest       `json:"manifest,omitempty"`
}

// Bundle is an ordered collection of Kibana saved objects produced by one
// export run (or read back from a bundle file).
type Bundle struct {
	objects  []*kibtools.KibanaObject
	manifest Manifest
}

// New returns a new empty Bundle.
func New() *Bundle {
	return &Bundle{
		manifest: Manifest{Counts: make(map[string]int)},
	}
}

// Add appends objects to the bundle, updating the manifest.
//
// Payloads are normalized to the bytes Write will emit for them: Write
// marshals payloads through json.Marshal, which compacts them and escapes
// HTML characters, so counting the raw input would desync the manifest
// byte total from the file. Elasticsearch returns _source verbatim as
// indexed, so payloads may well arrive pretty-printed.
func (b *Bundle) Add(objs ...*kibtools.KibanaObject) error {
	for _, o := range objs {
		payload := o.Payload
		if payload != nil {
			norm, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("invalid %s %q payload: %s", o.Type, o.ID, err)
			}
			payload = norm
		}
		total, ok := overflow.Add64(b.manifest.PayloadBytes, int64(len(payload)))
		if !ok {
			return ErrTooLarge
		}
		b.manifest.PayloadBytes = total
		b.manifest.Counts[string(o.Type)]++
		b.objects = append(b.objects, &kibtools.KibanaObject{
			ID:      o.ID,
			Type:    o.Type,
			Payload: payload,
		})
	}
	return nil
}

// Len returns the number of objects in the bundle.
func (b *Bundle) Len() int {
	return len(b.objects)
}

// Objects returns the objects in the bundle in their current order.
func (b *Bundle) Objects() []*kibtools.KibanaObject {
	return b.objects
}

// Manifest returns the bundle's manifest.
func (b *Bundle) Manifest() Manifest {
	return b.manifest
}

// Sort orders the bundle by (type, id) so that Write output is
// deterministic regardless of the order objects were fetched in.
func (b *Bundle) Sort() {
	sort.SliceStable(b.objects, func(i, j int) bool {
		if b.objects[i].Type != b.objects[j].Type {
			return b.objects[i].Type < b.objects[j].Type
		}
		return b.objects[i].ID < b.objects[j].ID
	})
}

// Write writes the bundle to w as NDJSON: one envelope line per object,
// then the manifest line.
func (b *Bundle) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, o := range b.objects {
		line, err := json.Marshal(envelope{
			ID:     o.ID,
			Type:   string(o.Type),
			Source: o.Payload,
		})
		if err != nil {
			return err
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	line, err := json.Marshal(envelope{
		Type:     manifestType,
		Manifest: &b.manifest,
	})
	if err != nil {
		return err
	}
	if _, err := bw.Write(line); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteFile writes the bundle to a file, creating or truncating it.
func (b *Bundle) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := b.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read reads a bundle from r, verifying the manifest line (if present)
// against the objects actually read.
func Read(r io.Reader) (*Bundle, error) {
	b := New()
	var manifest *Manifest

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, fmt.Errorf("malformed bundle line: %s", err)
		}
		if env.Type == manifestType {
			if env.Manifest == nil {
				return nil, errors.New("bundle manifest line has no manifest")
			}
			manifest = env.Manifest
			continue
		}
		t, err := kibtools.ParseObjectType(env.Type)
		if err != nil {
			return nil, err
		}
		if env.ID == "" {
			return nil, fmt.Errorf("bundle %s line has no id", t)
		}
		if err := b.Add(&kibtools.KibanaObject{ID: env.ID, Type: t, Payload: env.Source}); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if manifest != nil {
		if manifest.PayloadBytes != b.manifest.PayloadBytes ||
			!reflect.DeepEqual(manifest.Counts, b.manifest.Counts) {
			return nil, ErrManifestMismatch
		}
	}
	return b, nil
}

// ReadFile reads a bundle from a file.
func ReadFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
