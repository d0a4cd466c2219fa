package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/banshee-data/lbptop/internal/faceloc"
)

const maxManifestSize = 32 << 20

var validate = validator.New()

// ManifestEntry describes one video. Paths are relative to the input
// directory unless absolute.
type ManifestEntry struct {
	ID        string `json:"id" validate:"required"`
	Video     string `json:"video" validate:"required"`
	Faces     string `json:"faces" validate:"required"`
	Class     string `json:"class" validate:"required,oneof=real attack enroll"`
	Group     string `json:"group" validate:"required,oneof=train devel test enroll"`
	Rotated   bool   `json:"rotated,omitempty"`
	Locations string `json:"locations,omitempty" validate:"omitempty,oneof=detections bbx"`
}

// Manifest is a dataset described by a JSON file.
type Manifest struct {
	DatasetName string          `json:"name" validate:"required"`
	Videos      []ManifestEntry `json:"videos" validate:"required,min=1,dive"`

	root string
}

// LoadManifest reads a manifest. Relative paths resolve against inputDir.
func LoadManifest(path, inputDir string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if info.Size() > maxManifestSize {
		return nil, fmt.Errorf("manifest %s too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	seen := make(map[string]bool, len(m.Videos))
	for _, v := range m.Videos {
		if seen[v.ID] {
			return nil, fmt.Errorf("invalid manifest %s: duplicate id %q", path, v.ID)
		}
		seen[v.ID] = true
	}
	m.root = inputDir
	return &m, nil
}

// Name returns the dataset name.
func (m *Manifest) Name() string { return m.DatasetName }

// Files implements Dataset.
func (m *Manifest) Files(sel Selection) ([]File, error) {
	if sel.Enrollment {
		var out []File
		for i := range m.Videos {
			if v := &m.Videos[i]; v.Group == GroupEnroll || v.Class == GroupEnroll {
				out = append(out, m.file(v))
			}
		}
		return out, nil
	}

	groups := sel.Groups
	if len(groups) == 0 {
		groups = []string{GroupTrain, GroupDevel, GroupTest}
	}
	for _, g := range groups {
		switch g {
		case GroupTrain, GroupDevel, GroupTest:
		default:
			return nil, fmt.Errorf("dataset %s: unknown group %q", m.DatasetName, g)
		}
	}

	var reals, attacks []File
	for i := range m.Videos {
		v := &m.Videos[i]
		if !slices.Contains(groups, v.Group) {
			continue
		}
		switch v.Class {
		case ClassReal:
			reals = append(reals, m.file(v))
		case ClassAttack:
			attacks = append(attacks, m.file(v))
		}
	}
	return append(reals, attacks...), nil
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.root == "" {
		return p
	}
	return filepath.Join(m.root, p)
}

func (m *Manifest) file(v *ManifestEntry) *manifestFile {
	return &manifestFile{entry: *v, video: m.resolve(v.Video), faces: m.resolve(v.Faces)}
}

type manifestFile struct {
	entry ManifestEntry
	video string
	faces string
}

func (f *manifestFile) ID() string        { return f.entry.ID }
func (f *manifestFile) VideoPath() string { return f.video }
func (f *manifestFile) Rotated() bool     { return f.entry.Rotated }

// FaceLocations reads the face file and fills it out for every frame
// according to the entry's location source.
func (f *manifestFile) FaceLocations(opts LocationOptions) (faceloc.Locations, error) {
	locs, err := faceloc.ReadFile(f.faces)
	if err != nil {
		return nil, err
	}
	if f.entry.Locations == SourceBBX {
		return faceloc.Expand(locs, opts.FrameCount), nil
	}
	return faceloc.Preprocess(locs, opts.FrameCount, opts.MinFaceSize), nil
}
