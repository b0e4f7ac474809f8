package manifest

// Manifest records every artifact written by the last build.
type Manifest struct {
	Version int     `yaml:"version"`
	Assets  []Asset `yaml:"assets"`
	// Stale lists artifacts written by earlier builds that the current build
	// no longer produces. They stay on disk until pruned.
	Stale []string `yaml:"stale,omitempty"`
}

// Asset is one logical image and everything emitted for it.
type Asset struct {
	// Source is the slash-separated path of the primary file relative to the
	// source directory.
	Source    string     `yaml:"source"`
	Module    string     `yaml:"module,omitempty"`
	Width     float64    `yaml:"width"`
	Height    float64    `yaml:"height"`
	Artifacts []Artifact `yaml:"artifacts"`
}

// Artifact is one emitted variant.
type Artifact struct {
	Path  string `yaml:"path"`
	URL   string `yaml:"url"`
	Scale int    `yaml:"scale"`
	Type  string `yaml:"type"`
}

// Paths returns every file the manifest owns: artifacts and modules.
func (m *Manifest) Paths() []string {
	var out []string
	for _, a := range m.Assets {
		for _, art := range a.Artifacts {
			out = append(out, art.Path)
		}
		if a.Module != "" {
			out = append(out, a.Module)
		}
	}
	return out
}

// Owns reports whether p is an artifact or module of a current asset.
func (m *Manifest) Owns(p string) bool {
	for _, owned := range m.Paths() {
		if owned == p {
			return true
		}
	}
	return false
}

// Find returns the asset recorded for source.
func (m *Manifest) Find(source string) (Asset, bool) {
	for _, a := range m.Assets {
		if a.Source == source {
			return a, true
		}
	}
	return Asset{}, false
}
