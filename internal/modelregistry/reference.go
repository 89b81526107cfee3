package modelregistry

import (
	"fmt"
	"strings"
)

const registryScheme = "models:/"

type ReferenceKind int

const (
	ByAlias ReferenceKind = iota
	ByVersion
	LocalPath
)

func (k ReferenceKind) String() string {
	switch k {
	case ByAlias:
		return "alias"
	case ByVersion:
		return "version"
	default:
		return "local"
	}
}

// Reference identifies one model: models:/name@alias, models:/name/version, or a directory.
type Reference struct {
	Raw     string
	Kind    ReferenceKind
	Name    string
	Alias   string
	Version string
	Path    string
}

func (r Reference) String() string { return r.Raw }

func (r Reference) IsRegistry() bool { return r.Kind != LocalPath }

func ParseReference(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}, fmt.Errorf("empty model reference")
	}

	if !strings.HasPrefix(raw, registryScheme) {
		return Reference{Raw: raw, Kind: LocalPath, Path: raw}, nil
	}

	rest := strings.TrimPrefix(raw, registryScheme)
	if name, alias, ok := strings.Cut(rest, "@"); ok {
		if name == "" || alias == "" || strings.Contains(name, "/") {
			return Reference{}, fmt.Errorf("malformed model reference %q", raw)
		}
		return Reference{Raw: raw, Kind: ByAlias, Name: name, Alias: alias}, nil
	}

	name, version, ok := strings.Cut(rest, "/")
	if !ok || name == "" || version == "" || strings.Contains(version, "/") {
		return Reference{}, fmt.Errorf("malformed model reference %q: want models:/<name>@<alias> or models:/<name>/<version>", raw)
	}
	return Reference{Raw: raw, Kind: ByVersion, Name: name, Version: version}, nil
}
