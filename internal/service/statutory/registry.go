package statutory

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var embeddedTables embed.FS

type versioned interface {
	effectiveFrom() time.Time
}

// Registry holds every loaded table version, newest first per kind.
// It is immutable once built.
type Registry struct {
	epf   []*EPFTable
	socso []*SOCSOTable
	eis   []*EISTable
	pcb   []*PCBTable
}

// NewRegistry loads the tables shipped with the binary.
func NewRegistry() (*Registry, error) {
	return LoadRegistry("")
}

// LoadRegistry loads the embedded tables and then any *.yaml documents in
// overrideDir. An override with the same kind and version replaces the
// embedded one.
func LoadRegistry(overrideDir string) (*Registry, error) {
	r := &Registry{}

	err := fs.WalkDir(embeddedTables, "tables", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := embeddedTables.ReadFile(path)
		if err != nil {
			return err
		}
		return r.Add(data, path)
	})
	if err != nil {
		return nil, err
	}

	if overrideDir != "" {
		entries, err := os.ReadDir(overrideDir)
		if err != nil {
			return nil, fmt.Errorf("read rate table dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
				continue
			}
			path := filepath.Join(overrideDir, e.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read rate table %s: %w", path, err)
			}
			if err := r.Add(data, path); err != nil {
				return nil, err
			}
		}
	}

	slog.Info("Rate tables loaded",
		"epf", len(r.epf), "socso", len(r.socso), "eis", len(r.eis), "pcb", len(r.pcb))
	return r, nil
}

// Add decodes one YAML table document and registers it.
func (r *Registry) Add(data []byte, name string) error {
	var h TableHeader
	if err := yaml.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("rate table %s: %w", name, err)
	}

	switch h.Kind {
	case statutory.KindEPF:
		t := &EPFTable{}
		if err := decodeTable(data, t, &t.TableHeader, name); err != nil {
			return err
		}
		if err := t.validate(); err != nil {
			return err
		}
		r.epf = insert(r.epf, t, t.Version, func(x *EPFTable) string { return x.Version })
	case statutory.KindSOCSO:
		t := &SOCSOTable{}
		if err := decodeTable(data, t, &t.TableHeader, name); err != nil {
			return err
		}
		if err := t.validate(); err != nil {
			return err
		}
		r.socso = insert(r.socso, t, t.Version, func(x *SOCSOTable) string { return x.Version })
	case statutory.KindEIS:
		t := &EISTable{}
		if err := decodeTable(data, t, &t.TableHeader, name); err != nil {
			return err
		}
		if err := t.validate(); err != nil {
			return err
		}
		r.eis = insert(r.eis, t, t.Version, func(x *EISTable) string { return x.Version })
	case statutory.KindPCB:
		t := &PCBTable{}
		if err := decodeTable(data, t, &t.TableHeader, name); err != nil {
			return err
		}
		if err := t.validate(); err != nil {
			return err
		}
		r.pcb = insert(r.pcb, t, t.Version, func(x *PCBTable) string { return x.Version })
	default:
		return fmt.Errorf("rate table %s: unknown kind %q", name, h.Kind)
	}
	return nil
}

func decodeTable(data []byte, out interface{}, h *TableHeader, name string) error {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("rate table %s: %w", name, err)
	}
	if err := h.parse(); err != nil {
		return fmt.Errorf("rate table %s: %w", name, err)
	}
	return nil
}

// insert replaces a same-version entry or appends, keeping newest first.
func insert[T versioned](list []T, t T, version string, versionOf func(T) string) []T {
	replaced := false
	for i, existing := range list {
		if versionOf(existing) == version {
			list[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, t)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].effectiveFrom().After(list[j].effectiveFrom())
	})
	return list
}

func pick[T versioned](list []T, date time.Time) (T, bool) {
	for _, t := range list {
		if !t.effectiveFrom().After(date) {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// For returns the versions in force on date, normally the period end.
func (r *Registry) For(date time.Time) (*Tables, error) {
	epf, ok := pick(r.epf, date)
	if !ok {
		return nil, &statutory.MissingRateTableError{Kind: statutory.KindEPF, Date: date}
	}
	socso, ok := pick(r.socso, date)
	if !ok {
		return nil, &statutory.MissingRateTableError{Kind: statutory.KindSOCSO, Date: date}
	}
	eis, ok := pick(r.eis, date)
	if !ok {
		return nil, &statutory.MissingRateTableError{Kind: statutory.KindEIS, Date: date}
	}
	pcb, ok := pick(r.pcb, date)
	if !ok {
		return nil, &statutory.MissingRateTableError{Kind: statutory.KindPCB, Date: date}
	}
	return &Tables{epf: epf, socso: socso, eis: eis, pcb: pcb}, nil
}
